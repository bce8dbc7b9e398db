package logging

// LogMessage is a message that is buffered or displayed by the logger
type LogMessage interface {
	display()
	isError() bool
}

// BuildError is an error that aborted (part of) the build: a bad project file,
// a failed external tool or an encoding failure.
type BuildError struct {
	Kind string
	Err  error
}

func (be *BuildError) isError() bool {
	return true
}

// BuildWarning is a warning produced during the build.  It does not stop the
// build and is only displayed once the build finishes.
type BuildWarning struct {
	Kind    string
	Message string
}

func (bw *BuildWarning) isError() bool {
	return false
}
