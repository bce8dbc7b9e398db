package logging

import (
	"os"
	"strings"
)

// logger is a global reference to a shared Logger.  It is silent until it is
// initialized by the command line.
var logger = newLogger(LogLevelSilent)

// Initialize initializes the global logger with the provided log level
func Initialize(loglevelname string) {
	var loglevel int
	switch loglevelname {
	case "silent":
		loglevel = LogLevelSilent
	case "error":
		loglevel = LogLevelError
	case "warn", "warning":
		loglevel = LogLevelWarning
	// everything else (including invalid log levels) should default to verbose
	default:
		loglevel = LogLevelVerbose
	}

	logger = newLogger(loglevel)
}

// ShouldProceed indicates whether or not the log module has encountered any
// errors.
func ShouldProceed() bool {
	return logger.errorCount == 0
}

// -----------------------------------------------------------------------------
// NOTE: All log functions will only display if the appropriate log level is
// set.  Most log functions will simply fail silently if below their appropriate
// log level.

// LogBuildError logs an error that stopped the build
func LogBuildError(kind string, err error) {
	logger.handleMsg(&BuildError{Kind: kind, Err: err})
}

// LogBuildWarning logs a warning in the build process
func LogBuildWarning(kind, warning string) {
	logger.handleMsg(&BuildWarning{Kind: kind, Message: warning})
}

// LogCommand echoes an external command before it is run
func LogCommand(tool string, args []string) {
	if logger.LogLevel < LogLevelVerbose {
		return
	}

	logger.m.Lock()
	defer logger.m.Unlock()

	displayCommand(tool + " " + strings.Join(args, " "))
}

// LogBuildHeader displays the tool version and the selected target
func LogBuildHeader(project, profile, target string) {
	if logger.LogLevel == LogLevelVerbose {
		displayBuildHeader(project, profile, target)
	}
}

// BeginPhase starts the spinner for a named build phase
func BeginPhase(phase string) {
	if logger.LogLevel == LogLevelVerbose {
		displayBeginPhase(phase)
	}
}

// EndPhase stops the current phase spinner
func EndPhase(success bool) {
	if logger.LogLevel == LogLevelVerbose {
		displayEndPhase(success)
	}
}

// LogFinished displays all buffered warnings and the closing message.  It
// returns whether the build succeeded.
func LogFinished() bool {
	warningCount := logger.flushWarnings()
	success := ShouldProceed()

	if logger.LogLevel > LogLevelSilent {
		displayFinished(success, logger.errorCount, warningCount)
	}

	return success
}

// LogFatal logs a fatal error that was not expected: ie. the exporter did
// something it wasn't supposed to.  It exits the process.
func LogFatal(message string) {
	logger.m.Lock()
	displayEndPhase(false)
	displayFatalError(message)
	logger.m.Unlock()

	os.Exit(1)
}
