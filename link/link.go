// Package link runs the final link command of a build with the exported CFG
// objects added to it.
package link

import (
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"ykcfg/embed"
	"ykcfg/logging"
)

// Linker is the link command of a build: it is run as
//
//	<Command> <Args...> -o <Output> <objects...> <Extra...>
type Linker struct {
	Command string
	Args    []string
	Output  string

	// Extra are object files and libraries that follow the exported objects
	Extra []string
}

// LinkError is returned when the linker ran but failed.  Output holds the
// diagnostics it printed.
type LinkError struct {
	Output string
}

func (le *LinkError) Error() string {
	return "link error:\n" + strings.TrimRight(le.Output, "\n")
}

// CommandArgs returns the full argument list the linker is run with.
func (l *Linker) CommandArgs(objects []*embed.Object) []string {
	args := append([]string{}, l.Args...)
	args = append(args, "-o", l.Output)

	for _, obj := range objects {
		args = append(args, obj.Path())
	}

	return append(args, l.Extra...)
}

// Link runs the linker with objects appended to its inputs.  Once linking is
// finished (successfully or not) the objects are released: avoid making a mess
// in the user's temporary directory.
func (l *Linker) Link(objects []*embed.Object) (err error) {
	defer func() {
		if rerr := embed.ReleaseAll(objects); rerr != nil && err == nil {
			err = rerr
		}
	}()

	if l.Command == "" {
		return errors.New("no link command configured")
	}

	args := l.CommandArgs(objects)
	logging.LogCommand(l.Command, args)

	out, err := exec.Command(l.Command, args...).CombinedOutput()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			// exit error => we were able to find the linker, but there were
			// link errors
			return &LinkError{Output: string(out)}
		}

		// some other error: probably couldn't find the linker
		return errors.Wrapf(err, "failed to run linker `%s`", l.Command)
	}

	return nil
}
