package embed

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"ykcfg/logging"
)

// ToolError is returned when an external tool could not be run or exited
// unsuccessfully.  Output is the diagnostic text the tool printed.
type ToolError struct {
	Tool   string
	Args   []string
	Output string

	// Err is the error returned by exec: an *exec.ExitError when the tool ran
	// but failed
	Err error
}

func (te *ToolError) Error() string {
	if _, ok := te.Err.(*exec.ExitError); ok {
		return fmt.Sprintf("`%s %s` failed:\n%s", te.Tool, strings.Join(te.Args, " "), strings.TrimRight(te.Output, "\n"))
	}

	// some other error: probably couldn't find the tool
	return fmt.Sprintf("failed to run `%s`: %s", te.Tool, te.Err)
}

func (te *ToolError) Unwrap() error {
	return te.Err
}

// runTool runs an external tool to completion, capturing everything it prints.
func runTool(tool string, args ...string) error {
	logging.LogCommand(tool, args)

	cmd := exec.Command(tool, args...)
	outBuff := bytes.Buffer{}
	cmd.Stdout = &outBuff
	cmd.Stderr = &outBuff

	if err := cmd.Run(); err != nil {
		return &ToolError{Tool: tool, Args: args, Output: outBuff.String(), Err: err}
	}

	return nil
}
