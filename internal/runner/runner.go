// Package runner executes external tools synchronously and captures their
// output. A tool that runs and exits nonzero is not an error here; callers
// inspect the Result and decide severity. Only a tool that cannot be started
// surfaces as a *domain.LaunchError.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/pathogenwatch/amrpipe/internal/domain"
)

// Command describes one external invocation
type Command struct {
	Name    string
	Args    []string
	Dir     string // working directory for the process; empty means inherit
	LogPath string // if set, stdout and stderr are appended to this file
}

// String returns the command line for log messages
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds the captured outcome of a finished invocation
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Failed   bool // process ran but exited nonzero
}

// Runner runs external commands
type Runner struct{}

// New creates a Runner
func New() *Runner {
	return &Runner{}
}

// Run executes the command to completion. If cmd.LogPath is set, one block of
// "stdout\nstderr\n" is appended to the log file, created if absent. A
// nonzero exit status sets Result.Failed and returns no error; a process that
// cannot be launched returns a *domain.LaunchError.
func (r *Runner) Run(ctx context.Context, cmd Command) (Result, error) {
	var stdout, stderr bytes.Buffer

	proc := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	proc.Dir = cmd.Dir
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	err := proc.Run()

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if logErr := appendLog(cmd.LogPath, res.Stdout, res.Stderr); logErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: writing log %s: %v\n", cmd.LogPath, logErr)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Failed = true
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, &domain.LaunchError{Command: cmd.String(), Err: err}
	}

	return res, nil
}

func appendLog(path, stdout, stderr string) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(stdout + "\n" + stderr + "\n")
	return err
}
