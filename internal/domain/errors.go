package domain

import "fmt"

// LaunchError means an external tool could not be started at all (binary
// missing, not executable). Distinct from a tool that ran and exited nonzero,
// which stages record as an item failure instead.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %s: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ItemError is a failure scoped to one item of a batch. Stages record it in
// their report and keep going; the orchestrator decides overall severity.
type ItemError struct {
	Item string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Item, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// PreconditionError means a stage was started without its required input, for
// example an empty sample sheet feeding the AMR tool.
type PreconditionError struct {
	Stage StageKind
	Msg   string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Msg)
}
