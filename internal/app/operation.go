package app

import (
	"time"
)

// Operation tracks one CLI invocation. Every log line of the invocation
// carries its ID. Only mutating operations record an outcome.
type Operation struct {
	ID         string
	Name       string
	Root       string
	Parameters string
	Status     string // "", "success", "reported" or "error"
	Err        error
	Started    time.Time
}

// NewOperation creates an operation whose ID is derived from its start time.
func NewOperation(name, root string, started time.Time) *Operation {
	return &Operation{
		ID:      started.UTC().Format("20060102T150405.000Z"),
		Name:    name,
		Root:    root,
		Started: started,
	}
}

// Finish records the outcome. Expected conditions are "reported" rather
// than "error".
func (op *Operation) Finish(err error) {
	op.Err = err
	switch {
	case err == nil:
		op.Status = "success"
	case IsReported(err):
		op.Status = "reported"
	default:
		op.Status = "error"
	}
}

// Mutating returns true if Finish was called.
func (op *Operation) Mutating() bool {
	return op.Status != ""
}

// LogArgs returns the key/value pairs describing the outcome.
func (op *Operation) LogArgs() []any {
	args := []any{"operation", op.Name, "status", op.Status}
	if op.Parameters != "" {
		args = append(args, "params", op.Parameters)
	}
	if op.Err != nil {
		args = append(args, "error", op.Err.Error())
	}
	return args
}
