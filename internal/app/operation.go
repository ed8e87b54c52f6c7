package app

import "ffctl/internal/ff"

// RunOperation tracks the CLI command being run. Operations are created in
// memory with ID=0. Only snapshot-writing commands persist them, which gives
// them an auto-increment ID from the history database.
type RunOperation struct {
	ID         int64
	RunID      string
	Operation  string
	Parameters string
	Status     string // "success", "partial" or "error"
	Failures   int
}

// NewRunOperation creates a new in-memory run operation.
func NewRunOperation(runID, operation, parameters string) *RunOperation {
	return &RunOperation{
		RunID:      runID,
		Operation:  operation,
		Parameters: parameters,
		Status:     ff.RunSuccess,
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *RunOperation) Persisted() bool {
	return op.ID != 0
}

// Complete sets the final status from the result of the command. Skipped
// items mark the run partial; any other error marks it failed.
func (op *RunOperation) Complete(err error) {
	if err == nil {
		op.Status = ff.RunSuccess
		op.Failures = 0
		return
	}
	if pe, ok := ff.AsPartial(err); ok {
		op.Status = ff.RunPartial
		op.Failures = len(pe.Failures)
		return
	}
	op.Status = ff.RunError
	op.Failures = 0
}
