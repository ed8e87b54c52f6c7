package ff

import (
	"database/sql"
	"fmt"
	"time"
)

// Run statuses.
const (
	RunRunning = "running"
	RunSuccess = "success"
	RunPartial = "partial"
	RunError   = "error"
)

// Run is one recorded invocation of a snapshot-writing command.
type Run struct {
	ID         int64
	RunID      string
	Operation  string
	Parameters string
	Status     string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Failures   int
	Snapshots  int
}

// SnapshotVersion is one snapshot file written by a run.
type SnapshotVersion struct {
	ID        int64
	RunID     int64
	Name      string
	Checksum  string
	Size      int64
	CreatedAt time.Time
}

// History stores the run log.
type History interface {
	// CreateRun inserts a run in the running state and returns it with its ID.
	CreateRun(runID, operation, parameters string, startedAt time.Time) (*Run, error)

	// FinishRun sets the final status of a run.
	FinishRun(id int64, status string, failures int, finishedAt time.Time) error

	// RecordSnapshot appends a snapshot version to a run.
	RecordSnapshot(runID int64, info SnapshotInfo, createdAt time.Time) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*Run, error)

	// FindRun returns a run by its numeric ID, or nil if it does not exist.
	FindRun(id int64) (*Run, error)

	// ListSnapshots returns the snapshot versions written by a run, in write order.
	ListSnapshots(runID int64) ([]*SnapshotVersion, error)

	Close() error
}

// GetHistory returns the most recent runs, newest first.
func (s *FFService) GetHistory(limit int) ([]*Run, error) {
	if s.history == nil {
		return nil, fmt.Errorf("run history is not configured")
	}
	runs, err := s.history.ListRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run and the snapshots it wrote.
func (s *FFService) GetRun(id int64) (*Run, []*SnapshotVersion, error) {
	if s.history == nil {
		return nil, nil, fmt.Errorf("run history is not configured")
	}
	run, err := s.history.FindRun(id)
	if err != nil {
		return nil, nil, fmt.Errorf("finding run: %w", err)
	}
	if run == nil {
		return nil, nil, fmt.Errorf("run %d not found", id)
	}
	snaps, err := s.history.ListSnapshots(id)
	if err != nil {
		return nil, nil, fmt.Errorf("listing snapshots: %w", err)
	}
	return run, snaps, nil
}
