package app

import (
	"fmt"

	"ffctl/internal/ff"
)

// recordingStore wraps a SnapshotStore and logs every successful write to
// the run history once the current run has been persisted.
type recordingStore struct {
	ff.SnapshotStore
	history ff.History
	op      *RunOperation
	clock   ff.Clock
}

var _ ff.SnapshotStore = (*recordingStore)(nil)

func newRecordingStore(inner ff.SnapshotStore, history ff.History, op *RunOperation, clock ff.Clock) *recordingStore {
	return &recordingStore{SnapshotStore: inner, history: history, op: op, clock: clock}
}

func (s *recordingStore) WriteJSON(name string, v any) (*ff.SnapshotInfo, error) {
	info, err := s.SnapshotStore.WriteJSON(name, v)
	if err != nil {
		return nil, err
	}
	return info, s.record(info)
}

func (s *recordingStore) WriteRaw(name string, data []byte) (*ff.SnapshotInfo, error) {
	info, err := s.SnapshotStore.WriteRaw(name, data)
	if err != nil {
		return nil, err
	}
	return info, s.record(info)
}

func (s *recordingStore) record(info *ff.SnapshotInfo) error {
	if s.history == nil || !s.op.Persisted() {
		return nil
	}
	if err := s.history.RecordSnapshot(s.op.ID, *info, s.clock.Now().UTC()); err != nil {
		return fmt.Errorf("recording snapshot %s: %w", info.Name, err)
	}
	return nil
}
