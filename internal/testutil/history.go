package testutil

import (
	"testing"

	"ffctl/internal/database"
)

// NewTestHistory creates a new in-memory run history with migrations applied.
// The database is automatically closed when the test completes.
func NewTestHistory(t *testing.T) *database.SQLiteHistory {
	t.Helper()

	h, err := database.NewSQLiteHistory(":memory:")
	if err != nil {
		t.Fatalf("failed to open history: %v", err)
	}
	if err := h.Migrate(); err != nil {
		h.Close()
		t.Fatalf("failed to migrate history: %v", err)
	}

	t.Cleanup(func() {
		h.Close()
	})

	return h
}
