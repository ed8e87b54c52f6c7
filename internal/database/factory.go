package database

import (
	"fmt"
	"os"
	"path/filepath"

	"ffctl/internal/config"
)

// NewHistoryFromConfig opens the run history database named by the config.
// In-memory databases are migrated immediately; file databases are left for
// the caller to check or migrate.
func NewHistoryFromConfig(cfg config.DatabaseConfig, hostID string) (*SQLiteHistory, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		return NewSQLiteHistory(filepath.Join(cfg.DataDir, hostID+".db"))
	case "memory":
		h, err := NewSQLiteHistory(":memory:")
		if err != nil {
			return nil, err
		}
		if err := h.Migrate(); err != nil {
			h.Close()
			return nil, err
		}
		return h, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
