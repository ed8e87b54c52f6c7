package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ffctl/internal/database/migrations"
	"ffctl/internal/ff"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteHistory implements ff.History using SQLite.
type SQLiteHistory struct {
	db   *sql.DB
	path string
}

// NewSQLiteHistory opens a run history database.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteHistory{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// SQLite leaves foreign keys off unless asked.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

const runColumns = `r.id, r.run_id, r.operation, r.parameters, r.status, r.started_at, r.finished_at, r.failures,
	(SELECT COUNT(*) FROM snapshots s WHERE s.run_id = r.id)`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*ff.Run, error) {
	var run ff.Run
	err := row.Scan(&run.ID, &run.RunID, &run.Operation, &run.Parameters, &run.Status,
		&run.StartedAt, &run.FinishedAt, &run.Failures, &run.Snapshots)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Run operations

func (s *SQLiteHistory) CreateRun(runID, operation, parameters string, startedAt time.Time) (*ff.Run, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (run_id, operation, parameters, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		runID, operation, parameters, ff.RunRunning, startedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading run id: %w", err)
	}
	return &ff.Run{
		ID:         id,
		RunID:      runID,
		Operation:  operation,
		Parameters: parameters,
		Status:     ff.RunRunning,
		StartedAt:  startedAt.UTC(),
	}, nil
}

func (s *SQLiteHistory) FinishRun(id int64, status string, failures int, finishedAt time.Time) error {
	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, failures = ?, finished_at = ? WHERE id = ?`,
		status, failures, finishedAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finishing run: run %d not found", id)
	}
	return nil
}

func (s *SQLiteHistory) ListRuns(limit int) ([]*ff.Run, error) {
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs r ORDER BY r.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*ff.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

func (s *SQLiteHistory) FindRun(id int64) (*ff.Run, error) {
	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding run: %w", err)
	}
	return run, nil
}

// Snapshot operations

func (s *SQLiteHistory) RecordSnapshot(runID int64, info ff.SnapshotInfo, createdAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO snapshots (run_id, name, checksum, size, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, info.Name, info.Checksum, info.Size, createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording snapshot %s: %w", info.Name, err)
	}
	return nil
}

func (s *SQLiteHistory) ListSnapshots(runID int64) ([]*ff.SnapshotVersion, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, name, checksum, size, created_at FROM snapshots WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*ff.SnapshotVersion
	for rows.Next() {
		var v ff.SnapshotVersion
		if err := rows.Scan(&v.ID, &v.RunID, &v.Name, &v.Checksum, &v.Size, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snaps = append(snaps, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	return snaps, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteHistory) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteHistory) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Migrate applies pending schema migrations.
func (s *SQLiteHistory) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// Close closes the database connection.
func (s *SQLiteHistory) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteHistory implements ff.History interface
var _ ff.History = (*SQLiteHistory)(nil)
