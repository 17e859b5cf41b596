package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/stackup-io/stackup/pkg/engine"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists installed state and run history in a single SQLite
// database. It implements engine.StateStore and engine.RunRecorder, so it
// is a drop-in replacement for the marker-file store with history on top.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance. Call Init before use.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &SQLiteStore{path: cfg.Path}, nil
}

// Init opens the database, enables WAL mode, and runs migrations.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return s.migrate()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// migrate applies the embedded schema migrations.
func (s *SQLiteStore) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// IsInstalled implements engine.StateStore.
func (s *SQLiteStore) IsInstalled(id string) (bool, error) {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(1) FROM installed WHERE component_id = ?`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query installed state: %w", err)
	}
	return exists > 0, nil
}

// MarkInstalled implements engine.StateStore.
func (s *SQLiteStore) MarkInstalled(id string) error {
	_, err := s.db.Exec(
		`INSERT INTO installed (component_id, installed_at) VALUES (?, ?)
		 ON CONFLICT(component_id) DO UPDATE SET installed_at = excluded.installed_at`,
		id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark %s installed: %w", id, err)
	}
	return nil
}

// ClearInstalled implements engine.StateStore.
func (s *SQLiteStore) ClearInstalled(id string) error {
	if _, err := s.db.Exec(`DELETE FROM installed WHERE component_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear installed state for %s: %w", id, err)
	}
	return nil
}

// RecordRun implements engine.RunRecorder: the run row plus one row per
// component outcome, in a single transaction.
func (s *SQLiteStore) RecordRun(ctx context.Context, report *engine.RunReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	installed, skipped, failed, pending := report.Counts()
	completedAt := report.CompletedAt
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, completed_at, failed_component,
			total, installed, skipped, failed, pending)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.StartedAt.UTC(),
		completedAt.UTC(),
		nullString(report.Failed),
		len(report.Results),
		installed, skipped, failed, pending,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, res := range report.Results {
		var errMsg *string
		if res.Err != nil {
			msg := res.Err.Error()
			errMsg = &msg
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_components (run_id, position, component_id, status, duration_ms, error)
			VALUES (?, ?, ?, ?, ?, ?)`,
			report.RunID, i, res.ComponentID, string(res.Status),
			res.Duration.Milliseconds(), errMsg,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run component: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run record: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	run := &RunRecord{}
	var failedComponent sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, completed_at, failed_component,
			total, installed, skipped, failed, pending
		FROM runs WHERE id = ?`, id).Scan(
		&run.ID, &run.StartedAt, &run.CompletedAt, &failedComponent,
		&run.Total, &run.Installed, &run.Skipped, &run.Failed, &run.Pending,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.FailedComponent = failedComponent.String
	return run, nil
}

// ListRuns lists runs newest first with pagination.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, completed_at, failed_component,
			total, installed, skipped, failed, pending
		FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*RunRecord{}
	for rows.Next() {
		run := &RunRecord{}
		var failedComponent sql.NullString
		if err := rows.Scan(
			&run.ID, &run.StartedAt, &run.CompletedAt, &failedComponent,
			&run.Total, &run.Installed, &run.Skipped, &run.Failed, &run.Pending,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.FailedComponent = failedComponent.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListRunComponents lists per-component outcomes for a run in plan order.
func (s *SQLiteStore) ListRunComponents(ctx context.Context, runID string) ([]*RunComponentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, position, component_id, status, duration_ms, error
		FROM run_components WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run components: %w", err)
	}
	defer rows.Close()

	records := []*RunComponentRecord{}
	for rows.Next() {
		rec := &RunComponentRecord{}
		var durationMs int64
		var errMsg sql.NullString
		if err := rows.Scan(
			&rec.RunID, &rec.Position, &rec.ComponentID, &rec.Status,
			&durationMs, &errMsg,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run component: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.Error = errMsg.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// AppendEvent appends an entry to the event log.
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (run_id, component_id, level, message, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		nullString(event.RunID), nullString(event.ComponentID),
		string(event.Level), event.Message, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// ListEvents lists events for a run, oldest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, runID string, limit int) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, component_id, level, message, timestamp
		FROM events WHERE run_id = ? ORDER BY id LIMIT ?`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		ev := &Event{}
		var runID, componentID sql.NullString
		if err := rows.Scan(&ev.ID, &runID, &componentID, &ev.Level, &ev.Message, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.RunID = runID.String
		ev.ComponentID = componentID.String
		events = append(events, ev)
	}
	return events, rows.Err()
}

// HealthCheck verifies the database connection is alive.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
