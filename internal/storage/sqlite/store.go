// Package sqlite is the durable run store: travel snapshots, per-scenario
// results, damage records and ranked summaries, in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/transportresilience/rdr/internal/travel"
	"github.com/transportresilience/rdr/internal/types"
	"github.com/transportresilience/rdr/pkg/migrate"
	"github.com/transportresilience/rdr/pkg/responseformat"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationTable tracks applied store migrations
const MigrationTable = "schema_migrations"

// Migrations returns the embedded migration files
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Store is a SQLite-backed run store. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.SugaredLogger
}

// Open opens (creating if needed) the store at path and migrates it to the
// latest schema.
func Open(path string, logger *zap.SugaredLogger) (*Store, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	m := migrate.NewMigrator(db, migrate.NewFSProvider(Migrations(), MigrationTable), logger)
	if err := m.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate store %s: %w", path, err)
	}

	return &Store{db: db, path: path, logger: logger}, nil
}

// OpenDB opens the SQLite file without migrating it
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// One connection serializes writers and keeps the pragmas below in effect
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return db, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the file the store lives in
func (s *Store) Path() string {
	return s.path
}

// GetSnapshot returns a stored travel snapshot
func (s *Store) GetSnapshot(ctx context.Context, key types.SnapshotKey, yt types.YearType) (types.Snapshot, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM snapshots
		WHERE economic = ? AND project_group = ? AND project = ? AND elasticity = ?
		  AND hazard = ? AND recovery_stage = ? AND year_type = ?`,
		key.Economic, key.ProjectGroup, key.Project, key.Elasticity, key.HazardEvent, key.RecoveryStage, string(yt),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Snapshot{}, travel.NotFound(key, yt)
	}
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("failed to query snapshot %s: %w", key, err)
	}

	modes := make(map[types.Mode]types.ModeMetrics)
	if err := responseformat.UnmarshalMsgpack(payload, &modes); err != nil {
		return types.Snapshot{}, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}
	return types.Snapshot{Key: key, YearType: yt, Modes: modes}, nil
}

// PutSnapshot stores a snapshot. An existing snapshot for the same key is
// kept: snapshots are never recomputed.
func (s *Store) PutSnapshot(ctx context.Context, snap types.Snapshot) error {
	return putSnapshot(ctx, s.db, snap)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func putSnapshot(ctx context.Context, db execer, snap types.Snapshot) error {
	payload, err := responseformat.MarshalMsgpack(snap.Modes)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", snap.Key, err)
	}
	k := snap.Key
	_, err = db.ExecContext(ctx, `
		INSERT OR IGNORE INTO snapshots
			(economic, project_group, project, elasticity, hazard, recovery_stage, year_type, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		k.Economic, k.ProjectGroup, k.Project, k.Elasticity, k.HazardEvent, k.RecoveryStage, string(snap.YearType), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", k, err)
	}
	return nil
}

// ImportSnapshots stores a batch of snapshots in one transaction and
// returns how many were new.
func (s *Store) ImportSnapshots(ctx context.Context, snaps []types.Snapshot) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var before int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&before); err != nil {
		return 0, err
	}
	for _, snap := range snaps {
		if err := putSnapshot(ctx, tx, snap); err != nil {
			return 0, err
		}
	}
	var after int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&after); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit snapshot import: %w", err)
	}
	return after - before, nil
}

// CountSnapshots returns the number of stored snapshots
func (s *Store) CountSnapshots(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&n)
	return n, err
}

// BeginRun registers a run, or marks an existing run with the same id as
// running again. It reports whether the run already existed.
func (s *Store) BeginRun(ctx context.Context, run types.Run) (bool, error) {
	var existing int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE id = ?", run.ID).Scan(&existing); err != nil {
		return false, fmt.Errorf("failed to look up run %s: %w", run.ID, err)
	}

	if existing > 0 {
		_, err := s.db.ExecContext(ctx, "UPDATE runs SET status = ?, scenarios = ?, finished_at = NULL WHERE id = ?",
			types.RunRunning, run.Scenarios, run.ID)
		if err != nil {
			return true, fmt.Errorf("failed to resume run %s: %w", run.ID, err)
		}
		return true, nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, fingerprint, tables_digest, analysis_type, status, scenarios, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Fingerprint, run.TablesDigest, run.AnalysisType, types.RunRunning, run.Scenarios, run.StartedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create run %s: %w", run.ID, err)
	}
	return false, nil
}

// FinishRun records the final status and diagnostics of a run
func (s *Store) FinishRun(ctx context.Context, id, status string, diag types.Diagnostics) error {
	payload, err := responseformat.MarshalMsgpack(diag)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, "UPDATE runs SET status = ?, diagnostics = ?, finished_at = ? WHERE id = ?",
		status, payload, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", id, err)
	}
	return nil
}

const runColumns = "id, fingerprint, tables_digest, analysis_type, status, scenarios, diagnostics, started_at, finished_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (types.Run, error) {
	var run types.Run
	var diag []byte
	var finished sql.NullTime
	if err := row.Scan(&run.ID, &run.Fingerprint, &run.TablesDigest, &run.AnalysisType, &run.Status,
		&run.Scenarios, &diag, &run.StartedAt, &finished); err != nil {
		return run, err
	}
	if len(diag) > 0 {
		if err := responseformat.UnmarshalMsgpack(diag, &run.Diagnostics); err != nil {
			return run, fmt.Errorf("failed to decode diagnostics of run %s: %w", run.ID, err)
		}
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}

// ErrRunNotFound is returned for unknown run ids
var ErrRunNotFound = errors.New("run not found")

// Run returns one run
func (s *Store) Run(ctx context.Context, id string) (types.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// Runs lists every run, newest first
func (s *Store) Runs(ctx context.Context) ([]types.Run, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY started_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []types.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
