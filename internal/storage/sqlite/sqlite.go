// Package sqlite implements the run store on a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/lakeice/internal/storage"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	mode TEXT NOT NULL,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	step INTEGER NOT NULL,
	date TEXT NOT NULL,
	surface_temperature REAL NOT NULL,
	ice_thickness REAL NOT NULL,
	snow_thickness REAL NOT NULL,
	slush_thickness REAL NOT NULL,
	total_height REAL NOT NULL,
	water_line REAL NOT NULL,
	draft_thickness REAL NOT NULL,
	leftover_melt_time REAL NOT NULL DEFAULT 0,
	leftover_melt_energy REAL NOT NULL DEFAULT 0,
	layers BLOB NOT NULL,
	balance BLOB,
	PRIMARY KEY (run_id, step)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_date ON snapshots(run_id, date);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Store implements storage.RunStore on SQLite
type Store struct {
	db     *sql.DB
	dbPath string
	logger *zap.SugaredLogger
}

// New opens (and if needed creates) the database at dbPath
func New(ctx context.Context, dbPath string, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Infow("opened SQLite run store", "path", dbPath)
	return &Store{
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}, nil
}

// SaveRun stores run and all of its snapshots in one transaction
func (s *Store) SaveRun(ctx context.Context, run *storage.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, name, mode, latitude, longitude, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.Mode, run.Latitude, run.Longitude, run.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshots (run_id, step, date, surface_temperature, ice_thickness, snow_thickness,
			slush_thickness, total_height, water_line, draft_thickness, leftover_melt_time,
			leftover_melt_energy, layers, balance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for i, snap := range run.Snapshots {
		layers, err := storage.EncodeLayers(snap.Layers)
		if err != nil {
			return err
		}
		balance, err := storage.EncodeBalance(snap.Balance)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, run.ID, i, snap.Date.UTC().Format(time.RFC3339),
			snap.SurfaceTemperature, snap.IceThickness, snap.SnowThickness, snap.SlushThickness,
			snap.TotalHeight, snap.WaterLine, snap.DraftThickness, snap.LeftoverMeltTime,
			snap.LeftoverMeltEnergy, layers, balance)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot %d of run %s: %w", i, run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	s.logger.Debugw("saved run", "id", run.ID, "steps", len(run.Snapshots))
	return nil
}

// GetRun loads a run with all of its snapshots
func (s *Store) GetRun(ctx context.Context, id string) (*storage.Run, error) {
	var (
		run       storage.Run
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, mode, latitude, longitude, created_at FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &run.Name, &run.Mode, &run.Latitude, &run.Longitude, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", id, err)
	}
	run.CreatedAt = time.Unix(0, createdAt).UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, surface_temperature, ice_thickness, snow_thickness, slush_thickness,
			total_height, water_line, draft_thickness, leftover_melt_time, leftover_melt_energy,
			layers, balance
		FROM snapshots WHERE run_id = ? ORDER BY step`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots of run %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			snap            storage.Snapshot
			date            string
			layers, balance []byte
		)
		if err := rows.Scan(&date, &snap.SurfaceTemperature, &snap.IceThickness, &snap.SnowThickness,
			&snap.SlushThickness, &snap.TotalHeight, &snap.WaterLine, &snap.DraftThickness,
			&snap.LeftoverMeltTime, &snap.LeftoverMeltEnergy, &layers, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if snap.Date, err = time.Parse(time.RFC3339, date); err != nil {
			return nil, fmt.Errorf("invalid snapshot date %q: %w", date, err)
		}
		if snap.Layers, err = storage.DecodeLayers(layers); err != nil {
			return nil, err
		}
		if snap.Balance, err = storage.DecodeBalance(balance); err != nil {
			return nil, err
		}
		run.Snapshots = append(run.Snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshots of run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns a summary of every stored run, newest first
func (s *Store) ListRuns(ctx context.Context) ([]storage.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.mode, r.created_at,
			COALESCE(MIN(s.date), ''), COALESCE(MAX(s.date), ''), COUNT(s.step)
		FROM runs r LEFT JOIN snapshots s ON s.run_id = r.id
		GROUP BY r.id
		ORDER BY r.created_at DESC, r.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	summaries := []storage.RunSummary{}
	for rows.Next() {
		var sum storage.RunSummary
		var (
			createdAt  int64
			start, end string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Mode, &createdAt, &start, &end, &sum.Steps); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		sum.CreatedAt = time.Unix(0, createdAt).UTC()
		var err error
		if sum.StartDate, err = parseDate(start); err != nil {
			return nil, fmt.Errorf("invalid start date of run %s: %w", sum.ID, err)
		}
		if sum.EndDate, err = parseDate(end); err != nil {
			return nil, fmt.Errorf("invalid end date of run %s: %w", sum.ID, err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// parseDate reads a snapshot date; runs without snapshots have none
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
