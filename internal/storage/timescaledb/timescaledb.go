// Package timescaledb implements the run store on PostgreSQL through GORM. When the
// TimescaleDB extension is available the snapshot table becomes a hypertable.
package timescaledb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/lakeice/internal/log"
	"github.com/chrissnell/lakeice/internal/storage"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE;`

const createHypertableSQL = `SELECT create_hypertable('ice_snapshots', 'date', if_not_exists => TRUE, migrate_data => TRUE);`

// RunModel is a row of ice_runs
type RunModel struct {
	ID        string    `gorm:"primaryKey;column:id"`
	Name      string    `gorm:"column:name;not null"`
	Mode      string    `gorm:"column:mode;not null"`
	Latitude  float64   `gorm:"column:latitude"`
	Longitude float64   `gorm:"column:longitude"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName specifies the table name for RunModel
func (RunModel) TableName() string {
	return "ice_runs"
}

// SnapshotModel is a row of ice_snapshots
type SnapshotModel struct {
	RunID              string    `gorm:"primaryKey;column:run_id"`
	Date               time.Time `gorm:"primaryKey;column:date"`
	Step               int       `gorm:"column:step;not null"`
	SurfaceTemperature float64   `gorm:"column:surface_temperature"`
	IceThickness       float64   `gorm:"column:ice_thickness"`
	SnowThickness      float64   `gorm:"column:snow_thickness"`
	SlushThickness     float64   `gorm:"column:slush_thickness"`
	TotalHeight        float64   `gorm:"column:total_height"`
	WaterLine          float64   `gorm:"column:water_line"`
	DraftThickness     float64   `gorm:"column:draft_thickness"`
	LeftoverMeltTime   float64   `gorm:"column:leftover_melt_time"`
	LeftoverMeltEnergy float64   `gorm:"column:leftover_melt_energy"`
	Layers             []byte    `gorm:"column:layers;type:bytea"`
	Balance            []byte    `gorm:"column:balance;type:bytea"`
}

// TableName specifies the table name for SnapshotModel
func (SnapshotModel) TableName() string {
	return "ice_snapshots"
}

// Store implements storage.RunStore on PostgreSQL/TimescaleDB
type Store struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// New connects to the database and migrates the schema
func New(ctx context.Context, connectionString string, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db, err := CreateConnection(connectionString)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, logger: logger}

	logger.Info("migrating run store schema...")
	if err := db.WithContext(ctx).AutoMigrate(&RunModel{}, &SnapshotModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Plain PostgreSQL works too, the snapshots just stay a regular table
	if err := db.WithContext(ctx).Exec(createExtensionSQL).Error; err != nil {
		logger.Warnw("TimescaleDB extension unavailable, using a plain table", "error", err)
		return s, nil
	}
	if err := db.WithContext(ctx).Exec(createHypertableSQL).Error; err != nil {
		logger.Warnw("could not create snapshot hypertable", "error", err)
	}
	return s, nil
}

// CreateConnection opens a GORM connection that logs through zap
func CreateConnection(connectionString string) (*gorm.DB, error) {
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("unable to create a TimescaleDB connection: %w", err)
	}
	return db, nil
}

// SaveRun stores run and all of its snapshots in one transaction
func (s *Store) SaveRun(ctx context.Context, run *storage.Run) error {
	runRow, snapshotRows, err := toModels(run)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&runRow).Error; err != nil {
			return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
		}
		if len(snapshotRows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(snapshotRows, 500).Error; err != nil {
			return fmt.Errorf("failed to insert snapshots of run %s: %w", run.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debugw("saved run", "id", run.ID, "steps", len(run.Snapshots))
	return nil
}

// GetRun loads a run with all of its snapshots
func (s *Store) GetRun(ctx context.Context, id string) (*storage.Run, error) {
	var runRow RunModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&runRow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", id, err)
	}

	var snapshotRows []SnapshotModel
	if err := s.db.WithContext(ctx).Where("run_id = ?", id).Order("step").Find(&snapshotRows).Error; err != nil {
		return nil, fmt.Errorf("failed to query snapshots of run %s: %w", id, err)
	}
	return fromModels(runRow, snapshotRows)
}

type runSummaryRow struct {
	ID        string
	Name      string
	Mode      string
	CreatedAt time.Time
	StartDate *time.Time
	EndDate   *time.Time
	Steps     int
}

// ListRuns returns a summary of every stored run, newest first
func (s *Store) ListRuns(ctx context.Context) ([]storage.RunSummary, error) {
	var rows []runSummaryRow
	err := s.db.WithContext(ctx).
		Table("ice_runs AS r").
		Select("r.id, r.name, r.mode, r.created_at, MIN(s.date) AS start_date, MAX(s.date) AS end_date, COUNT(s.step) AS steps").
		Joins("LEFT JOIN ice_snapshots AS s ON s.run_id = r.id").
		Group("r.id").
		Order("r.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	summaries := make([]storage.RunSummary, 0, len(rows))
	for _, r := range rows {
		sum := storage.RunSummary{
			ID:        r.ID,
			Name:      r.Name,
			Mode:      r.Mode,
			CreatedAt: r.CreatedAt,
			Steps:     r.Steps,
		}
		if r.StartDate != nil {
			sum.StartDate = r.StartDate.UTC()
		}
		if r.EndDate != nil {
			sum.EndDate = r.EndDate.UTC()
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toModels(run *storage.Run) (RunModel, []SnapshotModel, error) {
	runRow := RunModel{
		ID:        run.ID,
		Name:      run.Name,
		Mode:      run.Mode,
		Latitude:  run.Latitude,
		Longitude: run.Longitude,
		CreatedAt: run.CreatedAt,
	}

	rows := make([]SnapshotModel, 0, len(run.Snapshots))
	for i, snap := range run.Snapshots {
		layers, err := storage.EncodeLayers(snap.Layers)
		if err != nil {
			return RunModel{}, nil, err
		}
		balance, err := storage.EncodeBalance(snap.Balance)
		if err != nil {
			return RunModel{}, nil, err
		}
		rows = append(rows, SnapshotModel{
			RunID:              run.ID,
			Date:               snap.Date,
			Step:               i,
			SurfaceTemperature: snap.SurfaceTemperature,
			IceThickness:       snap.IceThickness,
			SnowThickness:      snap.SnowThickness,
			SlushThickness:     snap.SlushThickness,
			TotalHeight:        snap.TotalHeight,
			WaterLine:          snap.WaterLine,
			DraftThickness:     snap.DraftThickness,
			LeftoverMeltTime:   snap.LeftoverMeltTime,
			LeftoverMeltEnergy: snap.LeftoverMeltEnergy,
			Layers:             layers,
			Balance:            balance,
		})
	}
	return runRow, rows, nil
}

func fromModels(runRow RunModel, rows []SnapshotModel) (*storage.Run, error) {
	run := &storage.Run{
		ID:        runRow.ID,
		Name:      runRow.Name,
		Mode:      runRow.Mode,
		Latitude:  runRow.Latitude,
		Longitude: runRow.Longitude,
		CreatedAt: runRow.CreatedAt.UTC(),
		Snapshots: make([]storage.Snapshot, 0, len(rows)),
	}
	for _, row := range rows {
		layers, err := storage.DecodeLayers(row.Layers)
		if err != nil {
			return nil, err
		}
		balance, err := storage.DecodeBalance(row.Balance)
		if err != nil {
			return nil, err
		}
		run.Snapshots = append(run.Snapshots, storage.Snapshot{
			Date:               row.Date.UTC(),
			SurfaceTemperature: row.SurfaceTemperature,
			IceThickness:       row.IceThickness,
			SnowThickness:      row.SnowThickness,
			SlushThickness:     row.SlushThickness,
			TotalHeight:        row.TotalHeight,
			WaterLine:          row.WaterLine,
			DraftThickness:     row.DraftThickness,
			LeftoverMeltTime:   row.LeftoverMeltTime,
			LeftoverMeltEnergy: row.LeftoverMeltEnergy,
			Layers:             layers,
			Balance:            balance,
		})
	}
	return run, nil
}
