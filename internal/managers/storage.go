package managers

import (
	"context"
	"errors"
	"fmt"

	"github.com/chrissnell/lakeice/internal/storage"
	"github.com/chrissnell/lakeice/internal/storage/sqlite"
	"github.com/chrissnell/lakeice/internal/storage/timescaledb"
	"github.com/chrissnell/lakeice/pkg/config"
	"go.uber.org/zap"
)

// StorageManager holds our active storage backends. Runs are written to every backend and
// read from the first one configured.
type StorageManager struct {
	Engines []StorageEngine
	logger  *zap.SugaredLogger
}

// StorageEngine holds a backend run store and its name
type StorageEngine struct {
	Name   string
	Engine storage.RunStore
}

// NewStorageManager creates a StorageManager object, populated with all configured StorageEngines
func NewStorageManager(ctx context.Context, c config.StorageData, logger *zap.SugaredLogger) (*StorageManager, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &StorageManager{logger: logger}

	// Check the configuration for the supported storage backends and enable them if found
	if c.SQLite != nil && c.SQLite.Path != "" {
		if err := s.AddEngine(ctx, "sqlite", c); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add SQLite storage backend: %w", err)
		}
	}

	if c.TimescaleDB != nil && c.TimescaleDB.ConnectionString != "" {
		if err := s.AddEngine(ctx, "timescaledb", c); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add TimescaleDB storage backend: %w", err)
		}
	}

	return s, nil
}

// AddEngine adds a new StorageEngine of name engineName
func (s *StorageManager) AddEngine(ctx context.Context, engineName string, c config.StorageData) error {
	var (
		engine storage.RunStore
		err    error
	)

	switch engineName {
	case "sqlite":
		engine, err = sqlite.New(ctx, c.SQLite.Path, s.logger.Named("sqlite"))
	case "timescaledb":
		engine, err = timescaledb.New(ctx, c.TimescaleDB.ConnectionString, s.logger.Named("timescaledb"))
	default:
		return fmt.Errorf("unknown storage backend %q", engineName)
	}
	if err != nil {
		return err
	}

	s.Engines = append(s.Engines, StorageEngine{Name: engineName, Engine: engine})
	s.logger.Infof("enabled %s run store", engineName)
	return nil
}

// Enabled reports whether any backend is configured
func (s *StorageManager) Enabled() bool {
	return len(s.Engines) > 0
}

// SaveRun writes run to every backend
func (s *StorageManager) SaveRun(ctx context.Context, run *storage.Run) error {
	var errs []error
	for _, e := range s.Engines {
		if err := e.Engine.SaveRun(ctx, run); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}
	return errors.Join(errs...)
}

// GetRun reads a run from the primary backend
func (s *StorageManager) GetRun(ctx context.Context, id string) (*storage.Run, error) {
	if !s.Enabled() {
		return nil, storage.ErrRunNotFound
	}
	return s.Engines[0].Engine.GetRun(ctx, id)
}

// ListRuns lists the runs of the primary backend
func (s *StorageManager) ListRuns(ctx context.Context) ([]storage.RunSummary, error) {
	if !s.Enabled() {
		return nil, nil
	}
	return s.Engines[0].Engine.ListRuns(ctx)
}

// Close closes every backend
func (s *StorageManager) Close() error {
	var errs []error
	for _, e := range s.Engines {
		if err := e.Engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}
	return errors.Join(errs...)
}
