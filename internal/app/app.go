// Package app wires configuration, the ice engine, storage and controllers together.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/chrissnell/lakeice/internal/forcing"
	"github.com/chrissnell/lakeice/internal/log"
	"github.com/chrissnell/lakeice/internal/managers"
	"github.com/chrissnell/lakeice/internal/storage"
	"github.com/chrissnell/lakeice/pkg/config"
	"github.com/chrissnell/lakeice/pkg/energybalance"
	"github.com/chrissnell/lakeice/pkg/ice"
	"github.com/chrissnell/lakeice/pkg/icethickness"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run simulates the configured forcing file, stores the run and then serves the configured
// controllers until a shutdown signal arrives
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	storageManager, err := managers.NewStorageManager(ctx, cfg.Storage, a.logger.Named("storage"))
	if err != nil {
		return err
	}
	defer storageManager.Close()

	if cfg.Simulation.ForcingFile != "" {
		run, err := a.Simulate(cfg)
		if err != nil {
			return err
		}
		if storageManager.Enabled() {
			if err := storageManager.SaveRun(ctx, run); err != nil {
				return fmt.Errorf("failed to save run: %w", err)
			}
			log.Infow("saved run", "id", run.ID, "steps", len(run.Snapshots))
		}
	}

	cm, err := managers.NewControllerManager(ctx, &wg, cfg.Controllers, storageManager, a.logger)
	if err != nil {
		return err
	}
	if cm.Len() == 0 {
		return nil
	}
	if err := cm.StartControllers(); err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}

// Simulate reads the forcing file named in cfg and folds the engine over it
func (a *App) Simulate(cfg *config.ConfigData) (*storage.Run, error) {
	records, err := forcing.ReadFile(cfg.Simulation.ForcingFile, cfg.Simulation.Timestep)
	if err != nil {
		return nil, err
	}
	return a.SimulateForcing(cfg, records)
}

// SimulateForcing runs the engine over records using the site, mode, constants and initial
// column of cfg
func (a *App) SimulateForcing(cfg *config.ConfigData, records []icethickness.Forcing) (*storage.Run, error) {
	k := cfg.IceConstants()
	site := cfg.EnergyBalanceSite()

	var solver *energybalance.Solver
	if cfg.Simulation.Mode == config.ModeEnergyBalance {
		solver = energybalance.NewSolver(site, cfg.EnergyBalanceParams(), a.logger.Named("energybalance"))
	}
	engine, err := icethickness.NewEngine(&k, solver, a.logger.Named("engine"))
	if err != nil {
		return nil, err
	}

	records, err = prepareForcing(cfg.Simulation, records)
	if err != nil {
		return nil, err
	}

	layers, err := cfg.InitialLayers()
	if err != nil {
		return nil, err
	}
	start := cfg.Simulation.StartDate
	if start.IsZero() {
		start = records[0].Date.Add(-seconds(stepLength(records[0], cfg.Simulation.Timestep)))
	}
	initial, err := ice.NewObservedColumn(start, layers, cfg.Simulation.WaterLine, &k)
	if err != nil {
		return nil, fmt.Errorf("invalid initial column: %w", err)
	}

	a.logger.Infow("starting simulation",
		"site", cfg.Site.Name,
		"mode", cfg.Simulation.Mode,
		"start", start.Format(time.DateOnly),
		"steps", len(records))

	results, err := engine.Run(initial, records)
	if err != nil {
		return nil, err
	}

	run := storage.NewRun(cfg.Site.Name, cfg.Simulation.Mode, site, results)
	if n := len(run.Snapshots); n > 0 {
		last := run.Snapshots[n-1]
		a.logger.Infow("simulation complete",
			"end", last.Date.Format(time.DateOnly),
			"ice_thickness", last.IceThickness,
			"snow_thickness", last.SnowThickness,
			"slush_thickness", last.SlushThickness)
	}
	return run, nil
}

// prepareForcing drops records before the start date and matches the records to the mode
func prepareForcing(sim config.SimulationData, records []icethickness.Forcing) ([]icethickness.Forcing, error) {
	out := make([]icethickness.Forcing, 0, len(records))
	for _, r := range records {
		if !sim.StartDate.IsZero() && !r.Date.After(sim.StartDate) {
			continue
		}
		switch sim.Mode {
		case config.ModeAirTemperature:
			r.Weather = nil
		case config.ModeEnergyBalance:
			if r.Weather == nil {
				return nil, fmt.Errorf("forcing for %s has no weather columns, required in %s mode", r.Date.Format(time.DateOnly), sim.Mode)
			}
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, errors.New("no forcing records to simulate")
	}
	return out, nil
}

func stepLength(f icethickness.Forcing, fallback float64) float64 {
	if f.Timestep > 0 {
		return f.Timestep
	}
	if fallback > 0 {
		return fallback
	}
	return icethickness.DefaultTimestep
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
