// Package icethickness advances an ice column through time. Each step adds new snow, lets the
// column find its buoyant level, then freezes or melts, and finally compacts snow and refreshes
// the derived state. Two driving modes are offered: a simple one fed by air temperature and an
// energy-balance one fed by surface temperature and melt energy.
package icethickness

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/chrissnell/lakeice/pkg/energybalance"
	"github.com/chrissnell/lakeice/pkg/ice"
	"go.uber.org/zap"
)

// DefaultTimestep is one day in seconds
const DefaultTimestep = 86400.0

// Mode names how a step was driven
type Mode string

const (
	ModeAirTemperature Mode = "air"
	ModeEnergyBalance  Mode = "energybalance"
)

// StepResult is the outcome of one step
type StepResult struct {
	Column             *ice.Column           `json:"column"`
	Mode               Mode                  `json:"mode"`
	SurfaceTemperature float64               `json:"surface_temperature"`
	LeftoverMeltTime   float64               `json:"leftover_melt_time,omitempty"`   // s of melting left when the column emptied
	LeftoverMeltEnergy float64               `json:"leftover_melt_energy,omitempty"` // J/m² left when the column emptied
	Balance            *energybalance.Result `json:"balance,omitempty"`
}

// Engine runs the freeze/melt state machine
type Engine struct {
	k      *ice.Constants
	solver *energybalance.Solver
	logger *zap.SugaredLogger
}

// NewEngine creates an Engine. solver may be nil when only the air-temperature mode is used;
// a nil logger discards output.
func NewEngine(k *ice.Constants, solver *energybalance.Solver, logger *zap.SugaredLogger) (*Engine, error) {
	if k == nil {
		return nil, errors.New("constants are required")
	}
	if err := k.Validate(); err != nil {
		return nil, fmt.Errorf("invalid constants: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{
		k:      k,
		solver: solver,
		logger: logger,
	}, nil
}

// Constants returns the parameter set the engine was built with
func (e *Engine) Constants() *ice.Constants {
	return e.k
}

// StepAirTemperature advances col by dt seconds driven by the air temperature alone. Below
// freezing the column grows ice; otherwise the top melts by the degree-day law. col is not
// modified.
func (e *Engine) StepAirTemperature(col *ice.Column, dt, newSnow, temp float64) (*StepResult, error) {
	if err := checkFinite("air temperature", temp); err != nil {
		return nil, err
	}
	next, err := e.begin(col, dt, newSnow)
	if err != nil {
		return nil, err
	}

	res := &StepResult{
		Column:             next,
		Mode:               ModeAirTemperature,
		SurfaceTemperature: math.Min(temp, e.k.FreezingPoint),
	}

	if temp < e.k.FreezingPoint {
		if err := e.Freeze(next, dt, temp); err != nil {
			return nil, err
		}
	} else {
		res.LeftoverMeltTime = e.MeltDegreeDay(next, dt, temp)
	}

	if err := e.finish(next, dt, temp, res.SurfaceTemperature); err != nil {
		return nil, err
	}
	return res, nil
}

// StepMeltEnergy advances col by dt seconds given a surface temperature and the melt energy
// (J/m²) available over the step, as produced by the energy-balance solver. A surface
// temperature above freezing is a contract violation.
func (e *Engine) StepMeltEnergy(col *ice.Column, dt, newSnow, surfaceTemp, meltEnergy float64) (*StepResult, error) {
	if err := e.checkEnergyInputs(surfaceTemp, meltEnergy); err != nil {
		return nil, err
	}
	next, err := e.begin(col, dt, newSnow)
	if err != nil {
		return nil, err
	}
	return e.energyStep(next, dt, surfaceTemp, meltEnergy)
}

// StepEnergyBalance solves the surface energy balance for w over the column (after new snow has
// been added) and advances it with the resulting surface temperature and melt energy.
func (e *Engine) StepEnergyBalance(col *ice.Column, dt, newSnow float64, w energybalance.Weather) (*StepResult, error) {
	if e.solver == nil {
		return nil, errors.New("energy balance mode requires a solver")
	}
	next, err := e.begin(col, dt, newSnow)
	if err != nil {
		return nil, err
	}

	w.Timestep = dt
	balance, err := e.solver.Solve(w, next)
	if err != nil {
		return nil, fmt.Errorf("energy balance for %s: %w", next.Date.Format(time.DateOnly), err)
	}
	if !balance.Converged {
		e.logger.Warnw("using unconverged energy balance estimate",
			"date", next.Date, "surface_temperature", balance.SurfaceTemperature, "iterations", balance.Iterations)
	}
	if err := e.checkEnergyInputs(balance.SurfaceTemperature, balance.MeltEnergy); err != nil {
		return nil, err
	}

	res, err := e.energyStep(next, dt, balance.SurfaceTemperature, balance.MeltEnergy)
	if err != nil {
		return nil, err
	}
	res.Balance = &balance
	return res, nil
}

func (e *Engine) checkEnergyInputs(surfaceTemp, meltEnergy float64) error {
	if err := checkFinite("surface temperature", surfaceTemp); err != nil {
		return err
	}
	if err := checkFinite("melt energy", meltEnergy); err != nil {
		return err
	}
	if surfaceTemp > e.k.FreezingPoint {
		return fmt.Errorf("%w: surface temperature %g °C above freezing in energy balance mode",
			ice.ErrContractViolation, surfaceTemp)
	}
	if meltEnergy < 0 {
		return fmt.Errorf("%w: negative melt energy %g J/m²", ice.ErrContractViolation, meltEnergy)
	}
	return nil
}

func (e *Engine) energyStep(next *ice.Column, dt, surfaceTemp, meltEnergy float64) (*StepResult, error) {
	res := &StepResult{
		Column:             next,
		Mode:               ModeEnergyBalance,
		SurfaceTemperature: surfaceTemp,
	}

	if surfaceTemp < e.k.FreezingPoint {
		if err := e.Freeze(next, dt, surfaceTemp); err != nil {
			return nil, err
		}
	}
	if meltEnergy > 0 {
		res.LeftoverMeltEnergy = e.MeltEnergy(next, meltEnergy)
	}

	if err := e.finish(next, dt, surfaceTemp, surfaceTemp); err != nil {
		return nil, err
	}
	return res, nil
}

// begin clones col, advances its date and adds the new snow
func (e *Engine) begin(col *ice.Column, dt, newSnow float64) (*ice.Column, error) {
	if col == nil {
		return nil, errors.New("column is required")
	}
	if err := checkFinite("timestep", dt); err != nil {
		return nil, err
	}
	if err := checkFinite("new snow", newSnow); err != nil {
		return nil, err
	}
	if dt <= 0 {
		return nil, fmt.Errorf("%w: timestep must be positive, got %g s", ice.ErrContractViolation, dt)
	}
	if newSnow < 0 {
		return nil, fmt.Errorf("%w: negative new snow %g m", ice.ErrContractViolation, newSnow)
	}
	if err := col.Validate(); err != nil {
		return nil, err
	}

	next := col.Clone()
	next.Date = next.Date.Add(time.Duration(dt * float64(time.Second)))
	next.MergeAndRemoveExcessLayers()

	if newSnow > 0 && !next.IsEmpty() {
		next.InsertLayer(0, ice.MustLayer(ice.NewSnow, newSnow))
		next.MergeAndRemoveExcessLayers()
		next.UpdateSlushLevel(e.k)
	}
	return next, nil
}

// finish runs the post-processing shared by both modes
func (e *Engine) finish(next *ice.Column, dt, compactionTemp, surfaceTemp float64) error {
	next.MergeAndRemoveExcessLayers()
	next.CompactSnow(e.k, dt, compactionTemp)
	// compaction ages new_snow into snow, which may now match the layer below
	next.MergeAndRemoveExcessLayers()
	next.UpdateDerived(e.k)
	delete(next.Metadata, "water_line_observed")

	if err := next.UpdateTemperatures(surfaceTemp); err != nil {
		return fmt.Errorf("failed to update temperature profile for %s: %w", next.Date.Format(time.DateOnly), err)
	}
	next.SurfaceTemperature = &surfaceTemp

	e.logger.Debugw("step complete",
		"date", next.Date,
		"layers", len(next.Layers),
		"ice", next.IceThickness(),
		"snow", next.SnowThickness(),
		"slush", next.SlushThickness(),
		"surface_temperature", surfaceTemp)
	return nil
}

// checkFinite rejects NaN and infinite inputs
func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s %g is not finite", ice.ErrContractViolation, name, v)
	}
	return nil
}
