package icethickness

import (
	"fmt"
	"time"

	"github.com/chrissnell/lakeice/pkg/energybalance"
	"github.com/chrissnell/lakeice/pkg/ice"
)

// Forcing is the atmospheric input for one step. When Weather is set the step runs in
// energy-balance mode, otherwise Temperature drives the simple mode.
type Forcing struct {
	Date        time.Time
	Timestep    float64 // s, zero means DefaultTimestep
	Temperature float64 // °C
	NewSnow     float64 // m
	Weather     *energybalance.Weather
}

// Run folds the engine over a date-ordered forcing series starting from initial and returns
// one result per step. On failure the results produced so far are returned with the error.
func (e *Engine) Run(initial *ice.Column, forcing []Forcing) ([]*StepResult, error) {
	results := make([]*StepResult, 0, len(forcing))
	col := initial
	snowAge := 0.0

	for i, f := range forcing {
		if i > 0 && !f.Date.After(forcing[i-1].Date) {
			return results, fmt.Errorf("forcing out of order at %s", f.Date.Format(time.DateOnly))
		}

		dt := f.Timestep
		if dt == 0 {
			dt = DefaultTimestep
		}

		var (
			res *StepResult
			err error
		)
		if f.Weather != nil {
			w := *f.Weather
			if w.Date.IsZero() {
				w.Date = f.Date
			}
			if f.NewSnow > 0 || w.SnowPrecipitation > 0 {
				snowAge = 0
			}
			w.SnowAge = snowAge
			res, err = e.StepEnergyBalance(col, dt, f.NewSnow, w)
		} else {
			if f.NewSnow > 0 {
				snowAge = 0
			}
			res, err = e.StepAirTemperature(col, dt, f.NewSnow, f.Temperature)
		}
		if err != nil {
			return results, fmt.Errorf("step %d (%s) failed: %w", i, f.Date.Format(time.DateOnly), err)
		}

		if res.LeftoverMeltTime > 0 || res.LeftoverMeltEnergy > 0 {
			e.logger.Infow("ice cover melted out",
				"date", res.Column.Date,
				"leftover_melt_time", res.LeftoverMeltTime,
				"leftover_melt_energy", res.LeftoverMeltEnergy)
		}

		snowAge += dt / DefaultTimestep
		results = append(results, res)
		col = res.Column
	}
	return results, nil
}
