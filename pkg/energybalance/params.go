package energybalance

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/chrissnell/lakeice/pkg/ice"
)

// Site locates the lake for solar geometry
type Site struct {
	Latitude  float64
	Longitude float64
	Altitude  float64 // m above sea level
}

// Weather is the atmospheric forcing for one timestep
type Weather struct {
	Date              time.Time
	Timestep          float64 // s
	AirTemperature    float64 // °C
	CloudCover        float64 // 0..1
	WindSpeed         float64 // m/s
	RelativeHumidity  float64 // 0..1
	Pressure          float64 // hPa
	Rain              float64 // m of liquid precipitation during the step
	SnowPrecipitation float64 // m water equivalent of snowfall during the step
	SnowAge           float64 // days since the last snowfall
}

// Validate checks that every field is finite and inside its physical range. Failures wrap
// ice.ErrContractViolation.
func (w *Weather) Validate() error {
	switch {
	case !isFinite(w.AirTemperature):
		return fmt.Errorf("%w: air temperature %g is not finite", ice.ErrContractViolation, w.AirTemperature)
	case !inRange(w.CloudCover, 0, 1):
		return fmt.Errorf("%w: cloud cover %g outside [0, 1]", ice.ErrContractViolation, w.CloudCover)
	case !inRange(w.RelativeHumidity, 0, 1):
		return fmt.Errorf("%w: relative humidity %g outside [0, 1]", ice.ErrContractViolation, w.RelativeHumidity)
	case !inRange(w.WindSpeed, 0, math.MaxFloat64):
		return fmt.Errorf("%w: wind speed %g m/s must be finite and non-negative", ice.ErrContractViolation, w.WindSpeed)
	case !isFinite(w.Pressure) || w.Pressure <= 0:
		return fmt.Errorf("%w: pressure %g hPa must be finite and positive", ice.ErrContractViolation, w.Pressure)
	case !inRange(w.Rain, 0, math.MaxFloat64):
		return fmt.Errorf("%w: rain %g m must be finite and non-negative", ice.ErrContractViolation, w.Rain)
	case !inRange(w.SnowPrecipitation, 0, math.MaxFloat64):
		return fmt.Errorf("%w: snow precipitation %g m must be finite and non-negative", ice.ErrContractViolation, w.SnowPrecipitation)
	case !inRange(w.SnowAge, 0, math.MaxFloat64):
		return fmt.Errorf("%w: snow age %g days must be finite and non-negative", ice.ErrContractViolation, w.SnowAge)
	case !inRange(w.Timestep, 0, math.MaxFloat64):
		return fmt.Errorf("%w: timestep %g s must be finite and non-negative", ice.ErrContractViolation, w.Timestep)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// inRange is false for NaN
func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// Params holds the energy-balance parameters and root search settings
type Params struct {
	SolarConstant                  float64 // W/m²
	ClearSkyTransmissivity         float64
	TransmissivityAltitudeGradient float64 // 1/m
	SurfaceEmissivity              float64

	ReferenceHeight        float64 // m, height of the wind and temperature measurements
	VonKarman              float64
	AirHeatCapacity        float64 // J/kg/K
	GasConstantDryAir      float64 // J/kg/K
	LatentHeatSublimation  float64 // J/kg
	LatentHeatVaporization float64 // J/kg
	WaterHeatCapacity      float64 // J/kg/K
	IceHeatCapacity        float64 // J/kg/K
	RhoWater               float64 // kg/m³

	GroundHeatFlux float64 // W/m², toward the surface

	// Snow albedo decays from the fresh-snow value toward a floor with an e-folding time in days
	AlbedoMinDry   float64
	AlbedoMinWet   float64
	AlbedoDecayDry float64
	AlbedoDecayWet float64

	LowerBound    float64 // °C
	Tolerance     float64 // °C
	MaxIterations int
}

// DefaultParams returns the standard parameter set
func DefaultParams() Params {
	return Params{
		SolarConstant:                  1367,
		ClearSkyTransmissivity:         0.75,
		TransmissivityAltitudeGradient: 2e-5,
		SurfaceEmissivity:              0.97,

		ReferenceHeight:        2,
		VonKarman:              0.41,
		AirHeatCapacity:        1005,
		GasConstantDryAir:      287.05,
		LatentHeatSublimation:  2.834e6,
		LatentHeatVaporization: 2.501e6,
		WaterHeatCapacity:      4186,
		IceHeatCapacity:        2108,
		RhoWater:               1000,

		GroundHeatFlux: 2,

		AlbedoMinDry:   0.70,
		AlbedoMinWet:   0.50,
		AlbedoDecayDry: 24,
		AlbedoDecayWet: 6,

		LowerBound:    -60,
		Tolerance:     1e-4,
		MaxIterations: 100,
	}
}

// Validate checks the root search settings
func (p *Params) Validate() error {
	switch {
	case p.LowerBound >= 0:
		return errors.New("lower_bound must be below 0 °C")
	case p.Tolerance <= 0:
		return errors.New("tolerance must be positive")
	case p.MaxIterations < 1:
		return errors.New("max_iterations must be at least 1")
	case p.AlbedoDecayDry <= 0 || p.AlbedoDecayWet <= 0:
		return errors.New("albedo decay times must be positive")
	}
	return nil
}
