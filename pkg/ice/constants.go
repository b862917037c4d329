package ice

import "errors"

// ErrContractViolation is returned when a caller breaks a physical precondition, such as a
// negative layer height or freezing with a temperature at or above the freezing point.
var ErrContractViolation = errors.New("contract violation")

// Constants holds the physical and empirical parameters used by the column operations and
// the time-step engine. Build it once and share it by pointer; nothing mutates it.
type Constants struct {
	RhoWater         float64 // kg/m³
	LatentHeatFusion float64 // J/kg
	FreezingPoint    float64 // °C

	// Slush formation
	SnowToSlushRatio   float64 // height of slush per height of snow it was made from
	MinSlushChange     float64 // m, smallest water-line excess that triggers slush formation
	CapillaryPull      float64 // m, water drawn above the water line by the snow pack
	SlushWaterFraction float64 // share of slush mass that releases latent heat on freezing

	// Extra thermal resistance between the air and the top layer (m²K/W). Zero gives the
	// classic Stefan solution for bare ice.
	SurfaceResistance float64

	// Snow compaction
	SnowDensityMax          float64 // kg/m³, wet-snow ceiling
	CompactionRate          float64 // 1/s
	CompactionTempFactor    float64 // 1/K
	CompactionDensityFactor float64 // m³/kg
	CompactionDensityOnset  float64 // kg/m³, density below which compaction is not damped
}

// DefaultConstants returns the standard parameter set
func DefaultConstants() Constants {
	return Constants{
		RhoWater:         1000,
		LatentHeatFusion: 333500,
		FreezingPoint:    0,

		SnowToSlushRatio:   0.33,
		MinSlushChange:     0.05,
		CapillaryPull:      0.02,
		SlushWaterFraction: 0.5,

		SurfaceResistance: 0,

		SnowDensityMax:          450,
		CompactionRate:          2.777e-6,
		CompactionTempFactor:    0.04,
		CompactionDensityFactor: 0.021,
		CompactionDensityOnset:  150,
	}
}

// Validate checks that the constants describe a usable parameter set
func (k *Constants) Validate() error {
	switch {
	case k.RhoWater <= 0:
		return errors.New("rho_water must be positive")
	case k.LatentHeatFusion <= 0:
		return errors.New("latent_heat_fusion must be positive")
	case k.SnowToSlushRatio <= 0 || k.SnowToSlushRatio > 1:
		return errors.New("snow_to_slush_ratio must be in (0, 1]")
	case k.SlushWaterFraction <= 0 || k.SlushWaterFraction > 1:
		return errors.New("slush_water_fraction must be in (0, 1]")
	case k.SurfaceResistance < 0:
		return errors.New("surface_resistance must not be negative")
	case k.SnowDensityMax <= 0:
		return errors.New("snow_density_max must be positive")
	}
	return nil
}
