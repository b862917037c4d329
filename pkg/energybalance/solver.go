// Package energybalance finds the surface temperature of an ice cover from the surface
// energy balance, capped at the melting point, and reports any surplus as melt energy.
package energybalance

import (
	"math"

	"github.com/chrissnell/lakeice/pkg/ice"
	"go.uber.org/zap"
)

// Fluxes are the energy-balance terms in W/m², positive toward the surface
type Fluxes struct {
	ShortwaveIn   float64 `json:"shortwave_in"`
	ShortwaveOut  float64 `json:"shortwave_out"`
	LongwaveIn    float64 `json:"longwave_in"`
	LongwaveOut   float64 `json:"longwave_out"`
	Sensible      float64 `json:"sensible"`
	Latent        float64 `json:"latent"`
	Ground        float64 `json:"ground"`
	Precipitation float64 `json:"precipitation"`
	Conduction    float64 `json:"conduction"`
}

// Total is the net energy flux into the surface
func (f Fluxes) Total() float64 {
	return f.ShortwaveIn - f.ShortwaveOut + f.LongwaveIn - f.LongwaveOut +
		f.Sensible + f.Latent + f.Ground + f.Precipitation + f.Conduction
}

// Result is the outcome of one energy-balance solve
type Result struct {
	SurfaceTemperature float64 `json:"surface_temperature"` // °C, never above 0
	MeltEnergy         float64 `json:"melt_energy"`         // J/m² available for melting over the step
	Albedo             float64 `json:"albedo"`
	Fluxes             Fluxes  `json:"fluxes"`
	Iterations         int     `json:"iterations"`
	Converged          bool    `json:"converged"`
}

// Solver evaluates the surface energy balance for a site
type Solver struct {
	site   Site
	params Params
	logger *zap.SugaredLogger
}

// NewSolver creates a Solver. A nil logger discards output.
func NewSolver(site Site, params Params, logger *zap.SugaredLogger) *Solver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Solver{
		site:   site,
		params: params,
		logger: logger,
	}
}

// Site returns the site the solver was built for
func (s *Solver) Site() Site {
	return s.site
}

// surface holds the parts of the balance that do not depend on the surface temperature
type surface struct {
	weather     Weather
	albedo      float64
	shortwaveIn float64
	longwaveIn  float64
	transfer    float64 // ρ_air·C_H·u, kg/m²/s
	airHumidity float64
	latentHeat  float64
	resistance  float64
	openWater   bool
}

// Solve searches for the surface temperature at which the energy balance closes. When the
// balance is still positive at 0 °C the surface stays at 0 °C and the surplus becomes melt
// energy. A search that cannot bracket or does not reach the tolerance within the iteration
// cap returns its best estimate with Converged false. Weather that fails Validate is rejected.
func (s *Solver) Solve(w Weather, col *ice.Column) (Result, error) {
	if err := w.Validate(); err != nil {
		return Result{}, err
	}
	sf := s.prepare(w, col)

	atZero := s.fluxes(sf, 0)
	if net := atZero.Total(); net >= 0 {
		return Result{
			SurfaceTemperature: 0,
			MeltEnergy:         net * w.Timestep,
			Albedo:             sf.albedo,
			Fluxes:             atZero,
			Iterations:         1,
			Converged:          true,
		}, nil
	}

	lo, hi := s.params.LowerBound, 0.0
	atLower := s.fluxes(sf, lo)
	if atLower.Total() < 0 {
		s.logger.Warnw("energy balance not bracketed, surface colder than search bound",
			"date", w.Date, "lower_bound", lo, "net_flux", atLower.Total())
		return Result{
			SurfaceTemperature: lo,
			Albedo:             sf.albedo,
			Fluxes:             atLower,
			Iterations:         1,
			Converged:          false,
		}, nil
	}

	iterations := 0
	converged := false
	for iterations < s.params.MaxIterations {
		iterations++
		mid := (lo + hi) / 2
		if s.fluxes(sf, mid).Total() >= 0 {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < s.params.Tolerance {
			converged = true
			break
		}
	}

	ts := (lo + hi) / 2
	if !converged {
		s.logger.Warnw("energy balance did not converge",
			"date", w.Date, "iterations", iterations, "bracket", hi-lo)
	}
	return Result{
		SurfaceTemperature: ts,
		Albedo:             sf.albedo,
		Fluxes:             s.fluxes(sf, ts),
		Iterations:         iterations,
		Converged:          converged,
	}, nil
}

func (s *Solver) prepare(w Weather, col *ice.Column) surface {
	p := s.params
	sf := surface{
		weather:   w,
		openWater: col == nil || col.IsEmpty(),
	}

	sf.albedo = s.Albedo(w, col)
	sf.shortwaveIn = s.shortwaveIn(w.Date, w.CloudCover)

	airK := toKelvin(w.AirTemperature)
	vapour := w.RelativeHumidity * saturationVapourPressure(w.AirTemperature)
	sf.longwaveIn = atmosphericEmissivity(vapour, airK, w.CloudCover) * stefanBoltzmann * math.Pow(airK, 4)

	roughness := roughnessLength(col)
	exchange := math.Pow(p.VonKarman/math.Log(p.ReferenceHeight/roughness), 2)
	airDensity := w.Pressure * 100 / (p.GasConstantDryAir * airK)
	sf.transfer = airDensity * exchange * w.WindSpeed
	sf.airHumidity = specificHumidity(vapour, w.Pressure)

	sf.latentHeat = p.LatentHeatSublimation
	if sf.openWater {
		sf.latentHeat = p.LatentHeatVaporization
	} else {
		sf.resistance = col.DryResistance()
	}
	return sf
}

// fluxes evaluates every term of the balance for the surface temperature ts
func (s *Solver) fluxes(sf surface, ts float64) Fluxes {
	p := s.params
	w := sf.weather

	f := Fluxes{
		ShortwaveIn:  sf.shortwaveIn,
		ShortwaveOut: sf.albedo * sf.shortwaveIn,
		LongwaveIn:   sf.longwaveIn,
		LongwaveOut:  p.SurfaceEmissivity*stefanBoltzmann*math.Pow(toKelvin(ts), 4) + (1-p.SurfaceEmissivity)*sf.longwaveIn,
		Sensible:     sf.transfer * p.AirHeatCapacity * (w.AirTemperature - ts),
		Ground:       p.GroundHeatFlux,
	}

	surfaceVapour := saturationVapourPressureIce(ts)
	if sf.openWater {
		surfaceVapour = saturationVapourPressure(ts)
	}
	f.Latent = sf.transfer * sf.latentHeat * (sf.airHumidity - specificHumidity(surfaceVapour, w.Pressure))

	if w.Timestep > 0 {
		rain := p.RhoWater * p.WaterHeatCapacity * w.Rain * (math.Max(w.AirTemperature, 0) - ts)
		snow := p.RhoWater * p.IceHeatCapacity * w.SnowPrecipitation * (math.Min(w.AirTemperature, 0) - ts)
		f.Precipitation = (rain + snow) / w.Timestep
	}

	if sf.resistance > 0 {
		f.Conduction = -ts / sf.resistance
	}
	return f
}

func roughnessLength(col *ice.Column) float64 {
	m := ice.Water
	if col != nil && !col.IsEmpty() {
		m = col.Layers[0].Type
	}
	p, _ := m.Properties()
	return p.Roughness
}
