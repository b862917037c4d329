package energybalance

import (
	"math"

	"github.com/chrissnell/lakeice/pkg/ice"
)

// Albedo returns the surface albedo for the top of col. Snow darkens with age, faster when
// wet; fresh snowfall during the step resets it. Other materials use their tabulated value.
func (s *Solver) Albedo(w Weather, col *ice.Column) float64 {
	if col == nil || col.IsEmpty() {
		p, _ := ice.Water.Properties()
		return p.Albedo
	}

	top := col.Layers[0].Type
	p, _ := top.Properties()
	if !top.IsSnow() {
		return p.Albedo
	}

	fresh, _ := ice.NewSnow.Properties()
	age := w.SnowAge
	if w.SnowPrecipitation > 0 {
		age = 0
	}

	floor, decay := s.params.AlbedoMinDry, s.params.AlbedoDecayDry
	if w.AirTemperature > 0 || w.Rain > 0 {
		floor, decay = s.params.AlbedoMinWet, s.params.AlbedoDecayWet
	}
	return floor + (fresh.Albedo-floor)*math.Exp(-age/decay)
}
