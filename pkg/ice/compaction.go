package ice

import "math"

// CompactSnow ages and densifies the top layer when it is snow. Below freezing the density
// grows by an exponential-in-density, exponential-in-temperature law; at or above freezing it
// jumps to the wet-snow ceiling. Mass is conserved, so the height shrinks accordingly and the
// conductivity follows the new density.
func (c *Column) CompactSnow(k *Constants, dt, temp float64) {
	if len(c.Layers) == 0 || !c.Layers[0].Type.IsSnow() {
		return
	}
	top := &c.Layers[0]
	if top.Type == NewSnow {
		top.Type = Snow
	}

	oldDensity := top.Density
	newDensity := k.SnowDensityMax
	if temp < k.FreezingPoint {
		rate := k.CompactionRate *
			math.Exp(-k.CompactionTempFactor*(k.FreezingPoint-temp)) *
			math.Exp(-k.CompactionDensityFactor*math.Max(0, oldDensity-k.CompactionDensityOnset))
		newDensity = math.Min(oldDensity*(1+rate*dt), k.SnowDensityMax)
		if newDensity < oldDensity {
			newDensity = oldDensity
		}
	}

	top.Height *= oldDensity / newDensity
	top.Density = newDensity
	top.Conductivity = SnowConductivity(newDensity)
}
