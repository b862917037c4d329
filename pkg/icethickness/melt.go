package icethickness

import (
	"github.com/chrissnell/lakeice/pkg/ice"
)

// MeltDegreeDay erodes the top of col for dt seconds at air temperature temp using each
// material's degree-day coefficient. A layer that melts away passes the proportional remainder
// of the time on to the layer beneath. Returns the seconds still unused when the column is
// gone, zero otherwise.
func (e *Engine) MeltDegreeDay(col *ice.Column, dt, temp float64) float64 {
	excess := temp - e.k.FreezingPoint
	if excess <= 0 || dt <= 0 {
		return 0
	}

	remaining := dt
	for remaining > 0 && !col.IsEmpty() {
		if stop := e.dropSurfaceWater(col); stop {
			return 0
		}
		if col.IsEmpty() {
			break
		}
		top := &col.Layers[0]
		if top.Height == 0 {
			col.RemoveLayer(0)
			continue
		}

		coeff, ok := top.MeltCoefficient()
		if !ok {
			e.logger.Warnw("unrecognised layer material, melting as slush ice",
				"material", top.Type.String(), "date", col.Date)
		}

		loss := -coeff * remaining * excess
		if loss < top.Height {
			top.Height -= loss
			return 0
		}
		remaining *= (loss - top.Height) / loss
		col.RemoveLayer(0)
	}

	if col.IsEmpty() {
		return remaining
	}
	return 0
}

// MeltEnergy erodes the top of col with energy J/m², converting it to melted height through
// the latent heat of fusion and the layer density. A layer that melts away passes the rest of
// the energy on to the layer beneath. Returns the energy still unused when the column is gone,
// zero otherwise.
func (e *Engine) MeltEnergy(col *ice.Column, energy float64) float64 {
	remaining := energy
	for remaining > 0 && !col.IsEmpty() {
		if stop := e.dropSurfaceWater(col); stop {
			return 0
		}
		if col.IsEmpty() {
			break
		}
		top := &col.Layers[0]
		if top.Height == 0 {
			col.RemoveLayer(0)
			continue
		}
		if _, ok := top.Type.Properties(); !ok {
			e.logger.Warnw("unrecognised layer material, melting as slush ice",
				"material", top.Type.String(), "date", col.Date)
		}

		perMetre := top.Density * e.k.LatentHeatFusion
		loss := remaining / perMetre
		if loss < top.Height {
			top.Height -= loss
			return 0
		}
		remaining -= top.Height * perMetre
		col.RemoveLayer(0)
	}

	if col.IsEmpty() {
		return remaining
	}
	return 0
}

// dropSurfaceWater discards an empty water pseudo-layer on top without spending budget. It
// reports true when open water of positive height covers the column, which ends erosion.
func (e *Engine) dropSurfaceWater(col *ice.Column) bool {
	for !col.IsEmpty() && col.Layers[0].Type == ice.Water {
		if col.Layers[0].Height > 0 {
			return true
		}
		col.RemoveLayer(0)
	}
	return false
}
