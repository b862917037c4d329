package icethickness

import (
	"fmt"
	"math"

	"github.com/chrissnell/lakeice/pkg/ice"
)

// Freeze grows ice in col for dt seconds at temperature temp, which must be below freezing.
//
// The walk goes top down, summing the thermal resistance of the dry layers it passes. Each wet
// layer freezes against the resistance above it: a layer that freezes through hands the unused
// time to the layers below, a layer that only partly freezes is split and ends the walk. Time
// left at the bottom grows new black ice from the lake water. On an empty column this reduces
// to Stefan's law.
func (e *Engine) Freeze(col *ice.Column, dt, temp float64) error {
	if err := checkFinite("freezing temperature", temp); err != nil {
		return err
	}
	if err := checkFinite("freezing time", dt); err != nil {
		return err
	}
	if temp >= e.k.FreezingPoint {
		return fmt.Errorf("%w: freezing requested at %g °C, not below the freezing point",
			ice.ErrContractViolation, temp)
	}
	if dt < 0 {
		return fmt.Errorf("%w: negative freezing time %g s", ice.ErrContractViolation, dt)
	}

	col.MergeAndRemoveExcessLayers()
	deficit := e.k.FreezingPoint - temp
	remaining := dt
	resistance := e.k.SurfaceResistance

	for i := 0; i < len(col.Layers) && remaining > 0; i++ {
		l := col.Layers[i]
		if l.Type.IsDry() {
			resistance += l.Resistance()
			continue
		}

		target, fraction := frozenForm(l.Type, e.k)
		grown := e.growth(target, fraction, resistance, deficit, remaining)
		if grown >= l.Height {
			remaining -= e.freezeTime(target, fraction, resistance, deficit, l.Height)
			frozen := ice.MustLayer(target, l.Height)
			frozen.Metadata = l.Clone().Metadata
			col.Layers[i] = frozen
			resistance += frozen.Resistance()
			continue
		}

		col.Layers[i].Height -= grown
		col.InsertLayer(i, ice.MustLayer(target, grown))
		remaining = 0
	}

	if remaining > 0 {
		col.Layers = append(col.Layers, ice.MustLayer(ice.BlackIce, e.growth(ice.BlackIce, 1, resistance, deficit, remaining)))
	}

	col.MergeAndRemoveExcessLayers()
	return nil
}

// frozenForm returns what a wet layer turns into and the share of its mass that releases
// latent heat on the way.
func frozenForm(m ice.Material, k *ice.Constants) (ice.Material, float64) {
	if m == ice.Slush {
		return ice.SlushIce, k.SlushWaterFraction
	}
	return ice.BlackIce, 1
}

// growth is the thickness of m frozen in t seconds beneath a series resistance r (m²K/W) with
// the surface deficit degrees below freezing:
//
//	dh = −kR + sqrt((kR)² + 2k·ΔT·t / (ρLφ))
func (e *Engine) growth(m ice.Material, fraction, r, deficit, t float64) float64 {
	p, _ := m.Properties()
	kr := p.Conductivity * r
	return -kr + math.Sqrt(kr*kr+2*p.Conductivity*deficit*t/(p.Density*e.k.LatentHeatFusion*fraction))
}

// freezeTime inverts growth: the seconds needed to freeze h metres of m
func (e *Engine) freezeTime(m ice.Material, fraction, r, deficit, h float64) float64 {
	p, _ := m.Properties()
	return p.Density * e.k.LatentHeatFusion * fraction * (h*h/(2*p.Conductivity) + h*r) / deficit
}
