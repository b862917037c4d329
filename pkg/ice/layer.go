package ice

import (
	"fmt"
	"maps"
)

// Layer is one homogeneous slab of the ice cover
type Layer struct {
	Type         Material       `json:"type"`
	Height       float64        `json:"height"`
	Density      float64        `json:"density"`
	Conductivity float64        `json:"conductivity"`
	HeatCapacity float64        `json:"heat_capacity"`
	Temperature  *float64       `json:"temperature,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// NewLayer creates a layer of the given material and height with the material's density,
// conductivity and heat capacity.
func NewLayer(t Material, height float64) (Layer, error) {
	if height < 0 {
		return Layer{}, fmt.Errorf("%w: negative height %g m for %s layer", ErrContractViolation, height, t)
	}
	p, _ := t.Properties()
	return Layer{
		Type:         t,
		Height:       height,
		Density:      p.Density,
		Conductivity: p.Conductivity,
		HeatCapacity: p.HeatCapacity,
	}, nil
}

// MustLayer is like NewLayer but panics on a negative height. Intended for literals.
func MustLayer(t Material, height float64) Layer {
	l, err := NewLayer(t, height)
	if err != nil {
		panic(err)
	}
	return l
}

// Class returns the ordering class of the layer's material
func (l *Layer) Class() Class {
	return l.Type.Class()
}

// MeltCoefficient returns the degree-day coefficient of the layer's material and whether the
// material was recognised.
func (l *Layer) MeltCoefficient() (float64, bool) {
	p, ok := l.Type.Properties()
	return p.MeltCoefficient, ok
}

// Resistance returns the thermal resistance h/k of the layer in m²K/W
func (l *Layer) Resistance() float64 {
	if l.Height == 0 {
		return 0
	}
	return l.Height / l.Conductivity
}

// SetTemperature sets the layer temperature
func (l *Layer) SetTemperature(t float64) {
	l.Temperature = &t
}

// SetMetadata records a key/value pair on the layer, replacing any earlier value
func (l *Layer) SetMetadata(key string, value any) {
	if l.Metadata == nil {
		l.Metadata = make(map[string]any)
	}
	l.Metadata[key] = value
}

// Clone returns a deep copy of the layer
func (l Layer) Clone() Layer {
	c := l
	if l.Temperature != nil {
		t := *l.Temperature
		c.Temperature = &t
	}
	if l.Metadata != nil {
		c.Metadata = maps.Clone(l.Metadata)
	}
	return c
}
