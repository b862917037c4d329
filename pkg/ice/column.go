package ice

import (
	"fmt"
	"maps"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Column is the ice cover at one date: an ordered stack of layers, index 0 on top,
// plus state derived from the stack.
type Column struct {
	Date               time.Time      `json:"date"`
	Layers             []Layer        `json:"layers"`
	WaterLine          float64        `json:"water_line"` // -1 until derived
	DraftThickness     float64        `json:"draft_thickness"`
	TotalHeight        float64        `json:"total_height"`
	TopLayerIsSlush    bool           `json:"top_layer_is_slush"`
	SurfaceTemperature *float64       `json:"surface_temperature,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// NewColumn creates a column from layers listed top to bottom. The layers are cleaned up and
// all derived state is computed.
func NewColumn(date time.Time, layers []Layer, k *Constants) (*Column, error) {
	c := &Column{
		Date:      date,
		Layers:    make([]Layer, 0, len(layers)),
		WaterLine: -1,
	}
	for _, l := range layers {
		c.Layers = append(c.Layers, l.Clone())
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.MergeAndRemoveExcessLayers()
	c.UpdateDerived(k)
	return c, nil
}

// NewObservedColumn creates a column seeded from an observation. When waterLine is non-nil it
// is used as measured instead of the buoyancy-derived value; the next step re-derives it.
func NewObservedColumn(date time.Time, layers []Layer, waterLine *float64, k *Constants) (*Column, error) {
	c, err := NewColumn(date, layers, k)
	if err != nil {
		return nil, err
	}
	if waterLine != nil {
		c.WaterLine = *waterLine
		c.SetMetadata("water_line_observed", true)
	}
	return c, nil
}

// Validate checks the structural contract of the column
func (c *Column) Validate() error {
	for i, l := range c.Layers {
		if l.Height < 0 {
			return fmt.Errorf("%w: layer %d (%s) has negative height %g m", ErrContractViolation, i, l.Type, l.Height)
		}
	}
	return nil
}

// Clone returns a deep copy of the column
func (c *Column) Clone() *Column {
	n := *c
	n.Layers = make([]Layer, len(c.Layers))
	for i, l := range c.Layers {
		n.Layers[i] = l.Clone()
	}
	if c.SurfaceTemperature != nil {
		t := *c.SurfaceTemperature
		n.SurfaceTemperature = &t
	}
	if c.Metadata != nil {
		n.Metadata = maps.Clone(c.Metadata)
	}
	return &n
}

// IsEmpty reports whether the column has no layers
func (c *Column) IsEmpty() bool {
	return len(c.Layers) == 0
}

// SetMetadata records a key/value pair on the column
func (c *Column) SetMetadata(key string, value any) {
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	c.Metadata[key] = value
}

// InsertLayer inserts l so that it ends up at index i
func (c *Column) InsertLayer(i int, l Layer) {
	c.Layers = append(c.Layers, Layer{})
	copy(c.Layers[i+1:], c.Layers[i:])
	c.Layers[i] = l
}

// RemoveLayer removes the layer at index i
func (c *Column) RemoveLayer(i int) {
	c.Layers = append(c.Layers[:i], c.Layers[i+1:]...)
}

// MergeAndRemoveExcessLayers drops zero-height layers and merges neighbours of equal type
// until neither rule applies. Applying it to its own output changes nothing.
func (c *Column) MergeAndRemoveExcessLayers() {
	for {
		kept := c.Layers[:0]
		for _, l := range c.Layers {
			if l.Height > 0 {
				kept = append(kept, l)
			}
		}
		c.Layers = kept

		merged := false
		for i := 0; i+1 < len(c.Layers); i++ {
			if c.Layers[i].Type == c.Layers[i+1].Type {
				c.Layers[i] = mergeLayers(c.Layers[i], c.Layers[i+1])
				c.RemoveLayer(i + 1)
				merged = true
				break
			}
		}
		if !merged {
			return
		}
	}
}

// mergeLayers combines two layers of the same type. Entries in lower's metadata win.
func mergeLayers(upper, lower Layer) Layer {
	weights := []float64{upper.Height, lower.Height}
	m := Layer{
		Type:         upper.Type,
		Height:       upper.Height + lower.Height,
		Density:      stat.Mean([]float64{upper.Density, lower.Density}, weights),
		Conductivity: stat.Mean([]float64{upper.Conductivity, lower.Conductivity}, weights),
		HeatCapacity: stat.Mean([]float64{upper.HeatCapacity, lower.HeatCapacity}, weights),
	}

	switch {
	case upper.Temperature != nil && lower.Temperature != nil:
		m.SetTemperature(stat.Mean([]float64{*upper.Temperature, *lower.Temperature}, weights))
	case upper.Temperature != nil:
		m.SetTemperature(*upper.Temperature)
	case lower.Temperature != nil:
		m.SetTemperature(*lower.Temperature)
	}

	if upper.Metadata != nil || lower.Metadata != nil {
		m.Metadata = make(map[string]any, len(upper.Metadata)+len(lower.Metadata))
		maps.Copy(m.Metadata, upper.Metadata)
		maps.Copy(m.Metadata, lower.Metadata)
	}
	return m
}

// UpdateDraftThickness sums the heights below the snow run at the top of the column
func (c *Column) UpdateDraftThickness() {
	draft := 0.0
	inTopSnow := true
	for _, l := range c.Layers {
		if inTopSnow && l.Type.IsSnow() {
			continue
		}
		inTopSnow = false
		draft += l.Height
	}
	c.DraftThickness = draft
}

// UpdateWaterLine sets the water line from Archimedes' principle over the whole column
func (c *Column) UpdateWaterLine(k *Constants) {
	heights := make([]float64, len(c.Layers))
	densities := make([]float64, len(c.Layers))
	for i, l := range c.Layers {
		heights[i] = l.Height
		densities[i] = l.Density
	}
	c.WaterLine = floats.Dot(heights, densities) / k.RhoWater
}

// UpdateTotalHeight sums the heights of all layers
func (c *Column) UpdateTotalHeight() {
	total := 0.0
	for _, l := range c.Layers {
		total += l.Height
	}
	c.TotalHeight = total
}

// UpdateTopLayerIsSlush refreshes the slush-on-top flag
func (c *Column) UpdateTopLayerIsSlush() {
	c.TopLayerIsSlush = len(c.Layers) > 0 && c.Layers[0].Type == Slush
}

// UpdateDerived recomputes draft thickness, water line, total height and the slush flag
func (c *Column) UpdateDerived(k *Constants) {
	c.UpdateDraftThickness()
	c.UpdateWaterLine(k)
	c.UpdateTotalHeight()
	c.UpdateTopLayerIsSlush()
}

// DryResistance returns the series thermal resistance Σh/k of the contiguous dry layers at
// the top of the column.
func (c *Column) DryResistance() float64 {
	r := 0.0
	for i := range c.Layers {
		if !c.Layers[i].Type.IsDry() {
			break
		}
		r += c.Layers[i].Resistance()
	}
	return r
}

// IceThickness is the combined height of black ice and slush ice
func (c *Column) IceThickness() float64 {
	return c.thickness(func(m Material) bool { return m == BlackIce || m == SlushIce })
}

// SnowThickness is the combined height of all snow-class layers
func (c *Column) SnowThickness() float64 {
	return c.thickness(Material.IsSnow)
}

// SlushThickness is the combined height of slush layers
func (c *Column) SlushThickness() float64 {
	return c.thickness(func(m Material) bool { return m == Slush })
}

func (c *Column) thickness(match func(Material) bool) float64 {
	h := 0.0
	for _, l := range c.Layers {
		if match(l.Type) {
			h += l.Height
		}
	}
	return h
}
