package ice

import (
	"math"
	"testing"
)

func TestCompactSnow(t *testing.T) {
	k := DefaultConstants()

	tests := []struct {
		name            string
		top             Layer
		temp            float64
		expectedType    Material
		expectDensified bool
		expectCeiling   bool
	}{
		{"cold new snow ages and densifies", MustLayer(NewSnow, 0.1), -5, Snow, true, false},
		{"cold snow densifies", MustLayer(Snow, 0.2), -15, Snow, true, false},
		{"wet snow hits ceiling", MustLayer(NewSnow, 0.1), 2, Snow, true, true},
		{"freezing point counts as wet", MustLayer(Snow, 0.1), 0, Snow, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Column{Layers: []Layer{tt.top, MustLayer(BlackIce, 0.3)}}
			mass := tt.top.Height * tt.top.Density

			c.CompactSnow(&k, 86400, tt.temp)
			top := c.Layers[0]

			if top.Type != tt.expectedType {
				t.Errorf("type = %s, expected %s", top.Type, tt.expectedType)
			}
			if tt.expectDensified && top.Density <= tt.top.Density {
				t.Errorf("density = %g, expected more than %g", top.Density, tt.top.Density)
			}
			if tt.expectCeiling && top.Density != k.SnowDensityMax {
				t.Errorf("density = %g, expected ceiling %g", top.Density, k.SnowDensityMax)
			}
			if top.Density > k.SnowDensityMax {
				t.Errorf("density %g above ceiling", top.Density)
			}
			if math.Abs(top.Height*top.Density-mass) > 1e-9 {
				t.Errorf("mass = %g, expected %g", top.Height*top.Density, mass)
			}
			if math.Abs(top.Conductivity-SnowConductivity(top.Density)) > 1e-12 {
				t.Errorf("conductivity = %g, expected %g", top.Conductivity, SnowConductivity(top.Density))
			}
			if c.Layers[1].Height != 0.3 {
				t.Errorf("ice below the snow changed to %g", c.Layers[1].Height)
			}
		})
	}
}

func TestCompactSnowColderIsSlower(t *testing.T) {
	k := DefaultConstants()
	mild := &Column{Layers: []Layer{MustLayer(Snow, 0.2)}}
	cold := &Column{Layers: []Layer{MustLayer(Snow, 0.2)}}

	mild.CompactSnow(&k, 86400, -1)
	cold.CompactSnow(&k, 86400, -20)

	if cold.Layers[0].Density >= mild.Layers[0].Density {
		t.Errorf("cold density %g should be below mild density %g", cold.Layers[0].Density, mild.Layers[0].Density)
	}
}

func TestCompactSnowIgnoresIce(t *testing.T) {
	k := DefaultConstants()
	c := &Column{Layers: []Layer{MustLayer(SlushIce, 0.1)}}
	c.CompactSnow(&k, 86400, -10)

	if c.Layers[0].Density != 875 || c.Layers[0].Height != 0.1 {
		t.Errorf("slush ice changed: %+v", c.Layers[0])
	}
}
