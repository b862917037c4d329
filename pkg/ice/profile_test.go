package ice

import (
	"math"
	"testing"
)

func TestUpdateTemperatures(t *testing.T) {
	t.Run("single dry layer averages", func(t *testing.T) {
		c := &Column{Layers: []Layer{MustLayer(BlackIce, 0.3)}}
		if err := c.UpdateTemperatures(-8); err != nil {
			t.Fatal(err)
		}
		if got := *c.Layers[0].Temperature; got != -4 {
			t.Errorf("temperature = %g, expected -4", got)
		}
	})

	t.Run("two equal layers", func(t *testing.T) {
		c := &Column{Layers: []Layer{MustLayer(BlackIce, 0.2), MustLayer(BlackIce, 0.2)}}
		if err := c.UpdateTemperatures(-10); err != nil {
			t.Fatal(err)
		}
		expected := []float64{-7.5, -2.5}
		for i, e := range expected {
			if math.Abs(*c.Layers[i].Temperature-e) > 1e-9 {
				t.Errorf("layer %d temperature = %g, expected %g", i, *c.Layers[i].Temperature, e)
			}
		}
	})

	t.Run("snow insulates", func(t *testing.T) {
		snow := MustLayer(Snow, 0.1)
		ice := MustLayer(BlackIce, 0.4)
		c := &Column{Layers: []Layer{snow, ice}}
		if err := c.UpdateTemperatures(-10); err != nil {
			t.Fatal(err)
		}
		g0 := snow.Conductivity / snow.Height
		g1 := ice.Conductivity / ice.Height
		interfaceTemp := g0 * -10 / (g0 + g1)

		if math.Abs(*c.Layers[0].Temperature-(-10+interfaceTemp)/2) > 1e-9 {
			t.Errorf("snow temperature = %g, expected %g", *c.Layers[0].Temperature, (-10+interfaceTemp)/2)
		}
		if math.Abs(*c.Layers[1].Temperature-interfaceTemp/2) > 1e-9 {
			t.Errorf("ice temperature = %g, expected %g", *c.Layers[1].Temperature, interfaceTemp/2)
		}
	})

	t.Run("flux is continuous through the dry stack", func(t *testing.T) {
		layers := []Layer{MustLayer(NewSnow, 0.05), MustLayer(Snow, 0.15), MustLayer(SlushIce, 0.1), MustLayer(BlackIce, 0.35)}
		temps, err := interfaceTemperatures(layers, -12, 0)
		if err != nil {
			t.Fatal(err)
		}
		flux := layers[0].Conductivity / layers[0].Height * (temps[1] - temps[0])
		for i := 1; i < len(layers); i++ {
			f := layers[i].Conductivity / layers[i].Height * (temps[i+1] - temps[i])
			if math.Abs(f-flux) > 1e-9 {
				t.Errorf("flux through layer %d = %g, expected %g", i, f, flux)
			}
		}
	})

	t.Run("wet layers clamped", func(t *testing.T) {
		c := &Column{Layers: []Layer{
			MustLayer(Snow, 0.1),
			MustLayer(Slush, 0.05),
			MustLayer(BlackIce, 0.3),
		}}
		if err := c.UpdateTemperatures(-6); err != nil {
			t.Fatal(err)
		}
		if got := *c.Layers[0].Temperature; got != -3 {
			t.Errorf("snow temperature = %g, expected -3", got)
		}
		for i := 1; i < 3; i++ {
			if got := *c.Layers[i].Temperature; got != 0 {
				t.Errorf("layer %d temperature = %g, expected 0", i, got)
			}
		}
	})

	t.Run("slush on top", func(t *testing.T) {
		c := &Column{Layers: []Layer{MustLayer(Slush, 0.05), MustLayer(BlackIce, 0.3)}}
		if err := c.UpdateTemperatures(-6); err != nil {
			t.Fatal(err)
		}
		for i := range c.Layers {
			if got := *c.Layers[i].Temperature; got != 0 {
				t.Errorf("layer %d temperature = %g, expected 0", i, got)
			}
		}
	})
}
