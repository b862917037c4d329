package ice

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// UpdateTemperatures sets layer temperatures from steady one-dimensional conduction between
// surfaceTemp at the top and 0 °C at the bottom of the dry stack. Layers below the first wet
// layer are held at 0 °C.
func (c *Column) UpdateTemperatures(surfaceTemp float64) error {
	dry := 0
	for dry < len(c.Layers) && c.Layers[dry].Type.IsDry() {
		dry++
	}

	switch dry {
	case 0:
	case 1:
		c.Layers[0].SetTemperature(surfaceTemp / 2)
	default:
		interfaces, err := interfaceTemperatures(c.Layers[:dry], surfaceTemp, 0)
		if err != nil {
			return err
		}
		for i := 0; i < dry; i++ {
			c.Layers[i].SetTemperature((interfaces[i] + interfaces[i+1]) / 2)
		}
	}

	for i := dry; i < len(c.Layers); i++ {
		c.Layers[i].SetTemperature(0)
	}
	return nil
}

// interfaceTemperatures returns the temperatures at the top of each layer plus the bottom,
// len(layers)+1 values, by requiring equal heat flux through every layer.
func interfaceTemperatures(layers []Layer, top, bottom float64) ([]float64, error) {
	n := len(layers)
	g := make([]float64, n)
	for i := range layers {
		g[i] = layers[i].Conductivity / layers[i].Height
	}

	// One unknown per internal interface j = 1..n-1, stored at row j-1.
	m := n - 1
	a := mat.NewDense(m, m, nil)
	b := mat.NewVecDense(m, nil)
	for row := 0; row < m; row++ {
		j := row + 1
		a.Set(row, row, g[j-1]+g[j])
		if row > 0 {
			a.Set(row, row-1, -g[j-1])
		} else {
			b.SetVec(row, b.AtVec(row)+g[0]*top)
		}
		if row < m-1 {
			a.Set(row, row+1, -g[j])
		} else {
			b.SetVec(row, b.AtVec(row)+g[n-1]*bottom)
		}
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("failed to solve temperature profile: %w", err)
	}

	temps := make([]float64, n+1)
	temps[0] = top
	for row := 0; row < m; row++ {
		temps[row+1] = x.AtVec(row)
	}
	temps[n] = bottom
	return temps, nil
}
