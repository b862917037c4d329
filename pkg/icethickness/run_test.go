package icethickness

import (
	"testing"
	"time"

	"github.com/chrissnell/lakeice/pkg/energybalance"
	"github.com/chrissnell/lakeice/pkg/ice"
)

func dailyForcing(start time.Time, temps ...float64) []Forcing {
	f := make([]Forcing, len(temps))
	for i, temp := range temps {
		f[i] = Forcing{Date: start.AddDate(0, 0, i), Temperature: temp}
	}
	return f
}

func TestRunFreezeThenThaw(t *testing.T) {
	e := newEngine(t)
	forcing := dailyForcing(startDate, -10, -12, -8, -15, -20, -5, -3, 4, 6, 8)
	forcing[3].NewSnow = 0.05

	results, err := e.Run(newColumn(t, e), forcing)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(forcing) {
		t.Fatalf("got %d results, expected %d", len(results), len(forcing))
	}

	prevIce := 0.0
	for i, res := range results {
		col := res.Column
		expectedDate := startDate.AddDate(0, 0, i+1)
		if !col.Date.Equal(expectedDate) {
			t.Errorf("step %d: date %v, expected %v", i, col.Date, expectedDate)
		}
		checkBuoyancy(t, col)

		iceNow := col.IceThickness()
		if forcing[i].Temperature < 0 && iceNow < prevIce {
			t.Errorf("step %d: ice shrank from %g to %g below freezing", i, prevIce, iceNow)
		}
		if forcing[i].Temperature > 0 && col.TotalHeight > results[i-1].Column.TotalHeight {
			t.Errorf("step %d: column grew while thawing", i)
		}
		prevIce = iceNow
	}

	if results[3].Column.Layers[0].Type != ice.Snow {
		t.Errorf("expected compacted snow on top after snowfall, got %v", types(results[3].Column))
	}
}

func TestRunEnergyBalanceStep(t *testing.T) {
	e := newEngine(t)
	col := newColumn(t, e, ice.MustLayer(ice.BlackIce, 0.3))
	forcing := []Forcing{
		{Date: startDate, Temperature: -5},
		{Date: startDate.AddDate(0, 0, 1), Weather: &energybalance.Weather{
			AirTemperature:   -15,
			CloudCover:       0.2,
			WindSpeed:        3,
			RelativeHumidity: 0.8,
			Pressure:         1005,
		}},
	}

	results, err := e.Run(col, forcing)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Mode != ModeAirTemperature || results[1].Mode != ModeEnergyBalance {
		t.Errorf("modes = %s, %s", results[0].Mode, results[1].Mode)
	}
	if results[1].Balance == nil {
		t.Fatal("expected energy balance diagnostics")
	}
	if results[1].SurfaceTemperature > 0 {
		t.Errorf("surface temperature = %g above 0", results[1].SurfaceTemperature)
	}
}

func TestRunRejectsUnorderedForcing(t *testing.T) {
	e := newEngine(t)
	forcing := dailyForcing(startDate, -5, -5)
	forcing[1].Date = forcing[0].Date

	results, err := e.Run(newColumn(t, e), forcing)
	if err == nil {
		t.Fatal("expected error for repeated date")
	}
	if len(results) != 1 {
		t.Errorf("expected the first step to be kept, got %d results", len(results))
	}
}
