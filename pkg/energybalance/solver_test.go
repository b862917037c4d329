package energybalance

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/chrissnell/lakeice/pkg/ice"
)

var testSite = Site{Latitude: 60.0, Longitude: 10.7, Altitude: 150}

func solve(t *testing.T, s *Solver, w Weather, col *ice.Column) Result {
	t.Helper()
	res, err := s.Solve(w, col)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func column(t *testing.T, layers ...ice.Layer) *ice.Column {
	t.Helper()
	k := ice.DefaultConstants()
	c, err := ice.NewColumn(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), layers, &k)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func warmSunnyDay() Weather {
	return Weather{
		Date:             time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC),
		Timestep:         86400,
		AirTemperature:   10,
		CloudCover:       0,
		WindSpeed:        3,
		RelativeHumidity: 0.6,
		Pressure:         1000,
	}
}

func coldClearNight() Weather {
	return Weather{
		Date:             time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Timestep:         86400,
		AirTemperature:   -20,
		CloudCover:       0,
		WindSpeed:        2,
		RelativeHumidity: 0.8,
		Pressure:         1010,
		SnowAge:          5,
	}
}

func TestSolveMeltsAtZeroWhenWarm(t *testing.T) {
	s := NewSolver(testSite, DefaultParams(), nil)
	res := solve(t, s, warmSunnyDay(), column(t, ice.MustLayer(ice.BlackIce, 0.3)))

	if res.SurfaceTemperature != 0 {
		t.Fatalf("surface temperature = %g, expected 0", res.SurfaceTemperature)
	}
	if res.MeltEnergy <= 0 {
		t.Errorf("melt energy = %g, expected positive", res.MeltEnergy)
	}
	if math.Abs(res.MeltEnergy-res.Fluxes.Total()*86400) > 1e-6 {
		t.Errorf("melt energy %g does not match net flux %g over the step", res.MeltEnergy, res.Fluxes.Total())
	}
	if !res.Converged {
		t.Error("expected converged result")
	}
}

func TestSolveFindsBalanceWhenCold(t *testing.T) {
	s := NewSolver(testSite, DefaultParams(), nil)
	col := column(t, ice.MustLayer(ice.Snow, 0.2), ice.MustLayer(ice.BlackIce, 0.4))
	res := solve(t, s, coldClearNight(), col)

	if !res.Converged {
		t.Fatalf("expected convergence, got %+v", res)
	}
	if res.SurfaceTemperature >= 0 || res.SurfaceTemperature <= -60 {
		t.Fatalf("surface temperature = %g, expected inside (-60, 0)", res.SurfaceTemperature)
	}
	if res.MeltEnergy != 0 {
		t.Errorf("melt energy = %g, expected 0 below freezing", res.MeltEnergy)
	}
	if net := res.Fluxes.Total(); math.Abs(net) > 0.05 {
		t.Errorf("net flux at solution = %g W/m², expected close to 0", net)
	}
	if res.Fluxes.Conduction <= 0 {
		t.Errorf("conduction = %g, expected heat flowing up from the lake", res.Fluxes.Conduction)
	}
	if res.Iterations < 2 || res.Iterations > DefaultParams().MaxIterations {
		t.Errorf("iterations = %d, outside expected range", res.Iterations)
	}
}

func TestSolveReportsNonConvergence(t *testing.T) {
	t.Run("iteration cap", func(t *testing.T) {
		p := DefaultParams()
		p.MaxIterations = 3
		p.Tolerance = 1e-12
		s := NewSolver(testSite, p, nil)
		res := solve(t, s, coldClearNight(), column(t, ice.MustLayer(ice.BlackIce, 0.3)))

		if res.Converged {
			t.Error("expected Converged to be false")
		}
		if res.Iterations != 3 {
			t.Errorf("iterations = %d, expected 3", res.Iterations)
		}
		if res.SurfaceTemperature > 0 {
			t.Errorf("surface temperature = %g above 0", res.SurfaceTemperature)
		}
	})

	t.Run("bound not bracketing", func(t *testing.T) {
		p := DefaultParams()
		p.LowerBound = -0.5
		s := NewSolver(testSite, p, nil)
		res := solve(t, s, coldClearNight(), column(t, ice.MustLayer(ice.BlackIce, 0.3)))

		if res.Converged {
			t.Error("expected Converged to be false")
		}
		if res.SurfaceTemperature != -0.5 {
			t.Errorf("surface temperature = %g, expected the lower bound", res.SurfaceTemperature)
		}
	})
}

func TestSolveNeverExceedsZero(t *testing.T) {
	s := NewSolver(testSite, DefaultParams(), nil)
	columns := []*ice.Column{
		column(t),
		column(t, ice.MustLayer(ice.BlackIce, 0.05)),
		column(t, ice.MustLayer(ice.NewSnow, 0.1), ice.MustLayer(ice.SlushIce, 0.1), ice.MustLayer(ice.BlackIce, 0.3)),
		column(t, ice.MustLayer(ice.Slush, 0.05), ice.MustLayer(ice.BlackIce, 0.3)),
	}

	for _, month := range []time.Month{time.January, time.March, time.May} {
		for _, air := range []float64{-30, -10, -1, 0, 2, 8} {
			for _, cloud := range []float64{0, 0.5, 1} {
				w := Weather{
					Date:             time.Date(2024, month, 10, 0, 0, 0, 0, time.UTC),
					Timestep:         86400,
					AirTemperature:   air,
					CloudCover:       cloud,
					WindSpeed:        4,
					RelativeHumidity: 0.7,
					Pressure:         990,
					Rain:             0.002,
				}
				for i, col := range columns {
					res := solve(t, s, w, col)
					if res.SurfaceTemperature > 0 {
						t.Fatalf("column %d, %v, air %g: surface temperature %g above 0", i, month, air, res.SurfaceTemperature)
					}
					if res.SurfaceTemperature == 0 && res.MeltEnergy < 0 {
						t.Fatalf("column %d, %v, air %g: negative melt energy %g at 0 °C", i, month, air, res.MeltEnergy)
					}
					if res.SurfaceTemperature < 0 && res.MeltEnergy != 0 {
						t.Fatalf("column %d, %v, air %g: melt energy %g below freezing", i, month, air, res.MeltEnergy)
					}
				}
			}
		}
	}
}

func TestSolveRejectsInvalidWeather(t *testing.T) {
	s := NewSolver(testSite, DefaultParams(), nil)
	col := column(t, ice.MustLayer(ice.BlackIce, 0.3))

	tests := []struct {
		name   string
		modify func(w *Weather)
	}{
		{"cloud cover above one", func(w *Weather) { w.CloudCover = 1.5 }},
		{"negative cloud cover", func(w *Weather) { w.CloudCover = -0.1 }},
		{"humidity above one", func(w *Weather) { w.RelativeHumidity = 1.4 }},
		{"humidity NaN", func(w *Weather) { w.RelativeHumidity = math.NaN() }},
		{"negative wind", func(w *Weather) { w.WindSpeed = -2 }},
		{"infinite wind", func(w *Weather) { w.WindSpeed = math.Inf(1) }},
		{"zero pressure", func(w *Weather) { w.Pressure = 0 }},
		{"air temperature NaN", func(w *Weather) { w.AirTemperature = math.NaN() }},
		{"air temperature infinite", func(w *Weather) { w.AirTemperature = math.Inf(-1) }},
		{"negative rain", func(w *Weather) { w.Rain = -0.001 }},
		{"negative snow precipitation", func(w *Weather) { w.SnowPrecipitation = -0.001 }},
		{"negative snow age", func(w *Weather) { w.SnowAge = -1 }},
		{"timestep NaN", func(w *Weather) { w.Timestep = math.NaN() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := coldClearNight()
			tt.modify(&w)
			if err := w.Validate(); !errors.Is(err, ice.ErrContractViolation) {
				t.Errorf("Validate() = %v, expected a contract violation", err)
			}
			if _, err := s.Solve(w, col); !errors.Is(err, ice.ErrContractViolation) {
				t.Errorf("Solve() error = %v, expected a contract violation", err)
			}
		})
	}

	for _, w := range []Weather{warmSunnyDay(), coldClearNight()} {
		if err := w.Validate(); err != nil {
			t.Errorf("valid weather rejected: %v", err)
		}
	}
	edge := coldClearNight()
	edge.CloudCover, edge.RelativeHumidity, edge.WindSpeed = 1, 1, 0
	if err := edge.Validate(); err != nil {
		t.Errorf("range limits should be accepted: %v", err)
	}
}

func TestAlbedo(t *testing.T) {
	s := NewSolver(testSite, DefaultParams(), nil)
	snow := column(t, ice.MustLayer(ice.Snow, 0.1), ice.MustLayer(ice.BlackIce, 0.3))
	cold := coldClearNight()

	fresh := cold
	fresh.SnowAge = 0
	old := cold
	old.SnowAge = 30
	wet := old
	wet.AirTemperature = 2
	snowing := old
	snowing.SnowPrecipitation = 0.005

	tests := []struct {
		name     string
		got      float64
		expected float64
	}{
		{"fresh snow", s.Albedo(fresh, snow), 0.85},
		{"snowfall resets age", s.Albedo(snowing, snow), 0.85},
		{"black ice", s.Albedo(cold, column(t, ice.MustLayer(ice.BlackIce, 0.3))), 0.20},
		{"open water", s.Albedo(cold, column(t)), 0.10},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.expected) > 1e-9 {
			t.Errorf("%s: albedo = %g, expected %g", tt.name, tt.got, tt.expected)
		}
	}

	if s.Albedo(old, snow) >= s.Albedo(fresh, snow) {
		t.Error("old snow should be darker than fresh snow")
	}
	if s.Albedo(wet, snow) >= s.Albedo(old, snow) {
		t.Error("wet snow should be darker than dry snow of the same age")
	}
}
