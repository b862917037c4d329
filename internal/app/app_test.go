package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chrissnell/lakeice/internal/storage/sqlite"
	"github.com/chrissnell/lakeice/pkg/config"
	"github.com/chrissnell/lakeice/pkg/energybalance"
	"github.com/chrissnell/lakeice/pkg/icethickness"
)

var firstDay = time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

func coldSpell(days int, temp float64) []icethickness.Forcing {
	out := make([]icethickness.Forcing, days)
	for i := range out {
		out[i] = icethickness.Forcing{Date: firstDay.AddDate(0, 0, i), Timestep: 86400, Temperature: temp}
	}
	return out
}

func baseConfig() *config.ConfigData {
	return &config.ConfigData{
		Site:       config.SiteData{Name: "Lake Femund", Latitude: 62.2, Longitude: 11.9, Altitude: 662},
		Simulation: config.SimulationData{Mode: config.ModeAirTemperature, Timestep: 86400},
	}
}

func TestSimulateForcingAirMode(t *testing.T) {
	a := New(nil, nil)
	run, err := a.SimulateForcing(baseConfig(), coldSpell(10, -10))
	if err != nil {
		t.Fatal(err)
	}
	if len(run.Snapshots) != 10 {
		t.Fatalf("got %d snapshots", len(run.Snapshots))
	}
	if !run.Snapshots[0].Date.Equal(firstDay) {
		t.Errorf("first snapshot dated %v, expected %v", run.Snapshots[0].Date, firstDay)
	}
	for i := 1; i < len(run.Snapshots); i++ {
		if run.Snapshots[i].IceThickness <= run.Snapshots[i-1].IceThickness {
			t.Fatalf("ice should thicken every cold day, step %d: %g after %g",
				i, run.Snapshots[i].IceThickness, run.Snapshots[i-1].IceThickness)
		}
	}
	if run.Mode != config.ModeAirTemperature || run.Name != "Lake Femund" || run.ID == "" {
		t.Errorf("unexpected run metadata %+v", run.Summary())
	}
}

func TestSimulateForcingStartDate(t *testing.T) {
	cfg := baseConfig()
	cfg.Simulation.StartDate = firstDay.AddDate(0, 0, 4)
	cfg.Simulation.InitialLayers = []config.LayerData{{Type: "snow", Height: 0.05}, {Type: "black_ice", Height: 0.2}}

	run, err := New(nil, nil).SimulateForcing(cfg, coldSpell(10, -5))
	if err != nil {
		t.Fatal(err)
	}
	if len(run.Snapshots) != 5 {
		t.Fatalf("expected the 5 records after the start date, got %d", len(run.Snapshots))
	}
	if !run.Snapshots[0].Date.Equal(firstDay.AddDate(0, 0, 5)) {
		t.Errorf("first snapshot dated %v", run.Snapshots[0].Date)
	}
	if run.Snapshots[0].IceThickness < 0.2 {
		t.Errorf("initial black ice lost: %g", run.Snapshots[0].IceThickness)
	}
}

func TestSimulateForcingEnergyBalance(t *testing.T) {
	cfg := baseConfig()
	cfg.Simulation.Mode = config.ModeEnergyBalance
	cfg.Simulation.InitialLayers = []config.LayerData{{Type: "black_ice", Height: 0.3}}

	records := coldSpell(3, -15)
	if _, err := New(nil, nil).SimulateForcing(cfg, records); err == nil {
		t.Fatal("expected an error for forcing without weather in energy-balance mode")
	}

	for i := range records {
		records[i].Weather = &energybalance.Weather{
			AirTemperature:   -15,
			CloudCover:       0.2,
			WindSpeed:        3,
			RelativeHumidity: 0.8,
			Pressure:         950,
		}
	}
	run, err := New(nil, nil).SimulateForcing(cfg, records)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range run.Snapshots {
		if s.Balance == nil {
			t.Fatalf("snapshot %v has no energy balance", s.Date)
		}
		if s.SurfaceTemperature > 0 {
			t.Errorf("surface temperature %g above freezing", s.SurfaceTemperature)
		}
	}
	if last := run.Snapshots[len(run.Snapshots)-1]; last.IceThickness <= 0.3 {
		t.Errorf("ice should grow under a cold clear sky, got %g", last.IceThickness)
	}
}

func TestSimulateForcingEmpty(t *testing.T) {
	cfg := baseConfig()
	cfg.Simulation.StartDate = firstDay.AddDate(1, 0, 0)
	if _, err := New(nil, nil).SimulateForcing(cfg, coldSpell(3, -5)); err == nil {
		t.Error("expected an error when no record follows the start date")
	}
}

func TestRunStoresSimulation(t *testing.T) {
	dir := t.TempDir()
	forcingPath := filepath.Join(dir, "forcing.csv")
	dbPath := filepath.Join(dir, "runs.db")

	var csv strings.Builder
	csv.WriteString("date,temperature,new_snow\n")
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&csv, "%s,-8,0\n", firstDay.AddDate(0, 0, i).Format(time.DateOnly))
	}
	if err := os.WriteFile(forcingPath, []byte(csv.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	cfgPath := filepath.Join(dir, "lakeice.yaml")
	yamlText := fmt.Sprintf(`site:
  name: Lake Femund
  latitude: 62.2
  longitude: 11.9
simulation:
  mode: air
  forcing-file: %s
storage:
  sqlite:
    path: %s
`, forcingPath, dbPath)
	if err := os.WriteFile(cfgPath, []byte(yamlText), 0o644); err != nil {
		t.Fatal(err)
	}

	// Without controllers Run returns once the run is stored
	if err := New(config.NewYAMLProvider(cfgPath), nil).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	store, err := sqlite.New(context.Background(), dbPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Steps != 5 || runs[0].Name != "Lake Femund" {
		t.Fatalf("unexpected stored runs %+v", runs)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte("simulation:\n  mode: sideways\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := New(config.NewYAMLProvider(cfgPath), nil).Run(context.Background()); err == nil {
		t.Error("expected an invalid configuration error")
	}
}
