// Package storage defines the run store used to keep simulation results and the types it
// persists.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/chrissnell/lakeice/pkg/energybalance"
	"github.com/chrissnell/lakeice/pkg/ice"
	"github.com/chrissnell/lakeice/pkg/icethickness"
	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run ID is not in the store
var ErrRunNotFound = errors.New("run not found")

// RunStore persists simulation runs
type RunStore interface {
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context) ([]RunSummary, error)
	Close() error
}

// Run is one simulation: where and how it ran, and one snapshot per step
type Run struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Mode      string     `json:"mode"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	CreatedAt time.Time  `json:"created_at"`
	Snapshots []Snapshot `json:"snapshots"`
}

// RunSummary describes a stored run without its snapshots
type RunSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Steps     int       `json:"steps"`
}

// Snapshot is the column state at the end of one step
type Snapshot struct {
	Date               time.Time             `json:"date"`
	SurfaceTemperature float64               `json:"surface_temperature"`
	IceThickness       float64               `json:"ice_thickness"`
	SnowThickness      float64               `json:"snow_thickness"`
	SlushThickness     float64               `json:"slush_thickness"`
	TotalHeight        float64               `json:"total_height"`
	WaterLine          float64               `json:"water_line"`
	DraftThickness     float64               `json:"draft_thickness"`
	LeftoverMeltTime   float64               `json:"leftover_melt_time,omitempty"`
	LeftoverMeltEnergy float64               `json:"leftover_melt_energy,omitempty"`
	Layers             []ice.Layer           `json:"layers"`
	Balance            *energybalance.Result `json:"balance,omitempty"`
}

// NewRun builds a run with a fresh ID from the results of Engine.Run
func NewRun(name, mode string, site energybalance.Site, results []*icethickness.StepResult) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		Name:      name,
		Mode:      mode,
		Latitude:  site.Latitude,
		Longitude: site.Longitude,
		CreatedAt: time.Now().UTC(),
		Snapshots: make([]Snapshot, 0, len(results)),
	}
	for _, res := range results {
		run.Snapshots = append(run.Snapshots, SnapshotFromStep(res))
	}
	return run
}

// SnapshotFromStep captures the column produced by one step
func SnapshotFromStep(res *icethickness.StepResult) Snapshot {
	col := res.Column
	return Snapshot{
		Date:               col.Date,
		SurfaceTemperature: res.SurfaceTemperature,
		IceThickness:       col.IceThickness(),
		SnowThickness:      col.SnowThickness(),
		SlushThickness:     col.SlushThickness(),
		TotalHeight:        col.TotalHeight,
		WaterLine:          col.WaterLine,
		DraftThickness:     col.DraftThickness,
		LeftoverMeltTime:   res.LeftoverMeltTime,
		LeftoverMeltEnergy: res.LeftoverMeltEnergy,
		Layers:             col.Layers,
		Balance:            res.Balance,
	}
}

// Summary describes run without its snapshots
func (r *Run) Summary() RunSummary {
	s := RunSummary{
		ID:        r.ID,
		Name:      r.Name,
		Mode:      r.Mode,
		CreatedAt: r.CreatedAt,
		Steps:     len(r.Snapshots),
	}
	if n := len(r.Snapshots); n > 0 {
		s.StartDate = r.Snapshots[0].Date
		s.EndDate = r.Snapshots[n-1].Date
	}
	return s
}

// Snapshot returns the snapshot for the UTC day containing date
func (r *Run) Snapshot(date time.Time) (*Snapshot, bool) {
	y, m, d := date.UTC().Date()
	for i := range r.Snapshots {
		sy, sm, sd := r.Snapshots[i].Date.UTC().Date()
		if sy == y && sm == m && sd == d {
			return &r.Snapshots[i], true
		}
	}
	return nil, false
}
