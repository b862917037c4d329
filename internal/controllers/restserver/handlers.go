package restserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chrissnell/lakeice/internal/storage"
	"github.com/chrissnell/lakeice/pkg/responseformat"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	store     storage.RunStore
	formatter *responseformat.Formatter
	logger    *zap.SugaredLogger
}

// NewHandlers creates a new handlers instance
func NewHandlers(store storage.RunStore, logger *zap.SugaredLogger) *Handlers {
	return &Handlers{
		store:     store,
		formatter: responseformat.NewFormatter(),
		logger:    logger,
	}
}

// ListRuns returns a summary of every stored run
func (h *Handlers) ListRuns(w http.ResponseWriter, req *http.Request) {
	runs, err := h.store.ListRuns(req.Context())
	if err != nil {
		h.serverError(w, req, err)
		return
	}
	h.write(w, req, runs)
}

// GetRun returns a run with all of its snapshots
func (h *Handlers) GetRun(w http.ResponseWriter, req *http.Request) {
	run, ok := h.lookupRun(w, req)
	if !ok {
		return
	}
	h.write(w, req, run)
}

// GetSnapshots returns the snapshots of a run, optionally limited to the days between the
// start and end query parameters
func (h *Handlers) GetSnapshots(w http.ResponseWriter, req *http.Request) {
	start, err := parseOptionalDate(req.URL.Query().Get("start"))
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseOptionalDate(req.URL.Query().Get("end"))
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	run, ok := h.lookupRun(w, req)
	if !ok {
		return
	}

	snapshots := make([]storage.Snapshot, 0, len(run.Snapshots))
	for _, s := range run.Snapshots {
		if !start.IsZero() && s.Date.Before(start) {
			continue
		}
		if !end.IsZero() && s.Date.After(end.AddDate(0, 0, 1).Add(-time.Nanosecond)) {
			continue
		}
		snapshots = append(snapshots, s)
	}
	h.write(w, req, snapshots)
}

// GetSnapshot returns the snapshot of a run for a single day (YYYY-MM-DD)
func (h *Handlers) GetSnapshot(w http.ResponseWriter, req *http.Request) {
	date, err := time.Parse(time.DateOnly, mux.Vars(req)["date"])
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
		return
	}

	run, ok := h.lookupRun(w, req)
	if !ok {
		return
	}

	snap, found := run.Snapshot(date)
	if !found {
		h.formatter.WriteError(w, req, http.StatusNotFound, fmt.Sprintf("run %s has no snapshot for %s", run.ID, date.Format(time.DateOnly)))
		return
	}
	h.write(w, req, snap)
}

func (h *Handlers) lookupRun(w http.ResponseWriter, req *http.Request) (*storage.Run, bool) {
	id := mux.Vars(req)["id"]
	run, err := h.store.GetRun(req.Context(), id)
	if errors.Is(err, storage.ErrRunNotFound) {
		h.formatter.WriteError(w, req, http.StatusNotFound, fmt.Sprintf("run %s not found", id))
		return nil, false
	}
	if err != nil {
		h.serverError(w, req, err)
		return nil, false
	}
	return run, true
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, data any) {
	if err := h.formatter.WriteResponse(w, req, data); err != nil {
		h.logger.Errorw("error encoding response", "path", req.URL.Path, "error", err)
	}
}

func (h *Handlers) serverError(w http.ResponseWriter, req *http.Request, err error) {
	h.logger.Errorw("error querying run store", "path", req.URL.Path, "error", err)
	h.formatter.WriteError(w, req, http.StatusInternalServerError, "internal server error")
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}
