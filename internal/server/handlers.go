package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/sw33tLie/taxscope/pkg/scheduler"
	"github.com/sw33tLie/taxscope/pkg/snapshot"
	"github.com/sw33tLie/taxscope/pkg/taxcalc"
)

// LoadingResponse is served while no cycle has completed yet.
type LoadingResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

var loading = LoadingResponse{
	Status:  "loading",
	Message: "Tax data is being collected, the first refresh has not completed yet.",
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON encodes before writing the header so an unencodable value
// becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		status = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(`{"error":"could not encode response"}` + "\n")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: requestIDFrom(r.Context())})
}

// handleTaxData serves the persisted snapshot byte for byte. Every request
// re-reads the file so it always reflects the latest completed cycle.
func (s *Server) handleTaxData(w http.ResponseWriter, r *http.Request) {
	data, err := s.Store.LoadRaw()
	w.Header().Set("Cache-Control", "no-store")
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write(data)
	case errors.Is(err, snapshot.ErrNotFound):
		writeJSON(w, http.StatusOK, loading)
	default:
		s.loadFailed(w, r, err)
	}
}

func (s *Server) loadFailed(w http.ResponseWriter, r *http.Request, err error) {
	logWith(s.log, r).Errorf("Could not load snapshot: %v", err)
	if errors.Is(err, snapshot.ErrCorrupt) {
		s.writeError(w, r, http.StatusInternalServerError, "tax data is corrupt")
		return
	}
	s.writeError(w, r, http.StatusInternalServerError, "internal server error")
}

// loadSnapshot writes the loading placeholder or an error and returns false
// when no usable snapshot exists.
func (s *Server) loadSnapshot(w http.ResponseWriter, r *http.Request) (snapshot.Snapshot, bool) {
	snap, err := s.Store.Load()
	switch {
	case err == nil:
		return snap, true
	case errors.Is(err, snapshot.ErrNotFound):
		writeJSON(w, http.StatusServiceUnavailable, loading)
	default:
		s.loadFailed(w, r, err)
	}
	return snapshot.Snapshot{}, false
}

type statusResponse struct {
	Scheduler     *scheduler.Status `json:"scheduler,omitempty"`
	LastUpdate    *time.Time        `json:"lastUpdate,omitempty"`
	Jurisdictions int               `json:"jurisdictions"`
	FailedSources []string          `json:"failedSources"`
	SnapshotError string            `json:"snapshotError,omitempty"`
}

func (s *Server) status() statusResponse {
	var resp statusResponse
	if s.Scheduler != nil {
		st := s.Scheduler.Status()
		resp.Scheduler = &st
	}
	snap, err := s.Store.Load()
	switch {
	case err == nil:
		resp.LastUpdate = &snap.LastUpdate
		resp.Jurisdictions = len(snap.Jurisdictions)
		resp.FailedSources = snap.FailedSources()
	case errors.Is(err, snapshot.ErrNotFound):
		resp.SnapshotError = loading.Status
	default:
		resp.SnapshotError = err.Error()
	}
	if resp.FailedSources == nil {
		resp.FailedSources = []string{}
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleBurden(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	profit, err := strconv.ParseFloat(q.Get("profit"), 64)
	if err != nil || math.IsNaN(profit) || math.IsInf(profit, 0) {
		s.writeError(w, r, http.StatusBadRequest, "profit must be a number")
		return
	}

	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}

	if id := q.Get("jurisdiction"); id != "" {
		b, err := taxcalc.For(profit, id, snap.Jurisdictions)
		if err != nil {
			s.writeError(w, r, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, b)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lastUpdate": snap.LastUpdate,
		"burdens":    taxcalc.Compare(profit, snap.Jurisdictions),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, taxcalc.InvestorMetrics(snap.Jurisdictions))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.Scheduler == nil {
		s.writeError(w, r, http.StatusNotImplemented, "no scheduler running")
		return
	}
	// a client hanging up must not abort a cycle halfway
	err := s.Scheduler.RunNow(context.WithoutCancel(r.Context()))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.status())
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		s.writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, scheduler.ErrStopped):
		s.writeError(w, r, http.StatusServiceUnavailable, err.Error())
	default:
		s.writeError(w, r, http.StatusBadGateway, err.Error())
	}
}
