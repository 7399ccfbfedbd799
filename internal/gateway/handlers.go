package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medvox/frontdesk/internal/booking"
)

// errorResponse is the JSON body for every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
}

// confirmResponse pairs the stored appointment with the post-confirm
// session snapshot so the UI can refresh in one round trip.
type confirmResponse struct {
	Appointment booking.Appointment `json:"appointment"`
	Session     any                 `json:"session"`
}

func (g *Gateway) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, g.machine.Snapshot())
}

func (g *Gateway) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := g.machine.StartRecording(r.Context()); err != nil {
		g.writeError(w, r, err)
		return
	}

	g.mu.Lock()
	g.captureStart = time.Now()
	g.mu.Unlock()
	g.metrics.ActiveSessions.Add(r.Context(), 1)

	writeJSON(w, http.StatusOK, g.machine.Snapshot())
}

func (g *Gateway) handleStop(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	started := g.captureStart
	g.captureStart = time.Time{}
	g.mu.Unlock()

	err := g.machine.StopRecording()
	if !started.IsZero() {
		g.metrics.ActiveSessions.Add(r.Context(), -1)
	}
	if err != nil {
		g.writeError(w, r, err)
		return
	}

	g.recordStop(r.Context(), started)
	writeJSON(w, http.StatusOK, g.machine.Snapshot())
}

func (g *Gateway) handleManual(w http.ResponseWriter, r *http.Request) {
	if err := g.machine.ManualEntry(); err != nil {
		g.writeError(w, r, err)
		return
	}

	g.mu.Lock()
	g.lastEntry = "manual"
	g.mu.Unlock()

	writeJSON(w, http.StatusOK, g.machine.Snapshot())
}

func (g *Gateway) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	if err := g.machine.BeginEdit(); err != nil {
		g.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g.machine.Snapshot())
}

func (g *Gateway) handleSaveEdit(w http.ResponseWriter, r *http.Request) {
	var rec booking.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not parse record body"})
		return
	}

	if err := g.machine.SaveEdit(rec); err != nil {
		g.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g.machine.Snapshot())
}

func (g *Gateway) handleConfirm(w http.ResponseWriter, r *http.Request) {
	appt, err := g.machine.Confirm(r.Context())
	if err != nil {
		g.writeError(w, r, err)
		return
	}

	g.mu.Lock()
	entry := g.lastEntry
	g.lastEntry = ""
	g.mu.Unlock()
	if entry == "" {
		entry = "manual"
	}
	g.metrics.RecordConfirmation(r.Context(), entry)

	writeJSON(w, http.StatusCreated, confirmResponse{
		Appointment: appt,
		Session:     g.machine.Snapshot(),
	})
}

func (g *Gateway) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := g.machine.Cancel(); err != nil {
		g.writeError(w, r, err)
		return
	}

	g.metrics.Cancellations.Add(r.Context(), 1)
	writeJSON(w, http.StatusOK, g.machine.Snapshot())
}

func (g *Gateway) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := g.store.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	if appts == nil {
		appts = []booking.Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

func (g *Gateway) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := g.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// ---- response helpers ----

func (g *Gateway) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		g.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
