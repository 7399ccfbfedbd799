// Package gateway exposes the booking session over HTTP: a small JSON API
// for the desk UI's session events and appointment lookups, plus two
// websocket endpoints — one ingesting browser microphone audio, one pushing
// live transcript partials and session notices back out.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medvox/frontdesk/internal/booking"
	"github.com/medvox/frontdesk/internal/capture"
	"github.com/medvox/frontdesk/internal/health"
	"github.com/medvox/frontdesk/internal/observe"
	"github.com/medvox/frontdesk/internal/session"
)

// Option is a functional option for configuring a [Gateway].
type Option func(*Gateway)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithHealth sets the health handler mounted at /healthz and /readyz.
// Default: a handler with a store readiness probe.
func WithHealth(h *health.Handler) Option {
	return func(g *Gateway) {
		g.health = h
	}
}

// Gateway routes HTTP traffic to one booking session. The session machine
// serialises event handling, so the gateway itself holds almost no state —
// only the websocket hub and the bookkeeping needed for capture metrics.
type Gateway struct {
	machine *session.Machine
	adapter *capture.Adapter
	store   booking.Store
	metrics *observe.Metrics
	health  *health.Handler
	logger  *slog.Logger

	hub *hub

	mu           sync.Mutex
	captureStart time.Time
	lastEntry    string // "voice" or "manual", set when a candidate is created
}

// New returns a [Gateway] over the given session machine. The adapter must be
// the same one the machine was built with; the gateway feeds it websocket
// audio and registers itself as the partial-transcript consumer.
func New(machine *session.Machine, adapter *capture.Adapter, store booking.Store, opts ...Option) *Gateway {
	g := &Gateway{
		machine: machine,
		adapter: adapter,
		store:   store,
		metrics: observe.DefaultMetrics(),
		logger:  slog.Default(),
		hub:     newHub(),
	}
	for _, o := range opts {
		o(g)
	}
	if g.health == nil {
		g.health = health.New(health.StoreChecker(store))
	}
	adapter.SetPartialFunc(g.publishPartial)
	return g
}

// Handler builds the HTTP routing table.
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(observe.Middleware(g.metrics))

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", g.handleSnapshot)
		r.Post("/session/start", g.handleStart)
		r.Post("/session/stop", g.handleStop)
		r.Post("/session/manual", g.handleManual)
		r.Post("/session/edit", g.handleBeginEdit)
		r.Put("/session/record", g.handleSaveEdit)
		r.Post("/session/confirm", g.handleConfirm)
		r.Post("/session/cancel", g.handleCancel)

		r.Get("/appointments", g.handleListAppointments)
		r.Get("/appointments/{id}", g.handleGetAppointment)
	})

	r.Get("/ws/audio", g.handleAudioWS)
	r.Get("/ws/events", g.handleEventsWS)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", g.health.Healthz)
	r.Get("/readyz", g.health.Readyz)

	return r
}

// Run pumps session notices to the event websocket clients until ctx is
// cancelled. It should run for the lifetime of the server.
func (g *Gateway) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-g.machine.Notices():
			g.hub.broadcast(event{Type: eventNotice, Notice: &n})
		}
	}
}

// publishPartial forwards an interim transcript segment to event websocket
// clients. Registered as the capture adapter's partial callback.
func (g *Gateway) publishPartial(text string) {
	g.hub.broadcast(event{Type: eventPartial, Text: text})
}

// recordStop captures the metrics around a stop event: capture duration and
// extraction outcome, derived from where the machine landed.
func (g *Gateway) recordStop(ctx context.Context, started time.Time) {
	if !started.IsZero() {
		g.metrics.CaptureDuration.Record(ctx, time.Since(started).Seconds())
	}

	outcome := "failed"
	switch {
	case g.machine.State() == session.StateReviewing:
		outcome = "succeeded"
	case g.machine.Transcript() == "":
		outcome = "empty"
	}
	g.metrics.RecordExtraction(ctx, outcome)

	if outcome == "succeeded" {
		g.mu.Lock()
		g.lastEntry = "voice"
		g.mu.Unlock()
	}
}

// httpStatus maps domain errors to HTTP status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrInvalidRecord):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, capture.ErrUnsupported):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
