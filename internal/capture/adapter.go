// Package capture adapts a streaming STT provider to the front desk's
// listening model: a start/stop toggle around a mutable transcript
// accumulator. Final transcript segments append to the accumulator as they
// arrive, so readers see the transcript grow while listening is still active;
// partial segments are surfaced through a callback for live display only.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/medvox/frontdesk/pkg/stt"
)

// ErrUnsupported is returned by Start when no STT provider is configured.
// The rest of the system falls back to manual entry.
var ErrUnsupported = errors.New("capture: speech recognition unsupported")

// Option is a functional option for configuring an [Adapter].
type Option func(*Adapter)

// WithStreamConfig sets the audio format and recognition hints passed to the
// provider on every Start. Default: 16 kHz mono.
func WithStreamConfig(cfg stt.StreamConfig) Option {
	return func(a *Adapter) {
		a.cfg = cfg
	}
}

// WithPartialFunc registers a callback invoked with each interim transcript
// segment. Partials drive live display only; they never enter the accumulated
// transcript. The callback runs on the adapter's consume goroutine and must
// not block.
func WithPartialFunc(fn func(text string)) Option {
	return func(a *Adapter) {
		a.onPartial = fn
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// Adapter owns one listening session at a time over an [stt.Provider]. All
// methods are safe for concurrent use.
//
// A nil provider is valid and marks the adapter unsupported: Start always
// fails and Supported reports false.
type Adapter struct {
	provider  stt.Provider
	cfg       stt.StreamConfig
	onPartial func(string)
	logger    *slog.Logger

	mu        sync.Mutex
	session   stt.SessionHandle
	listening bool
	segments  []string
	done      chan struct{}
}

// New returns an [Adapter] over provider. Pass a nil provider to build an
// unsupported adapter for manual-entry-only deployments.
func New(provider stt.Provider, opts ...Option) *Adapter {
	a := &Adapter{
		provider: provider,
		cfg:      stt.StreamConfig{SampleRate: 16000, Channels: 1},
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// SetPartialFunc replaces the partial-transcript callback after construction.
// Useful when the consumer of partials is built after the adapter. The same
// non-blocking contract as [WithPartialFunc] applies.
func (a *Adapter) SetPartialFunc(fn func(text string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onPartial = fn
}

// Supported reports whether speech capture is available at all. A false value
// is permanent for the lifetime of the adapter.
func (a *Adapter) Supported() bool {
	return a.provider != nil
}

// Listening reports whether a capture session is currently open.
func (a *Adapter) Listening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listening
}

// Transcript returns the text accumulated so far, final segments joined by
// single spaces. It may be read while listening is still active.
func (a *Adapter) Transcript() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.Join(a.segments, " ")
}

// ResetTranscript clears the accumulated transcript without affecting the
// listening state.
func (a *Adapter) ResetTranscript() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.segments = nil
}

// Start opens a capture session. Starting while already listening is a no-op.
// Returns [ErrUnsupported] when no provider is configured.
func (a *Adapter) Start(ctx context.Context) error {
	if a.provider == nil {
		return ErrUnsupported
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listening {
		return nil
	}

	session, err := a.provider.StartStream(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("capture: start stream: %w", err)
	}

	a.session = session
	a.listening = true
	a.done = make(chan struct{})
	go a.consume(session, a.done)

	a.logger.Debug("capture started",
		"sample_rate", a.cfg.SampleRate,
		"channels", a.cfg.Channels)
	return nil
}

// Stop closes the capture session and waits for all in-flight transcript
// segments to land in the accumulator, so callers may read Transcript
// immediately after Stop returns. The transcript is NOT cleared. Stopping
// while not listening is a no-op.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	if !a.listening {
		a.mu.Unlock()
		return nil
	}
	session, done := a.session, a.done
	a.session = nil
	a.listening = false
	a.mu.Unlock()

	err := session.Close()
	<-done
	if err != nil {
		return fmt.Errorf("capture: close session: %w", err)
	}
	a.logger.Debug("capture stopped")
	return nil
}

// SendAudio forwards a PCM chunk to the open session. It is an error to send
// audio while not listening.
func (a *Adapter) SendAudio(chunk []byte) error {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()
	if session == nil {
		return errors.New("capture: not listening")
	}
	return session.SendAudio(chunk)
}

// consume drains the session's transcript channels until both close. Finals
// append to the accumulator; partials go to the display callback.
func (a *Adapter) consume(session stt.SessionHandle, done chan struct{}) {
	defer close(done)

	partials, finals := session.Partials(), session.Finals()
	for partials != nil || finals != nil {
		select {
		case tr, ok := <-finals:
			if !ok {
				finals = nil
				continue
			}
			if text := strings.TrimSpace(tr.Text); text != "" {
				a.mu.Lock()
				a.segments = append(a.segments, text)
				a.mu.Unlock()
			}
		case tr, ok := <-partials:
			if !ok {
				partials = nil
				continue
			}
			a.mu.Lock()
			fn := a.onPartial
			a.mu.Unlock()
			if fn != nil {
				fn(tr.Text)
			}
		}
	}
}
