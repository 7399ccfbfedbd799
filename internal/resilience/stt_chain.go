package resilience

import (
	"context"
	"log/slog"

	"github.com/medvox/frontdesk/pkg/stt"
)

// STTChain implements [stt.Provider] with automatic failover across multiple
// speech backends. Each backend has its own breaker, so a Deepgram outage can
// hand session setup over to a local whisper server without operator action.
type STTChain struct {
	chain *Chain[stt.Provider]
}

var _ stt.Provider = (*STTChain)(nil)

// NewSTTChain creates an [STTChain] with primary as the preferred backend.
func NewSTTChain(primary stt.Provider, primaryName string, logger *slog.Logger) *STTChain {
	return &STTChain{
		chain: NewChain(primary, primaryName, ChainConfig{Logger: logger}),
	}
}

// AddFallback registers an additional STT backend, tried after the primary in
// registration order. Call before the first StartStream.
func (s *STTChain) AddFallback(name string, provider stt.Provider) {
	s.chain.AddFallback(name, provider)
}

// StartStream opens a streaming transcription session against the first
// healthy backend. If the primary fails to start the stream, subsequent
// fallbacks are tried. Once a session is established it stays pinned to the
// backend that produced it.
func (s *STTChain) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	return DoWithResult(s.chain, func(p stt.Provider) (stt.SessionHandle, error) {
		return p.StartStream(ctx, cfg)
	})
}
