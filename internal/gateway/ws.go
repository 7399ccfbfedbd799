package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/medvox/frontdesk/internal/session"
)

const (
	// eventWriteTimeout bounds how long a slow websocket client can stall an
	// event delivery before it is dropped.
	eventWriteTimeout = 5 * time.Second

	// eventBufferSize is the per-client event queue. Clients that fall this
	// far behind are disconnected rather than blocking the hub.
	eventBufferSize = 32
)

// event types pushed over /ws/events.
const (
	eventNotice  = "notice"
	eventPartial = "partial"
)

// event is the JSON frame pushed to event websocket clients.
type event struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	Notice *session.Notice `json:"notice,omitempty"`
}

// hub fans session events out to all connected event websockets.
type hub struct {
	mu      sync.Mutex
	clients map[chan event]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[chan event]struct{})}
}

// subscribe registers a new client queue. The returned cancel func must be
// called when the client disconnects.
func (h *hub) subscribe() (<-chan event, func()) {
	ch := make(chan event, eventBufferSize)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// broadcast queues ev on every client. Clients with a full queue miss the
// event; they resynchronise from the session snapshot on reconnect.
func (h *hub) broadcast(ev event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}

// handleEventsWS streams session notices and transcript partials to the desk
// UI as JSON text frames.
func (g *Gateway) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		g.logger.Warn("events websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	events, cancel := g.hub.subscribe()
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			payload, err := json.Marshal(ev)
			if err != nil {
				g.logger.Error("marshal event", "err", err)
				continue
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, eventWriteTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, payload)
			cancelWrite()
			if err != nil {
				return
			}
		}
	}
}

// handleAudioWS ingests microphone audio from the browser. Each binary frame
// is one 48 kHz stereo Opus packet; it is decoded, downmixed, and resampled
// to 16 kHz mono PCM before being fed to the capture session. Frames that
// arrive while the session is not listening are dropped silently — the UI may
// keep streaming across a stop/start boundary.
func (g *Gateway) handleAudioWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		g.logger.Warn("audio websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	dec, err := newOpusDecoder()
	if err != nil {
		g.logger.Error("audio websocket decoder init failed", "err", err)
		conn.Close(websocket.StatusInternalError, "decoder init failed")
		return
	}

	ctx := r.Context()
	for {
		msgType, packet, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return
			}
			g.logger.Debug("audio websocket closed", "err", err)
			return
		}
		if msgType != websocket.MessageBinary {
			continue
		}

		pcm, err := dec.decodeToSTT(packet)
		if err != nil {
			g.logger.Warn("audio frame dropped", "err", err)
			continue
		}
		if !g.adapter.Listening() {
			continue
		}
		if err := g.adapter.SendAudio(pcm); err != nil {
			g.logger.Debug("send audio", "err", err)
		}
	}
}
