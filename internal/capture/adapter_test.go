package capture

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/medvox/frontdesk/pkg/stt"
	"github.com/medvox/frontdesk/pkg/stt/mock"
)

func newTestSession() *mock.Session {
	return &mock.Session{
		PartialsCh:           make(chan stt.Transcript, 16),
		FinalsCh:             make(chan stt.Transcript, 16),
		CloseChannelsOnClose: true,
	}
}

func TestAdapter_Unsupported(t *testing.T) {
	t.Parallel()

	a := New(nil)
	if a.Supported() {
		t.Error("Supported() = true for nil provider, want false")
	}
	if err := a.Start(context.Background()); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Start() error = %v, want ErrUnsupported", err)
	}
	if a.Listening() {
		t.Error("Listening() = true after failed Start")
	}
}

func TestAdapter_StartStopAccumulatesFinals(t *testing.T) {
	t.Parallel()

	sess := newTestSession()
	provider := &mock.Provider{Session: sess}
	a := New(provider)

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if !a.Listening() {
		t.Fatal("Listening() = false after Start")
	}

	sess.FinalsCh <- stt.Transcript{Text: "book appointment for John Smith", IsFinal: true}
	sess.FinalsCh <- stt.Transcript{Text: "with Dr. Johnson on Monday", IsFinal: true}
	sess.FinalsCh <- stt.Transcript{Text: "   ", IsFinal: true} // blank segments are dropped

	if err := a.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	if a.Listening() {
		t.Error("Listening() = true after Stop")
	}

	// Stop waits for the consume goroutine, so the transcript is complete.
	want := "book appointment for John Smith with Dr. Johnson on Monday"
	if got := a.Transcript(); got != want {
		t.Errorf("Transcript() = %q, want %q", got, want)
	}
	if sess.CloseCallCount != 1 {
		t.Errorf("session Close called %d times, want 1", sess.CloseCallCount)
	}
}

func TestAdapter_StopPreservesTranscript_ResetClearsIt(t *testing.T) {
	t.Parallel()

	sess := newTestSession()
	a := New(&mock.Provider{Session: sess})

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	sess.FinalsCh <- stt.Transcript{Text: "hello there", IsFinal: true}
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}

	if got := a.Transcript(); got != "hello there" {
		t.Errorf("Transcript() after Stop = %q, want %q", got, "hello there")
	}
	a.ResetTranscript()
	if got := a.Transcript(); got != "" {
		t.Errorf("Transcript() after Reset = %q, want empty", got)
	}
}

func TestAdapter_PartialsGoToCallbackNotTranscript(t *testing.T) {
	t.Parallel()

	sess := newTestSession()

	var (
		mu       sync.Mutex
		partials []string
	)
	a := New(&mock.Provider{Session: sess}, WithPartialFunc(func(text string) {
		mu.Lock()
		partials = append(partials, text)
		mu.Unlock()
	}))

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	sess.PartialsCh <- stt.Transcript{Text: "book app"}
	sess.PartialsCh <- stt.Transcript{Text: "book appointment"}
	sess.FinalsCh <- stt.Transcript{Text: "book appointment", IsFinal: true}
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(partials) != 2 {
		t.Errorf("partial callback fired %d times, want 2", len(partials))
	}
	if got := a.Transcript(); got != "book appointment" {
		t.Errorf("Transcript() = %q, want %q", got, "book appointment")
	}
}

func TestAdapter_EmptySessionYieldsEmptyTranscript(t *testing.T) {
	t.Parallel()

	sess := newTestSession()
	a := New(&mock.Provider{Session: sess})

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	if got := a.Transcript(); got != "" {
		t.Errorf("Transcript() = %q, want empty", got)
	}
}

func TestAdapter_StartWhileListeningIsNoOp(t *testing.T) {
	t.Parallel()

	sess := newTestSession()
	provider := &mock.Provider{Session: sess}
	a := New(provider)

	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if err := a.Start(ctx); err != nil {
		t.Fatalf("second Start() = %v", err)
	}
	if got := len(provider.StartStreamCalls); got != 1 {
		t.Errorf("StartStream called %d times, want 1", got)
	}
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	if err := a.Stop(); err != nil {
		t.Fatalf("second Stop() = %v", err)
	}
}

func TestAdapter_StartStreamError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("connection refused")
	a := New(&mock.Provider{StartStreamErr: wantErr})

	err := a.Start(context.Background())
	if !errors.Is(err, wantErr) {
		t.Errorf("Start() error = %v, want wrapped %v", err, wantErr)
	}
	if a.Listening() {
		t.Error("Listening() = true after failed Start")
	}
}

func TestAdapter_SendAudio(t *testing.T) {
	t.Parallel()

	sess := newTestSession()
	a := New(&mock.Provider{Session: sess})

	if err := a.SendAudio([]byte{1, 2}); err == nil {
		t.Error("SendAudio() before Start = nil, want error")
	}

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if err := a.SendAudio([]byte{1, 2, 3}); err != nil {
		t.Fatalf("SendAudio() = %v", err)
	}
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}

	if got := sess.SendAudioCallCount(); got != 1 {
		t.Errorf("session received %d audio chunks, want 1", got)
	}
}

func TestAdapter_StreamConfigPassedToProvider(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{Session: newTestSession()}
	cfg := stt.StreamConfig{
		SampleRate: 48000,
		Channels:   2,
		Language:   "en-US",
		Keywords:   []stt.KeywordBoost{{Keyword: "Okonkwo", Boost: 2}},
	}
	a := New(provider, WithStreamConfig(cfg))

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer a.Stop()

	if len(provider.StartStreamCalls) != 1 {
		t.Fatalf("StartStream called %d times, want 1", len(provider.StartStreamCalls))
	}
	got := provider.StartStreamCalls[0].Cfg
	if got.SampleRate != 48000 || got.Channels != 2 || got.Language != "en-US" || len(got.Keywords) != 1 {
		t.Errorf("StartStream cfg = %+v, want %+v", got, cfg)
	}
}
