package harmony_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bli0428/vocalharmony/internal/harmony"
	"github.com/bli0428/vocalharmony/pkg/audio/mock"
)

func newTestEngine(t *testing.T, dev *mock.Device, src *mock.Source) (*harmony.Engine, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	dev.NowFunc = clock.Now
	eng, err := harmony.NewEngine(harmony.EngineConfig{
		Device:    dev,
		Source:    src,
		Params:    harmony.ChainParams{WindowMs: 40},
		StartLead: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng, clock
}

func TestNewEngine_RequiresCollaborators(t *testing.T) {
	t.Parallel()
	if _, err := harmony.NewEngine(harmony.EngineConfig{Source: &mock.Source{}}); err == nil {
		t.Error("NewEngine without device should fail")
	}
	if _, err := harmony.NewEngine(harmony.EngineConfig{Device: mock.NewDevice()}); err == nil {
		t.Error("NewEngine without source should fail")
	}
}

func TestEngine_AuditionTwoVoices(t *testing.T) {
	t.Parallel()
	dev := mock.NewDevice()
	eng, _ := newTestEngine(t, dev, &mock.Source{})
	eng.SetRecording(sineRecording(t, 2*testSampleRate))

	// Unison off, a major third and a fifth on.
	for _, o := range []harmony.Offset{0, 4, 7} {
		if _, err := eng.Toggle(o); err != nil {
			t.Fatalf("Toggle(%s): %v", o, err)
		}
	}

	ref, err := eng.Play(context.Background())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}

	if got := eng.ChainCount(); got != 2 {
		t.Errorf("live chains = %d, want 2", got)
	}
	if got := dev.PlayerCount(); got != 2 {
		t.Errorf("players created = %d, want 2", got)
	}
	for i, p := range dev.Players() {
		starts := p.StartTimes()
		if len(starts) != 1 || !starts[0].Equal(ref) {
			t.Errorf("player %d start times = %v, want one start at %v", i, starts, ref)
		}
	}
}

func TestEngine_ToggleOffReleasesChain(t *testing.T) {
	t.Parallel()
	dev := mock.NewDevice()
	eng, _ := newTestEngine(t, dev, &mock.Source{})
	eng.SetRecording(testRecording(t))

	if _, err := eng.Toggle(4); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if _, err := eng.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if got := eng.ChainCount(); got != 2 {
		t.Fatalf("live chains = %d, want 2", got)
	}

	active, err := eng.Toggle(4)
	if err != nil {
		t.Fatalf("Toggle off: %v", err)
	}
	if active {
		t.Error("Toggle should report +4 inactive")
	}
	if got := eng.ChainCount(); got != 1 {
		t.Errorf("live chains after toggle-off = %d, want 1", got)
	}
	// Exactly one of the two players belongs to the released chain.
	closed := 0
	for _, p := range dev.Players() {
		closed += p.CloseCount()
	}
	if closed != 1 {
		t.Errorf("players closed = %d, want 1", closed)
	}
}

func TestEngine_LazyMaterialization(t *testing.T) {
	t.Parallel()
	dev := mock.NewDevice()
	eng, _ := newTestEngine(t, dev, &mock.Source{})

	// Toggle +3 on and off again without ever playing.
	if _, err := eng.Toggle(3); err != nil {
		t.Fatalf("Toggle on: %v", err)
	}
	if _, err := eng.Toggle(3); err != nil {
		t.Fatalf("Toggle off: %v", err)
	}

	if got := dev.PlayerCount(); got != 0 {
		t.Errorf("players created = %d, want 0 (chains materialize on play)", got)
	}
	if got := eng.ChainCount(); got != 0 {
		t.Errorf("live chains = %d, want 0", got)
	}
}

func TestEngine_ToggleInvalidOffset(t *testing.T) {
	t.Parallel()
	eng, _ := newTestEngine(t, mock.NewDevice(), &mock.Source{})

	if _, err := eng.Toggle(13); !errors.Is(err, harmony.ErrOffsetRange) {
		t.Errorf("Toggle(13) error = %v, want ErrOffsetRange", err)
	}
}

func TestEngine_PlayWithoutRecording(t *testing.T) {
	t.Parallel()
	dev := mock.NewDevice()
	eng, _ := newTestEngine(t, dev, &mock.Source{})

	if _, err := eng.Play(context.Background()); !errors.Is(err, harmony.ErrNoRecording) {
		t.Fatalf("Play error = %v, want ErrNoRecording", err)
	}
	if got := eng.ChainCount(); got != 0 {
		t.Errorf("registry changed: %d chains, want 0", got)
	}
}

func TestEngine_CaptureFlow(t *testing.T) {
	t.Parallel()
	src := &mock.Source{StopRecording: testRecording(t)}
	eng, _ := newTestEngine(t, mock.NewDevice(), src)
	ctx := context.Background()

	if eng.RecordingReady() {
		t.Fatal("no recording should exist before capture")
	}

	if err := eng.StartRecording(ctx); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if !eng.Capturing() {
		t.Error("Capturing() should be true during capture")
	}
	if err := eng.StartRecording(ctx); !errors.Is(err, harmony.ErrCapturing) {
		t.Errorf("second StartRecording error = %v, want ErrCapturing", err)
	}
	if _, err := eng.Play(ctx); !errors.Is(err, harmony.ErrCapturing) {
		t.Errorf("Play during capture error = %v, want ErrCapturing", err)
	}

	rec, err := eng.StopRecording(ctx)
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if rec != src.StopRecording {
		t.Error("StopRecording should return the captured take")
	}
	if !eng.RecordingReady() {
		t.Error("recording should be installed after capture")
	}
	if eng.Capturing() {
		t.Error("Capturing() should be false after stop")
	}
	if got := src.CallCountStart; got != 2 {
		t.Errorf("source Start calls = %d, want 2", got)
	}
}

func TestEngine_StopWithoutCapture(t *testing.T) {
	t.Parallel()
	eng, _ := newTestEngine(t, mock.NewDevice(), &mock.Source{})

	if _, err := eng.StopRecording(context.Background()); !errors.Is(err, harmony.ErrNotCapturing) {
		t.Errorf("StopRecording error = %v, want ErrNotCapturing", err)
	}
}

func TestEngine_StartRecordingWhilePlaying(t *testing.T) {
	t.Parallel()
	dev := mock.NewDevice()
	eng, clock := newTestEngine(t, dev, &mock.Source{})
	eng.SetRecording(sineRecording(t, testSampleRate))

	if _, err := eng.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := eng.StartRecording(context.Background()); !errors.Is(err, harmony.ErrPlaying) {
		t.Errorf("StartRecording during playback error = %v, want ErrPlaying", err)
	}

	// Once playback has run out, capture is allowed again.
	clock.Advance(2 * time.Second)
	if err := eng.StartRecording(context.Background()); err != nil {
		t.Errorf("StartRecording after playback: %v", err)
	}
}

func TestEngine_NewRecordingTearsDownChains(t *testing.T) {
	t.Parallel()
	dev := mock.NewDevice()
	eng, _ := newTestEngine(t, dev, &mock.Source{})
	eng.SetRecording(testRecording(t))

	if _, err := eng.Toggle(7); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if _, err := eng.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if got := eng.ChainCount(); got != 2 {
		t.Fatalf("live chains = %d, want 2", got)
	}

	eng.SetRecording(testRecording(t))

	if got := eng.ChainCount(); got != 0 {
		t.Errorf("live chains after new recording = %d, want 0", got)
	}
	for i, p := range dev.Players() {
		if got := p.CloseCount(); got != 1 {
			t.Errorf("player %d CloseCount() = %d, want 1", i, got)
		}
	}

	// The selection survives; the next play rebuilds both voices.
	if _, err := eng.Play(context.Background()); err != nil {
		t.Fatalf("Play after new recording: %v", err)
	}
	if got := eng.ChainCount(); got != 2 {
		t.Errorf("rebuilt chains = %d, want 2", got)
	}
}

func TestEngine_SourceFailurePreservesRecording(t *testing.T) {
	t.Parallel()
	src := &mock.Source{StopRecording: testRecording(t)}
	eng, _ := newTestEngine(t, mock.NewDevice(), src)
	ctx := context.Background()

	if err := eng.StartRecording(ctx); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if _, err := eng.StopRecording(ctx); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	first := eng.Recording()

	src.StopErr = errors.New("device unplugged")
	if err := eng.StartRecording(ctx); err != nil {
		t.Fatalf("second StartRecording: %v", err)
	}
	if _, err := eng.StopRecording(ctx); err == nil {
		t.Fatal("StopRecording should surface the capture error")
	}

	if eng.Recording() != first {
		t.Error("failed capture must not replace the previous recording")
	}
}

func TestEngine_Close(t *testing.T) {
	t.Parallel()
	dev := mock.NewDevice()
	src := &mock.Source{StopRecording: testRecording(t)}
	eng, _ := newTestEngine(t, dev, src)
	eng.SetRecording(testRecording(t))

	if _, err := eng.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}

	if err := eng.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := eng.ChainCount(); got != 0 {
		t.Errorf("live chains after Close = %d, want 0", got)
	}
	for i, p := range dev.Players() {
		if got := p.CloseCount(); got != 1 {
			t.Errorf("player %d CloseCount() = %d, want 1", i, got)
		}
	}
}
