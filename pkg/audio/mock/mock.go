// Package mock provides in-memory mock implementations of the
// [audio.Device], [audio.Player], [audio.Source], and [audio.CaptureHandle]
// interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	dev := mock.NewDevice()
//	src := &mock.Source{StopRecording: rec}
//	// ... run the code under test ...
//	if got := dev.PlayerCount(); got != 2 {
//	    t.Fatalf("players = %d, want 2", got)
//	}
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/bli0428/vocalharmony/pkg/audio"
)

// ─── Device ──────────────────────────────────────────────────────────────────

// Device is a mock implementation of [audio.Device]. It hands out mock
// [Player] instances and remembers every player it created.
type Device struct {
	mu sync.Mutex

	// NewPlayerErr, when non-nil, is returned by every NewPlayer call.
	NewPlayerErr error

	// NowFunc overrides the clock returned by Now. Defaults to time.Now.
	NowFunc func() time.Time

	// PlayerDefaults is copied onto every player created by NewPlayer,
	// letting a test pre-arm Bind/Start failures for all future players.
	PlayerDefaults Player

	players []*Player
	closed  bool
}

// NewDevice returns an empty mock device.
func NewDevice() *Device { return &Device{} }

// NewPlayer implements [audio.Device]. It returns a fresh mock [Player]
// (seeded from PlayerDefaults) and records it.
func (d *Device) NewPlayer() (audio.Player, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.NewPlayerErr != nil {
		return nil, d.NewPlayerErr
	}
	p := &Player{
		BindErr:  d.PlayerDefaults.BindErr,
		StartErr: d.PlayerDefaults.StartErr,
		CloseErr: d.PlayerDefaults.CloseErr,
		BindHook: d.PlayerDefaults.BindHook,
	}
	d.players = append(d.players, p)
	return p, nil
}

// Now implements [audio.Device]. Returns NowFunc() when set, else time.Now().
func (d *Device) Now() time.Time {
	d.mu.Lock()
	fn := d.NowFunc
	d.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return time.Now()
}

// Close implements [audio.Device].
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Players returns a snapshot of every player created so far, in creation order.
func (d *Device) Players() []*Player {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Player, len(d.players))
	copy(out, d.players)
	return out
}

// PlayerCount returns how many players NewPlayer has handed out.
func (d *Device) PlayerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.players)
}

// ─── Player ──────────────────────────────────────────────────────────────────

// Player is a mock implementation of [audio.Player].
// Set the exported Err fields before use; inspect the recorded state after.
type Player struct {
	mu sync.Mutex

	// BindErr is returned by Bind.
	BindErr error

	// StartErr is returned by StartAt.
	StartErr error

	// CloseErr is returned by the first Close call.
	CloseErr error

	// BindHook, when set, runs inside Bind before any state is recorded.
	// Tests use it to coordinate dispose-during-load interleavings.
	BindHook func()

	bound      []float64
	format     audio.Format
	startTimes []time.Time
	closeCount int
}

// Bind implements [audio.Player]. It records the bound samples and format.
func (p *Player) Bind(_ context.Context, samples []float64, format audio.Format) error {
	if hook := p.bindHook(); hook != nil {
		hook()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.BindErr != nil {
		return p.BindErr
	}
	p.bound = samples
	p.format = format
	return nil
}

func (p *Player) bindHook() func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.BindHook
}

// StartAt implements [audio.Player]. It records the reference time.
func (p *Player) StartAt(t time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.StartErr != nil {
		return p.StartErr
	}
	p.startTimes = append(p.startTimes, t)
	return nil
}

// Duration implements [audio.Player].
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.format.Duration(len(p.bound))
}

// Close implements [audio.Player]. The first call returns CloseErr;
// subsequent calls return nil.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCount++
	if p.closeCount == 1 {
		return p.CloseErr
	}
	return nil
}

// Bound reports whether Bind succeeded at least once.
func (p *Player) Bound() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bound != nil
}

// BoundSamples returns the samples recorded by the last successful Bind.
func (p *Player) BoundSamples() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bound
}

// StartTimes returns every reference time passed to StartAt, in call order.
func (p *Player) StartTimes() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]time.Time, len(p.startTimes))
	copy(out, p.startTimes)
	return out
}

// CloseCount returns how many times Close was called.
func (p *Player) CloseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeCount
}

// ─── Source ──────────────────────────────────────────────────────────────────

// Source is a mock implementation of [audio.Source].
type Source struct {
	mu sync.Mutex

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// StartErr is returned by Start.
	StartErr error

	// StopErr is returned by the handle's Stop.
	StopErr error

	// StopRecording is the recording returned by the handle's Stop.
	StopRecording *audio.Recording
}

// Start implements [audio.Source].
func (s *Source) Start(_ context.Context) (audio.CaptureHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStart++
	if s.StartErr != nil {
		return nil, s.StartErr
	}
	return &Handle{src: s}, nil
}

// Handle is the mock [audio.CaptureHandle] returned by [Source.Start].
type Handle struct {
	mu      sync.Mutex
	src     *Source
	stopped bool
}

// Stop implements [audio.CaptureHandle]. It returns the source's
// StopRecording, or StopErr when set. Stopping twice fails.
func (h *Handle) Stop() (*audio.Recording, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return nil, &audio.CaptureError{Op: "stop", Err: errAlreadyStopped}
	}
	h.stopped = true

	h.src.mu.Lock()
	defer h.src.mu.Unlock()
	if h.src.StopErr != nil {
		return nil, h.src.StopErr
	}
	return h.src.StopRecording, nil
}

var errAlreadyStopped = &stoppedError{}

type stoppedError struct{}

func (*stoppedError) Error() string { return "capture already stopped" }
