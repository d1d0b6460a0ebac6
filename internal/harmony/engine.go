package harmony

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bli0428/vocalharmony/internal/observe"
	"github.com/bli0428/vocalharmony/pkg/audio"
)

// Engine is the facade the rest of the application talks to. It owns the
// selection, the chain registry, the orchestrator, and the capture source,
// and enforces the two cross-cutting rules the parts cannot enforce alone:
// capture and playback never overlap, and the registry always reflects the
// selection (toggling an offset off releases its chain, a new recording
// tears down every chain).
type Engine struct {
	sel     *Selection
	reg     *Registry
	orch    *Orchestrator
	source  audio.Source
	metrics *observe.Metrics
	log     *slog.Logger

	mu           sync.Mutex
	capture      audio.CaptureHandle
	captureBegin time.Time
	rec          *audio.Recording
}

// EngineConfig carries the collaborators and tuning for [NewEngine].
type EngineConfig struct {
	// Device plays audio. Required.
	Device audio.Device

	// Source captures audio. Required.
	Source audio.Source

	// Params configures every chain the engine creates.
	Params ChainParams

	// StartLead overrides the orchestrator's scheduling lead when positive.
	StartLead time.Duration

	// Metrics defaults to [observe.DefaultMetrics] when nil.
	Metrics *observe.Metrics

	// Logger defaults to [slog.Default] when nil.
	Logger *slog.Logger
}

// NewEngine wires up a fresh engine: empty registry, selection holding only
// the unison offset, no recording.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Device == nil {
		return nil, fmt.Errorf("harmony: engine requires a device")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("harmony: engine requires a capture source")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	reg := NewRegistry(cfg.Device, cfg.Params, cfg.Metrics)
	orchOpts := []OrchestratorOption{
		WithClock(cfg.Device.Now),
		WithMetrics(cfg.Metrics),
		WithLogger(cfg.Logger),
	}
	if cfg.StartLead > 0 {
		orchOpts = append(orchOpts, WithStartLead(cfg.StartLead))
	}

	return &Engine{
		sel:     NewSelection(),
		reg:     reg,
		orch:    NewOrchestrator(reg, orchOpts...),
		source:  cfg.Source,
		metrics: cfg.Metrics,
		log:     cfg.Logger,
	}, nil
}

// Toggle flips the offset in the selection and reports whether it is active
// afterwards. Toggling an offset off releases its chain immediately;
// toggling it on creates nothing, the chain appears on the next play.
func (e *Engine) Toggle(o Offset) (bool, error) {
	if !o.Valid() {
		return false, fmt.Errorf("%w: %s", ErrOffsetRange, o)
	}
	active := e.sel.Toggle(o)
	if !active {
		e.reg.Release(o)
	}
	e.log.Debug("offset toggled", "offset", o, "active", active)
	return active, nil
}

// StartRecording opens the capture source. It fails with [ErrCapturing] when
// a capture is already running and with [ErrPlaying] while playback is being
// prepared or still audible.
func (e *Engine) StartRecording(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.capture != nil {
		return ErrCapturing
	}
	if e.orch.State() != StateIdle {
		return ErrPlaying
	}
	handle, err := e.source.Start(ctx)
	if err != nil {
		return err
	}
	e.capture = handle
	e.captureBegin = time.Now()
	e.log.Info("capture started")
	return nil
}

// StopRecording closes the capture source and installs the captured phrase
// as the engine's recording. Every existing chain is torn down so that no
// chain can replay stale audio; the selection is untouched. Fails with
// [ErrNotCapturing] when no capture is running.
func (e *Engine) StopRecording(ctx context.Context) (*audio.Recording, error) {
	e.mu.Lock()
	handle := e.capture
	e.capture = nil
	begin := e.captureBegin
	e.mu.Unlock()
	if handle == nil {
		return nil, ErrNotCapturing
	}

	rec, err := handle.Stop()
	if err != nil {
		return nil, err
	}
	e.metrics.CaptureDuration.Record(ctx, time.Since(begin).Seconds())
	e.metrics.RecordingsCaptured.Add(ctx, 1)
	e.SetRecording(rec)
	e.log.Info("capture stopped", "recording", rec.ID(), "bytes", len(rec.Bytes()))
	return rec, nil
}

// SetRecording replaces the engine's recording and disposes every chain, so
// the next play rebuilds them from the new audio.
func (e *Engine) SetRecording(rec *audio.Recording) {
	e.mu.Lock()
	e.rec = rec
	e.mu.Unlock()
	e.reg.DisposeAll()
}

// Play starts every selected offset against one shared reference time and
// returns it. Fails with [ErrCapturing] while a capture is running and with
// [ErrNoRecording] when nothing has been recorded yet. Playing an empty
// selection is a no-op.
func (e *Engine) Play(ctx context.Context) (time.Time, error) {
	e.mu.Lock()
	capturing := e.capture != nil
	rec := e.rec
	e.mu.Unlock()
	if capturing {
		return time.Time{}, ErrCapturing
	}
	return e.orch.Play(ctx, e.sel.Offsets(), rec)
}

// RecordingReady reports whether the engine holds a playable recording.
func (e *Engine) RecordingReady() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Ready()
}

// Recording returns the engine's current recording, or nil.
func (e *Engine) Recording() *audio.Recording {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec
}

// Active reports whether o is currently selected.
func (e *Engine) Active(o Offset) bool { return e.sel.Active(o) }

// Offsets returns a sorted snapshot of the selected offsets.
func (e *Engine) Offsets() []Offset { return e.sel.Offsets() }

// Capturing reports whether a capture session is running.
func (e *Engine) Capturing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.capture != nil
}

// State reports the playback state.
func (e *Engine) State() State { return e.orch.State() }

// ChainCount returns the number of live chains.
func (e *Engine) ChainCount() int { return e.reg.Len() }

// Close aborts any running capture and disposes every chain.
func (e *Engine) Close() error {
	e.mu.Lock()
	handle := e.capture
	e.capture = nil
	e.mu.Unlock()
	if handle != nil {
		if _, err := handle.Stop(); err != nil {
			e.log.Warn("stopping capture during shutdown", "error", err)
		}
	}
	e.reg.DisposeAll()
	return nil
}
