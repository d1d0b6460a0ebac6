package harmony

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bli0428/vocalharmony/internal/observe"
	"github.com/bli0428/vocalharmony/pkg/audio"
)

// State describes what the playback side of the system is doing.
type State int

const (
	// StateIdle means no play request is in flight and no audio is audible.
	StateIdle State = iota

	// StatePreparing means a play request is loading chains and has not yet
	// reached its start time.
	StatePreparing

	// StatePlaying means at least one chain is still before its playback
	// end time.
	StatePlaying
)

// String returns a lower-case name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// DefaultStartLead is how far in the future a play request schedules its
// shared start time. It must cover the per-chain scheduling work between
// computing the reference time and the last StartAt call.
const DefaultStartLead = 120 * time.Millisecond

// Orchestrator turns a set of offsets plus a recording into simultaneous
// playback. Every chain in a batch is started against one shared reference
// time computed after all loads finish, so chains that needed a fresh decode
// and chains that were already loaded begin together.
type Orchestrator struct {
	registry *Registry
	metrics  *observe.Metrics
	clock    func() time.Time
	lead     time.Duration
	log      *slog.Logger

	mu           sync.Mutex
	preparing    bool
	playingUntil time.Time
}

// OrchestratorOption customises an [Orchestrator].
type OrchestratorOption func(*Orchestrator)

// WithClock replaces the wall clock. Tests use this to pin the reference
// time.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.clock = now }
}

// WithStartLead sets how far in the future the shared start time is placed.
func WithStartLead(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.lead = d
		}
	}
}

// WithMetrics replaces the metrics instance, mainly for tests that read
// back instrument values through a manual reader.
func WithMetrics(m *observe.Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = l }
}

// NewOrchestrator returns an orchestrator scheduling playback on reg.
func NewOrchestrator(reg *Registry, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		registry: reg,
		clock:    time.Now,
		lead:     DefaultStartLead,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o
}

// Play loads a chain for every offset and starts them all at one shared
// reference time in the near future. It returns that reference time.
//
// An empty offset list is a no-op and returns the zero time. A nil or empty
// recording fails with [ErrNoRecording] before any chain is touched. While a
// previous Play is still loading, further calls fail with [ErrPlayPending].
func (o *Orchestrator) Play(ctx context.Context, offsets []Offset, rec *audio.Recording) (time.Time, error) {
	if len(offsets) == 0 {
		return time.Time{}, nil
	}
	if !rec.Ready() {
		o.metrics.RecordPlayRequest(ctx, "no_recording")
		return time.Time{}, ErrNoRecording
	}

	o.mu.Lock()
	if o.preparing {
		o.mu.Unlock()
		o.metrics.RecordPlayRequest(ctx, "pending")
		return time.Time{}, ErrPlayPending
	}
	o.preparing = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.preparing = false
		o.mu.Unlock()
	}()

	// Load every chain before computing the start time. Chains that already
	// hold this recording return from Load immediately, so the batch is
	// gated on the slowest fresh load.
	chains := make([]*Chain, len(offsets))
	g, gctx := errgroup.WithContext(ctx)
	for i, off := range offsets {
		g.Go(func() error {
			begin := o.clock()
			c, err := o.registry.Ensure(gctx, off, rec)
			if err != nil {
				return err
			}
			o.metrics.RecordChainLoad(ctx, off.String(), o.clock().Sub(begin).Seconds())
			chains[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		o.metrics.RecordPlayRequest(ctx, "error")
		return time.Time{}, err
	}

	// One reference time for the whole batch. Scheduling is cheap compared
	// to the lead, so every player arms its timer well before ref.
	ref := o.clock().Add(o.lead)
	var (
		startErrs []error
		maxDur    time.Duration
	)
	for _, c := range chains {
		if err := c.StartAt(ref); err != nil {
			startErrs = append(startErrs, err)
			continue
		}
		if d := c.Duration(); d > maxDur {
			maxDur = d
		}
	}
	if len(startErrs) > 0 {
		o.metrics.RecordPlayRequest(ctx, "error")
		return time.Time{}, errors.Join(startErrs...)
	}

	o.mu.Lock()
	if until := ref.Add(maxDur); until.After(o.playingUntil) {
		o.playingUntil = until
	}
	o.mu.Unlock()

	o.metrics.RecordPlayRequest(ctx, "ok")
	o.log.Info("playback scheduled",
		"chains", len(chains),
		"start_at", ref,
		"duration", maxDur,
	)
	return ref, nil
}

// State reports the current playback state. Playing decays to idle once the
// longest chain of the last batch has run out.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.preparing {
		return StatePreparing
	}
	if o.clock().Before(o.playingUntil) {
		return StatePlaying
	}
	return StateIdle
}
