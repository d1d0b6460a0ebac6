package harmony

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cwbudde/algo-dsp/dsp/effects/pitch"

	"github.com/bli0428/vocalharmony/pkg/audio"
)

// placeholderRate seeds the pitch shifter before the first Load reveals the
// recording's actual sample rate.
const placeholderRate = 44100.0

type chainState int

const (
	stateCreated chainState = iota
	stateLoaded
	stateDisposed
)

// Chain is one voice: a device player wired behind a pitch-shift stage,
// bound to exactly one [Offset].
//
// Lifecycle: a chain is created unloaded, becomes loaded when [Chain.Load]
// binds it to a recording, and ends disposed when [Chain.Dispose] releases
// its resources. Dispose wins races against an in-flight Load: a load that
// completes after Dispose binds nothing.
type Chain struct {
	offset  Offset
	params  ChainParams
	player  audio.Player
	shifter *pitch.PitchShifter

	mu    sync.Mutex
	state chainState
	recID string
	// gen is bumped on every Dispose so that a Load which started before
	// the dispose can detect it went stale and drop its result.
	gen uint64
}

// NewChain allocates a player from the device and a pitch-shift stage
// parameterised for the given offset. It touches no shared state beyond the
// device allocation; registration is the registry's job.
func NewChain(offset Offset, dev audio.Device, params ChainParams) (*Chain, error) {
	if !offset.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrOffsetRange, offset)
	}
	params = params.withDefaults()

	player, err := dev.NewPlayer()
	if err != nil {
		return nil, fmt.Errorf("harmony: allocate player for %s: %w", offset, err)
	}

	shifter, err := pitch.NewPitchShifter(placeholderRate)
	if err == nil {
		err = shifter.SetSequence(params.WindowMs)
	}
	if err == nil {
		err = shifter.SetPitchSemitones(float64(offset))
	}
	if err != nil {
		_ = player.Close()
		return nil, fmt.Errorf("harmony: configure shifter for %s: %w", offset, err)
	}

	return &Chain{
		offset:  offset,
		params:  params,
		player:  player,
		shifter: shifter,
	}, nil
}

// Offset returns the chain's pitch offset.
func (c *Chain) Offset() Offset { return c.offset }

// Loaded reports whether the chain holds a bound, startable buffer.
func (c *Chain) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateLoaded
}

// Duration returns the playback length of the bound buffer, or zero when
// the chain is not loaded.
func (c *Chain) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateLoaded {
		return 0
	}
	return c.player.Duration()
}

// Load decodes the recording, pitch-shifts it by the chain's offset, and
// binds the result to the player. Load is idempotent when the chain is
// already bound to the same recording, rebinds when the recording changed,
// and returns a *LoadError when the buffer is empty or undecodable.
//
// A Load racing a Dispose resolves in Dispose's favour: if the chain was
// disposed while this Load was decoding, the completion is dropped and Load
// returns nil without binding anything.
func (c *Chain) Load(ctx context.Context, rec *audio.Recording) error {
	c.mu.Lock()
	switch {
	case c.state == stateDisposed:
		c.mu.Unlock()
		return ErrDisposed
	case c.state == stateLoaded && rec != nil && c.recID == rec.ID():
		c.mu.Unlock()
		return nil
	}
	gen := c.gen
	c.mu.Unlock()

	if !rec.Ready() {
		return &LoadError{Offset: c.offset, Err: audio.ErrEmptyBuffer}
	}

	// Decode and shift outside the lock; both can be slow.
	samples, format, err := audio.DecodeWAV(rec.Bytes())
	if err != nil {
		return &LoadError{Offset: c.offset, Err: err}
	}
	if err := c.shifter.SetSampleRate(float64(format.SampleRate)); err != nil {
		return &LoadError{Offset: c.offset, Err: err}
	}
	shifted := c.shifter.Process(samples)
	if c.params.DelayMs > 0 {
		lead := int(c.params.DelayMs / 1000 * float64(format.SampleRate))
		shifted = append(make([]float64, lead), shifted...)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateDisposed || c.gen != gen {
		// Disposed while decoding; drop the stale completion.
		return nil
	}
	if err := c.player.Bind(ctx, shifted, format); err != nil {
		return &LoadError{Offset: c.offset, Err: err}
	}
	c.state = stateLoaded
	c.recID = rec.ID()
	return nil
}

// StartAt schedules playback at the given reference time. Calling StartAt
// on a chain that was never successfully loaded returns [ErrNotLoaded].
func (c *Chain) StartAt(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateLoaded {
		return fmt.Errorf("%w: chain %s", ErrNotLoaded, c.offset)
	}
	return c.player.StartAt(t)
}

// Dispose releases the player and the pitch-shift stage. The first call
// performs the release; later calls are no-ops returning nil.
func (c *Chain) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateDisposed {
		return nil
	}
	c.state = stateDisposed
	c.recID = ""
	c.gen++
	c.shifter.Reset()
	return c.player.Close()
}
