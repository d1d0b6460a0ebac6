// Package harmony implements the multi-voice playback engine.
//
// The engine maintains a set of selected pitch offsets on a ±12 semitone
// grid, lazily materialises one independent voice chain per active offset,
// keeps chain lifecycles correct as the selection changes, and launches all
// active chains from one shared recording at a single reference time.
//
// The pieces compose bottom-up:
//
//   - [Selection] — the set of active offsets (pure state, toggle semantics).
//   - [Chain] — one playback pipeline bound to one offset: a device player
//     plus a pitch-shift stage.
//   - [Registry] — the owning map from offset to chain; creation, lookup,
//     and disposal with at most one live chain per offset.
//   - [Orchestrator] — the play state machine: ensure every active offset
//     has a loaded chain, then fire all chains at one reference time.
//   - [Engine] — the facade the UI surface talks to; reconciles selection
//     and registry and guards capture against playback.
package harmony

import "fmt"

// Offset is a pitch displacement in semitones relative to the original
// recording. Zero is the unmodified voice. Offsets are the identity key for
// voice chains.
type Offset int

// Offset grid bounds: one octave in either direction.
const (
	MinOffset Offset = -12
	MaxOffset Offset = 12

	// Unison is the unmodified voice.
	Unison Offset = 0
)

// Valid reports whether o lies on the supported semitone grid.
func (o Offset) Valid() bool {
	return o >= MinOffset && o <= MaxOffset
}

// Semitones returns the offset as a plain semitone count.
func (o Offset) Semitones() int { return int(o) }

// String formats the offset with an explicit sign, e.g. "+7", "0", "-12".
func (o Offset) String() string {
	if o == 0 {
		return "0"
	}
	return fmt.Sprintf("%+d", int(o))
}

// Pitch-shift stage defaults. The analysis window drives the WSOLA sequence
// length; the delay is silence prepended before playback starts.
const (
	DefaultWindowMs = 100.0
	DefaultDelayMs  = 0.0
)

// ChainParams are the pitch-shift stage tunables, fixed at chain creation.
type ChainParams struct {
	// WindowMs is the analysis window of the pitch-shift stage in
	// milliseconds. Zero selects [DefaultWindowMs].
	WindowMs float64

	// DelayMs is additional output delay in milliseconds, realised as
	// silence prepended to the shifted buffer. Zero adds no delay.
	DelayMs float64
}

// withDefaults fills zero fields with the package defaults.
func (p ChainParams) withDefaults() ChainParams {
	if p.WindowMs == 0 {
		p.WindowMs = DefaultWindowMs
	}
	return p
}
