// Package audio defines the types and interfaces that connect the harmony
// engine to real sound hardware.
//
// The three primary abstractions are:
//
//   - [Source] — captures a microphone take and hands back an immutable
//     [Recording] when capture stops.
//   - [Device] — an output device that allocates [Player] instances and
//     exposes the shared clock used to schedule synchronized starts.
//   - [Player] — a single playback slot: bind a buffer of samples once,
//     then start it at a reference time.
//
// Implementations live in platform-specific adapter packages (audio/oto,
// audio/portaudio). The interfaces are intentionally narrow so that the
// engine stays decoupled from driver details, and so that tests can inject
// the doubles from audio/mock.
//
// This package lives under pkg/ because alternative device or capture
// backends are expected to implement these interfaces.
package audio

import (
	"context"
	"fmt"
	"time"
)

// Format describes the sample rate and channel count of a sample buffer.
type Format struct {
	SampleRate int
	Channels   int
}

// Duration returns the playback duration of n samples in this format.
// Returns zero for a zero or negative sample rate.
func (f Format) Duration(n int) time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	frames := n / f.Channels
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Player is a single playback slot on an output device.
//
// A Player is bound to exactly one sample buffer at a time via [Player.Bind]
// and then scheduled with [Player.StartAt]. Rebinding replaces the previous
// buffer. Implementations must be safe for concurrent use.
type Player interface {
	// Bind prepares the given mono or interleaved sample buffer for playback.
	// Samples are in [-1, 1]; values outside that range are clamped by the
	// implementation. Bind replaces any previously bound buffer.
	Bind(ctx context.Context, samples []float64, format Format) error

	// StartAt schedules playback of the bound buffer to begin at the given
	// reference time on the device's shared clock. Times in the past start
	// playback immediately. Calling StartAt on an unbound player is an error.
	StartAt(t time.Time) error

	// Duration reports the playback length of the bound buffer, or zero if
	// nothing is bound.
	Duration() time.Duration

	// Close releases the playback slot. Close is idempotent.
	Close() error
}

// Device is an output device capable of playing multiple [Player] buffers
// simultaneously. The device (or its driver) mixes concurrent players; no
// explicit mixing logic is required of callers.
//
// Implementations must be safe for concurrent use.
type Device interface {
	// NewPlayer allocates a fresh playback slot.
	NewPlayer() (Player, error)

	// Now returns the current time on the clock shared by all players of
	// this device. Reference times passed to [Player.StartAt] must come from
	// this clock.
	Now() time.Time

	// Close releases the device. Players created from a closed device fail.
	Close() error
}

// CaptureHandle represents an in-progress microphone capture.
type CaptureHandle interface {
	// Stop ends the capture and returns the finished [Recording].
	// Stopping an already-stopped handle returns a *CaptureError.
	Stop() (*Recording, error)
}

// Source is the entry point for a capture backend (microphone).
type Source interface {
	// Start begins capturing a single contiguous audio stream. The supplied
	// ctx governs the lifetime of the capture attempt only; once started,
	// capture continues until [CaptureHandle.Stop] is called.
	Start(ctx context.Context) (CaptureHandle, error)
}

// CaptureError reports a microphone or capture-path failure. It is surfaced
// to the caller without affecting any previously captured recording.
type CaptureError struct {
	// Op names the capture stage that failed (e.g. "open stream").
	Op string

	// Err is the underlying driver error.
	Err error
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	return fmt.Sprintf("audio capture: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *CaptureError) Unwrap() error { return e.Err }
