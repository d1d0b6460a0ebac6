package harmony

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's state guards and chain lifecycle.
var (
	// ErrNoRecording is returned by Play before any successful capture.
	// The request is a no-op; the registry is left untouched.
	ErrNoRecording = errors.New("harmony: no recording captured")

	// ErrNotLoaded is returned by Chain.StartAt before a successful Load.
	// It indicates a programming invariant violation, not a user error.
	ErrNotLoaded = errors.New("harmony: chain not loaded")

	// ErrDisposed is returned by Chain.Load after the chain was disposed.
	ErrDisposed = errors.New("harmony: chain disposed")

	// ErrOffsetRange is returned for offsets outside [MinOffset, MaxOffset].
	ErrOffsetRange = errors.New("harmony: offset outside semitone grid")

	// ErrPlayPending is returned by Play while a previous play request is
	// still preparing its chains.
	ErrPlayPending = errors.New("harmony: a play request is already in progress")

	// ErrCapturing is returned by Play while a capture is in progress;
	// capture and playback are mutually exclusive.
	ErrCapturing = errors.New("harmony: capture in progress")

	// ErrPlaying is returned by StartRecording while voices are playing.
	ErrPlaying = errors.New("harmony: playback in progress")

	// ErrNotCapturing is returned by StopRecording without an active capture.
	ErrNotCapturing = errors.New("harmony: no capture in progress")
)

// LoadError reports that binding a recording to the chain for a specific
// offset failed, either because the buffer was empty or because decoding
// failed. A LoadError aborts the whole play request.
type LoadError struct {
	// Offset identifies the chain whose load failed.
	Offset Offset

	// Err is the underlying decode or bind error.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("harmony: load chain %s: %v", e.Offset, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *LoadError) Unwrap() error { return e.Err }
