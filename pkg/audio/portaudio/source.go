// Package portaudio implements the [audio.Source] capture interface on top
// of the PortAudio bindings. It records the default input device into memory
// and encodes the take as a WAV [audio.Recording] when capture stops.
package portaudio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	pa "github.com/gordonklaus/portaudio"

	"github.com/bli0428/vocalharmony/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Source        = (*Source)(nil)
	_ audio.CaptureHandle = (*handle)(nil)
)

// DefaultFramesPerBuffer is the capture callback buffer size in frames.
// PortAudio invokes the callback once per buffer; 512 frames keeps callback
// pressure low while bounding capture latency under 12 ms at 44.1 kHz.
const DefaultFramesPerBuffer = 512

// Source captures mono audio from the system's default input device.
// One Source supports one capture at a time.
type Source struct {
	sampleRate int
	frames     int

	mu        sync.Mutex
	capturing bool
}

// Option configures a [Source] during construction.
type Option func(*Source)

// WithFramesPerBuffer overrides [DefaultFramesPerBuffer].
func WithFramesPerBuffer(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.frames = n
		}
	}
}

// New creates a capture source recording at the given sample rate.
func New(sampleRate int, opts ...Option) *Source {
	s := &Source{
		sampleRate: sampleRate,
		frames:     DefaultFramesPerBuffer,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start implements [audio.Source]. It initialises PortAudio, opens the
// default input stream, and begins accumulating samples until the returned
// handle's Stop is called.
func (s *Source) Start(ctx context.Context) (audio.CaptureHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capturing {
		return nil, &audio.CaptureError{Op: "start", Err: errCaptureInProgress}
	}

	if err := pa.Initialize(); err != nil {
		return nil, &audio.CaptureError{Op: "initialize", Err: err}
	}

	h := &handle{src: s}
	stream, err := pa.OpenDefaultStream(1, 0, float64(s.sampleRate), s.frames, h.callback)
	if err != nil {
		_ = pa.Terminate()
		return nil, &audio.CaptureError{Op: "open stream", Err: err}
	}
	h.stream = stream

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = pa.Terminate()
		return nil, &audio.CaptureError{Op: "start stream", Err: err}
	}

	h.startedAt = time.Now()
	s.capturing = true
	slog.Debug("capture started", "sample_rate", s.sampleRate, "frames_per_buffer", s.frames)
	return h, nil
}

// handle is an in-progress capture on the default input device.
type handle struct {
	src       *Source
	stream    *pa.Stream
	startedAt time.Time

	mu      sync.Mutex
	samples []float64
	stopped bool
}

// callback runs on the PortAudio capture thread. It must not block.
func (h *handle) callback(in []float32) {
	h.mu.Lock()
	for _, v := range in {
		h.samples = append(h.samples, float64(v))
	}
	h.mu.Unlock()
}

// Stop implements [audio.CaptureHandle]. It tears down the stream and
// encodes the accumulated samples as a WAV recording.
func (h *handle) Stop() (*audio.Recording, error) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil, &audio.CaptureError{Op: "stop", Err: errCaptureStopped}
	}
	h.stopped = true
	samples := h.samples
	h.samples = nil
	h.mu.Unlock()

	stopErr := h.stream.Stop()
	closeErr := h.stream.Close()
	termErr := pa.Terminate()

	h.src.mu.Lock()
	h.src.capturing = false
	h.src.mu.Unlock()

	switch {
	case stopErr != nil:
		return nil, &audio.CaptureError{Op: "stop stream", Err: stopErr}
	case closeErr != nil:
		return nil, &audio.CaptureError{Op: "close stream", Err: closeErr}
	case termErr != nil:
		return nil, &audio.CaptureError{Op: "terminate", Err: termErr}
	}

	data, err := audio.EncodeWAV(samples, h.src.sampleRate)
	if err != nil {
		return nil, &audio.CaptureError{Op: "encode", Err: err}
	}

	rec := audio.NewRecording(data, audio.ContentTypeWAV)
	slog.Info("capture stopped",
		"recording_id", rec.ID(),
		"duration", time.Since(h.startedAt).Round(time.Millisecond),
		"samples", len(samples),
	)
	return rec, nil
}

var (
	errCaptureInProgress = &captureStateError{"a capture is already in progress"}
	errCaptureStopped    = &captureStateError{"capture already stopped"}
)

type captureStateError struct{ msg string }

func (e *captureStateError) Error() string { return e.msg }
