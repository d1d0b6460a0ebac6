// Package oto implements the [audio.Device] and [audio.Player] interfaces
// on top of the oto/v3 playback library.
//
// A single oto context mixes all of its players in the driver, which is
// exactly the multi-voice output contract the harmony engine relies on:
// scheduling several players at the same reference time yields simultaneous
// voices without any explicit mixing logic here.
package oto

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	oto3 "github.com/ebitengine/oto/v3"

	"github.com/bli0428/vocalharmony/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Device = (*Device)(nil)
	_ audio.Player = (*Player)(nil)
)

// Device wraps an oto context as an [audio.Device]. All players created from
// one Device share the context's output stream and therefore its clock.
type Device struct {
	ctx    *oto3.Context
	format audio.Format

	mu     sync.Mutex
	closed bool
}

// New opens the system's default output device at the given sample rate.
// Output is mono little-endian int16, matching the capture pipeline.
// New blocks until the audio hardware is ready.
func New(sampleRate int) (*Device, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("oto: sample rate must be positive, got %d", sampleRate)
	}

	ctx, ready, err := oto3.NewContext(&oto3.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto3.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("oto: open output device: %w", err)
	}
	<-ready

	return &Device{
		ctx:    ctx,
		format: audio.Format{SampleRate: sampleRate, Channels: 1},
	}, nil
}

// NewPlayer implements [audio.Device].
func (d *Device) NewPlayer() (audio.Player, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("oto: device is closed")
	}
	return &Player{dev: d}, nil
}

// Now implements [audio.Device]. oto has no queryable device clock, so the
// shared clock is the monotonic wall clock, which every player of this
// process observes identically.
func (d *Device) Now() time.Time { return time.Now() }

// Close implements [audio.Device]. The oto context itself cannot be torn
// down, so Close only suspends output and refuses new players.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.ctx.Suspend()
}

// Player is a single oto playback slot.
type Player struct {
	dev *Device

	mu      sync.Mutex
	pcm     []byte
	format  audio.Format
	player  *oto3.Player
	pending *time.Timer
	closed  bool
}

// Bind implements [audio.Player]. Samples are converted to the device's
// int16 output format; a sample rate differing from the device's is
// rejected rather than silently resampled.
func (p *Player) Bind(ctx context.Context, samples []float64, format audio.Format) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if format.SampleRate != p.dev.format.SampleRate {
		return fmt.Errorf("oto: sample rate %d does not match device rate %d",
			format.SampleRate, p.dev.format.SampleRate)
	}

	pcm := audio.Float64ToInt16LE(samples)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("oto: player is closed")
	}
	p.stopLocked()
	p.pcm = pcm
	p.format = audio.Format{SampleRate: format.SampleRate, Channels: 1}
	return nil
}

// StartAt implements [audio.Player]. The oto player is created up front so
// that when the reference time arrives only the Play call remains; all
// players scheduled for the same reference time then start within the same
// timer quantum.
func (p *Player) StartAt(t time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("oto: player is closed")
	}
	if p.pcm == nil {
		return fmt.Errorf("oto: no buffer bound")
	}

	p.stopLocked()
	op := p.dev.ctx.NewPlayer(bytes.NewReader(p.pcm))
	p.player = op

	delay := time.Until(t)
	if delay <= 0 {
		op.Play()
		return nil
	}
	p.pending = time.AfterFunc(delay, op.Play)
	return nil
}

// Duration implements [audio.Player].
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	// 2 bytes per mono int16 sample.
	return p.format.Duration(len(p.pcm) / 2)
}

// Close implements [audio.Player]. Close is idempotent.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.stopLocked()
	p.pcm = nil
	return nil
}

// stopLocked cancels any pending start and releases the current oto player.
// Must be called with p.mu held.
func (p *Player) stopLocked() {
	if p.pending != nil {
		p.pending.Stop()
		p.pending = nil
	}
	if p.player != nil {
		_ = p.player.Close()
		p.player = nil
	}
}
