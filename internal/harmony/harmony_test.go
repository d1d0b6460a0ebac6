package harmony_test

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/bli0428/vocalharmony/pkg/audio"
)

// testSampleRate keeps fixtures small so pitch shifting stays fast in tests.
const testSampleRate = 8000

// testRecording encodes half a second of a 220 Hz sine as a WAV recording.
func testRecording(t *testing.T) *audio.Recording {
	t.Helper()
	return sineRecording(t, testSampleRate/2)
}

// sineRecording encodes n samples of a 220 Hz sine as a WAV recording.
func sineRecording(t *testing.T, n int) *audio.Recording {
	t.Helper()
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*220*float64(i)/testSampleRate)
	}
	data, err := audio.EncodeWAV(samples, testSampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	return audio.NewRecording(data, audio.ContentTypeWAV)
}

// fakeClock is a settable clock for pinning orchestrator reference times.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
