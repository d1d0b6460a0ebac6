package audio_test

import (
	"math"
	"testing"

	"github.com/bli0428/vocalharmony/pkg/audio"
)

func TestFloat64ToInt16LE(t *testing.T) {
	t.Parallel()
	pcm := audio.Float64ToInt16LE([]float64{0, 1, -1, 2, -2})
	if len(pcm) != 10 {
		t.Fatalf("pcm length = %d, want 10", len(pcm))
	}

	got := audio.Int16LEToFloat64(pcm)
	want := []float64{0, 32767.0 / 32768, -1, 32767.0 / 32768, -1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("sample %d = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestInt16LEToFloat64_OddTrailingByte(t *testing.T) {
	t.Parallel()
	if got := audio.Int16LEToFloat64([]byte{0, 0, 7}); len(got) != 1 {
		t.Errorf("samples = %d, want 1 (trailing byte dropped)", len(got))
	}
}

func TestMixDownMono(t *testing.T) {
	t.Parallel()
	stereo := []float64{1, 0, 0.5, 0.5, -1, 1}
	got := audio.MixDownMono(stereo, 2)
	want := []float64{0.5, 0.5, 0}
	if len(got) != len(want) {
		t.Fatalf("frames = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestMixDownMono_MonoPassthrough(t *testing.T) {
	t.Parallel()
	in := []float64{0.1, 0.2}
	if got := audio.MixDownMono(in, 1); &got[0] != &in[0] {
		t.Error("mono input should be returned unchanged")
	}
}
