package audio_test

import (
	"testing"

	"github.com/bli0428/vocalharmony/pkg/audio"
)

func TestNewRecording(t *testing.T) {
	t.Parallel()
	data := []byte{1, 2, 3}
	rec := audio.NewRecording(data, audio.ContentTypeWAV)

	if rec.ID() == "" {
		t.Error("recording has no ID")
	}
	if got := rec.ContentType(); got != audio.ContentTypeWAV {
		t.Errorf("ContentType() = %q, want %q", got, audio.ContentTypeWAV)
	}
	if got := rec.Bytes(); len(got) != 3 {
		t.Errorf("Bytes() length = %d, want 3", len(got))
	}
	if rec.CapturedAt().IsZero() {
		t.Error("CapturedAt() is zero")
	}
	if !rec.Ready() {
		t.Error("recording with data should be ready")
	}
}

func TestRecording_DistinctIDs(t *testing.T) {
	t.Parallel()
	a := audio.NewRecording([]byte{1}, audio.ContentTypeWAV)
	b := audio.NewRecording([]byte{1}, audio.ContentTypeWAV)
	if a.ID() == b.ID() {
		t.Error("two recordings share an ID")
	}
}

func TestRecording_Ready(t *testing.T) {
	t.Parallel()
	var nilRec *audio.Recording
	if nilRec.Ready() {
		t.Error("nil recording should not be ready")
	}
	if audio.NewRecording(nil, audio.ContentTypeWAV).Ready() {
		t.Error("empty recording should not be ready")
	}
}
