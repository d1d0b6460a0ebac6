package audio

import (
	"time"

	"github.com/google/uuid"
)

// ContentTypeWAV is the content type tag for RIFF/WAVE encoded recordings.
const ContentTypeWAV = "audio/wav"

// Recording is an immutable captured audio buffer.
//
// A Recording is created once capture stops and is then shared read-only by
// every voice chain; nothing mutates it afterwards. Re-recording produces a
// brand new Recording rather than modifying an existing one, so the ID is a
// stable identity for idempotent rebind checks.
type Recording struct {
	id          string
	data        []byte
	contentType string
	capturedAt  time.Time
}

// NewRecording wraps the given encoded audio bytes in a Recording. The
// caller hands over ownership of data and must not modify it afterwards.
func NewRecording(data []byte, contentType string) *Recording {
	return &Recording{
		id:          uuid.NewString(),
		data:        data,
		contentType: contentType,
		capturedAt:  time.Now(),
	}
}

// ID returns the unique identity of this recording.
func (r *Recording) ID() string { return r.id }

// Bytes returns the encoded audio buffer. The returned slice is shared;
// callers must treat it as read-only.
func (r *Recording) Bytes() []byte { return r.data }

// ContentType returns the encoding tag, e.g. [ContentTypeWAV].
func (r *Recording) ContentType() string { return r.contentType }

// CapturedAt returns when capture stopped.
func (r *Recording) CapturedAt() time.Time { return r.capturedAt }

// Ready reports whether the recording holds any audio data. A nil Recording
// is not ready, so callers can hold a nil pointer before the first capture.
func (r *Recording) Ready() bool {
	return r != nil && len(r.data) > 0
}
