package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrEmptyBuffer is returned when decoding a zero-length audio buffer.
var ErrEmptyBuffer = errors.New("audio: empty buffer")

// DecodeWAV decodes a RIFF/WAVE buffer into mono float64 samples in [-1, 1]
// together with the source format. Multi-channel input is mixed down to mono.
func DecodeWAV(data []byte) ([]float64, Format, error) {
	if len(data) == 0 {
		return nil, Format{}, ErrEmptyBuffer
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, Format{}, fmt.Errorf("audio: not a valid wav buffer")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, Format{}, fmt.Errorf("audio: decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, Format{}, fmt.Errorf("audio: wav buffer holds no samples")
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int(1) << (bitDepth - 1))

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float64(v) / scale
	}

	channels := buf.Format.NumChannels
	samples = MixDownMono(samples, channels)

	return samples, Format{SampleRate: buf.Format.SampleRate, Channels: 1}, nil
}

// EncodeWAV encodes mono float64 samples in [-1, 1] as a 16-bit RIFF/WAVE
// buffer at the given sample rate.
func EncodeWAV(samples []float64, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio: encode wav: sample rate must be positive, got %d", sampleRate)
	}

	data := make([]int, len(samples))
	for i, s := range samples {
		v := int(s * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		data[i] = v
	}

	var sb seekBuffer
	enc := wav.NewEncoder(&sb, sampleRate, 16, 1, 1)
	if err := enc.Write(&gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           data,
	}); err != nil {
		return nil, fmt.Errorf("audio: encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("audio: finalize wav: %w", err)
	}

	return sb.buf, nil
}

// seekBuffer is an in-memory io.WriteSeeker. The wav encoder seeks back to
// patch RIFF chunk sizes on Close, which bytes.Buffer cannot support.
type seekBuffer struct {
	buf []byte
	pos int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.buf) {
		if need > cap(b.buf) {
			grown := make([]byte, need, max(need, 2*cap(b.buf)))
			copy(grown, b.buf)
			b.buf = grown
		} else {
			b.buf = b.buf[:need]
		}
	}
	copy(b.buf[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(b.pos) + offset
	case io.SeekEnd:
		pos = int64(len(b.buf)) + offset
	default:
		return 0, fmt.Errorf("audio: seek: invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("audio: seek: negative position %d", pos)
	}
	b.pos = int(pos)
	return pos, nil
}
