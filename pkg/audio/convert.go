package audio

// Sample conversion helpers shared by the WAV codec and the device backends.
// All PCM byte layouts are little-endian int16, matching both the capture
// path and the oto output format.

// Float64ToInt16LE converts samples in [-1, 1] to little-endian int16 PCM
// bytes. Out-of-range samples are clamped rather than wrapped.
func Float64ToInt16LE(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int32(s * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// Int16LEToFloat64 converts little-endian int16 PCM bytes to samples in
// [-1, 1]. A trailing odd byte is ignored.
func Int16LEToFloat64(pcm []byte) []float64 {
	n := len(pcm) / 2
	out := make([]float64, n)
	for i := range n {
		v := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float64(v) / 32768
	}
	return out
}

// MixDownMono averages interleaved multi-channel samples into mono. For
// channels <= 1 the input is returned unchanged.
func MixDownMono(samples []float64, channels int) []float64 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}
