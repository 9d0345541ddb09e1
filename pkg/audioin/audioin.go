// Package audioin turns host audio chunks into the normalized float samples
// the feature extractor consumes. Opus payloads are decoded through libopus;
// PCM16 chunks are converted directly.
package audioin

import (
	"fmt"

	opus "gopkg.in/hraban/opus.v2"
)

const (
	// DefaultSampleRate is the rate the engine analyzes audio at.
	DefaultSampleRate = 16000

	// opusMaxFrame is the largest Opus frame: 120ms at 48kHz.
	opusMaxFrame = 5760
)

// BytesToSamples converts raw PCM16 little-endian bytes to int16 samples.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// SamplesToBytes converts int16 samples to raw PCM16 little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data
}

// SamplesToFloat converts int16 samples to float64 in [-1, 1).
func SamplesToFloat(samples []int16) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) / 32768.0
	}
	return out
}

// Resample converts audio from one sample rate to another using linear
// interpolation. Good enough for feature extraction; not for playback.
func Resample(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate {
		return samples
	}

	if len(samples) == 0 {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	newLen := int(float64(len(samples)) / ratio)

	if newLen == 0 {
		return []int16{}
	}

	result := make([]int16, newLen)

	for i := 0; i < newLen; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		if srcIdx >= len(samples)-1 {
			result[i] = samples[len(samples)-1]
		} else {
			// Linear interpolation
			s1 := float64(samples[srcIdx])
			s2 := float64(samples[srcIdx+1])
			result[i] = int16(s1 + frac*(s2-s1))
		}
	}

	return result
}

// DecodePCM16 converts a PCM16 chunk at fromRate into analysis-rate float
// samples.
func DecodePCM16(data []byte, fromRate int) []float64 {
	samples := BytesToSamples(data)
	if fromRate != DefaultSampleRate {
		samples = Resample(samples, fromRate, DefaultSampleRate)
	}
	return SamplesToFloat(samples)
}

// Decoder decodes Opus payloads into analysis-rate float samples.
type Decoder struct {
	dec      *opus.Decoder
	buf      []int16
	fromRate int
}

// NewDecoder creates a decoder for Opus payloads at sampleRate (typically
// 48000) mono.
func NewDecoder(sampleRate int) (*Decoder, error) {
	dec, err := opus.NewDecoder(sampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("opus decoder: %w", err)
	}
	return &Decoder{
		dec:      dec,
		buf:      make([]int16, opusMaxFrame),
		fromRate: sampleRate,
	}, nil
}

// Decode decodes one Opus payload into analysis-rate float samples.
func (d *Decoder) Decode(payload []byte) ([]float64, error) {
	n, err := d.dec.Decode(payload, d.buf)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}

	samples := d.buf[:n]
	if d.fromRate != DefaultSampleRate {
		samples = Resample(samples, d.fromRate, DefaultSampleRate)
	}
	return SamplesToFloat(samples), nil
}
