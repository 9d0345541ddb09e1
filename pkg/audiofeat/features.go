// Package audiofeat extracts a compact acoustic descriptor from raw sample
// buffers. The descriptor feeds the emotion rule engine in pkg/emotion.
//
// All features are computed in the time domain in a single O(n) pass. The
// spectral centroid and rolloff are time-domain proxies (magnitude-weighted
// index statistics), not FFT-based measures; they are cheap and stable enough
// to separate cat vocalization classes.
package audiofeat

import (
	"errors"
	"math"
)

// Sentinel errors for rejected input buffers.
var (
	// ErrEmptyBuffer is returned when the sample buffer has no samples.
	ErrEmptyBuffer = errors.New("audiofeat: empty sample buffer")

	// ErrSilentBuffer is returned when every sample is zero. A silent
	// buffer has no defined centroid or rolloff, so it is rejected rather
	// than mapped to a degenerate zero vector.
	ErrSilentBuffer = errors.New("audiofeat: all-zero sample buffer")
)

// Vector is the five-scalar acoustic descriptor. All fields are non-negative.
type Vector struct {
	// ZeroCrossingRate is the fraction of adjacent sample pairs whose
	// signs differ (0-1).
	ZeroCrossingRate float64

	// SpectralCentroid is the magnitude-weighted mean sample index.
	SpectralCentroid float64

	// SpectralRolloff is the fractional index (0-1) at which cumulative
	// absolute amplitude reaches 85% of the total.
	SpectralRolloff float64

	// Energy is the mean of squared samples.
	Energy float64

	// RMS is the root of Energy.
	RMS float64
}

// rolloffFraction is the cumulative-amplitude fraction used for the rolloff
// feature.
const rolloffFraction = 0.85

// Extract computes the feature vector for a buffer of samples in [-1, 1].
//
// Empty and all-zero buffers are rejected (ErrEmptyBuffer, ErrSilentBuffer);
// callers should skip feature extraction for such chunks instead of
// classifying noise floors.
func Extract(samples []float64) (Vector, error) {
	if len(samples) == 0 {
		return Vector{}, ErrEmptyBuffer
	}

	var (
		crossings    int
		weightedSum  float64 // sum of i * |x[i]|
		magnitudeSum float64 // sum of |x[i]|
		squareSum    float64 // sum of x[i]^2
	)

	prev := samples[0]
	for i, s := range samples {
		if i > 0 {
			if (s < 0) != (prev < 0) {
				crossings++
			}
			prev = s
		}

		mag := math.Abs(s)
		weightedSum += float64(i) * mag
		magnitudeSum += mag
		squareSum += s * s
	}

	if magnitudeSum == 0 {
		return Vector{}, ErrSilentBuffer
	}

	n := len(samples)

	zcr := 0.0
	if n > 1 {
		zcr = float64(crossings) / float64(n-1)
	}

	// Second pass for rolloff: first index where the cumulative magnitude
	// reaches the threshold.
	threshold := rolloffFraction * magnitudeSum
	var cumulative float64
	rolloffIdx := n - 1
	for i, s := range samples {
		cumulative += math.Abs(s)
		if cumulative >= threshold {
			rolloffIdx = i
			break
		}
	}

	energy := squareSum / float64(n)

	return Vector{
		ZeroCrossingRate: zcr,
		SpectralCentroid: weightedSum / magnitudeSum,
		SpectralRolloff:  float64(rolloffIdx) / float64(n),
		Energy:           energy,
		RMS:              math.Sqrt(energy),
	}, nil
}
