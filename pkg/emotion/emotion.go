// Package emotion labels cat vocalizations with an emotional category using a
// fixed, hand-authored rule table over normalized acoustic features.
//
// The classifier is deliberately deterministic and data-driven: every rule is
// a conjunction of inclusive range tests on the normalized feature vector and
// yields either zero or its fixed confidence. Extending the classifier means
// adding a row to the table, not a new code path.
package emotion

import "github.com/purrlab/go-whisker/pkg/audiofeat"

// Category groups emotion ids into three reaction classes.
type Category string

const (
	CategoryFriendly  Category = "friendly"
	CategoryAttention Category = "attention"
	CategoryWarning   Category = "warning"
)

// Result is the best-matching emotion for a feature vector.
type Result struct {
	// EmotionID identifies the matched rule (e.g. "comfortable", "hiss").
	EmotionID string `json:"emotion_id"`

	// Confidence is the matched rule's fixed confidence constant.
	Confidence float64 `json:"confidence"`

	// Category is the rule's reaction class.
	Category Category `json:"category"`
}

// Normalized holds the feature vector mapped onto [0, 1] via fixed linear
// caps. Raw values beyond a cap clamp to 1.
type Normalized struct {
	ZCR      float64
	Centroid float64
	Rolloff  float64
	Energy   float64
	RMS      float64
}

// Fixed normalization caps. A raw feature at the cap normalizes to 1.
const (
	zcrScale      = 10.0   // raw ZCR 0.1 is already very buzzy
	centroidScale = 5000.0 // sample-index centroid cap
	rolloffScale  = 2.0    // raw rolloff 0.5 normalizes to 1
	energyScale   = 1e6    // raw energy 1e-6 normalizes to 1
	rmsScale      = 1e3    // raw RMS 1e-3 normalizes to 1
)

// Normalize maps a raw feature vector onto the unit ranges the rule table is
// written against.
func Normalize(v audiofeat.Vector) Normalized {
	return Normalized{
		ZCR:      clamp01(v.ZeroCrossingRate * zcrScale),
		Centroid: clamp01(v.SpectralCentroid / centroidScale),
		Rolloff:  clamp01(v.SpectralRolloff * rolloffScale),
		Energy:   clamp01(v.Energy * energyScale),
		RMS:      clamp01(v.RMS * rmsScale),
	}
}

// minConfidence is the acceptance floor: a best match at or below this yields
// no result.
const minConfidence = 0.5

// Classify returns the best-matching emotion for a raw feature vector, or nil
// when no rule exceeds the confidence floor.
//
// Ties are broken by table order: the first-defined rule at the winning
// confidence is returned. This is a fixed policy, not an accident of
// iteration order.
func Classify(v audiofeat.Vector) *Result {
	return ClassifyNormalized(Normalize(v))
}

// ClassifyNormalized classifies an already-normalized vector. Exposed for
// table-driven tests that engineer exact rule hits.
func ClassifyNormalized(n Normalized) *Result {
	var best *rule
	for i := range rules {
		r := &rules[i]
		if !r.matches(n) {
			continue
		}
		// Strictly greater keeps the first-defined rule on ties.
		if best == nil || r.Confidence > best.Confidence {
			best = r
		}
	}

	if best == nil || best.Confidence <= minConfidence {
		return nil
	}

	return &Result{
		EmotionID:  best.ID,
		Confidence: best.Confidence,
		Category:   best.Category,
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
