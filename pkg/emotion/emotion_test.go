package emotion

import (
	"testing"

	"github.com/purrlab/go-whisker/pkg/audiofeat"
)

func TestNormalize_ClampsToUnitRange(t *testing.T) {
	n := Normalize(audiofeat.Vector{
		ZeroCrossingRate: 0.5,  // x10 = 5, clamps to 1
		SpectralCentroid: 9000, // /5000 = 1.8, clamps to 1
		SpectralRolloff:  0.9,  // x2 = 1.8, clamps to 1
		Energy:           0.1,  // x1e6 clamps to 1
		RMS:              0.3,  // x1e3 clamps to 1
	})

	if n.ZCR != 1 || n.Centroid != 1 || n.Rolloff != 1 || n.Energy != 1 || n.RMS != 1 {
		t.Errorf("expected all features clamped to 1, got %+v", n)
	}
}

func TestNormalize_LinearBelowCaps(t *testing.T) {
	n := Normalize(audiofeat.Vector{
		ZeroCrossingRate: 0.01,
		SpectralCentroid: 800,
		SpectralRolloff:  0.2,
		Energy:           2e-7,
		RMS:              0.0004,
	})

	want := Normalized{ZCR: 0.1, Centroid: 0.16, Rolloff: 0.4, Energy: 0.2, RMS: 0.4}
	if n != want {
		t.Errorf("Normalize: got %+v, want %+v", n, want)
	}
}

func TestClassify_ComfortableExample(t *testing.T) {
	// The canonical quiet-contented vector: all-low buzz and centroid.
	res := Classify(audiofeat.Vector{
		ZeroCrossingRate: 0.01,
		SpectralCentroid: 800,
		SpectralRolloff:  0.2,
		Energy:           1e-5,
		RMS:              0.001,
	})

	if res == nil {
		t.Fatal("expected a result, got nil")
	}
	if res.EmotionID != "comfortable" {
		t.Errorf("EmotionID: got %q, want comfortable", res.EmotionID)
	}
	if res.Category != CategoryFriendly {
		t.Errorf("Category: got %q, want friendly", res.Category)
	}
	if res.Confidence <= 0.5 {
		t.Errorf("Confidence: got %v, want > 0.5", res.Confidence)
	}
}

func TestClassifyNormalized_EngineeredRuleHits(t *testing.T) {
	tests := []struct {
		name       string
		normalized Normalized
		wantID     string
		wantCat    Category
		wantConf   float64
	}{
		{
			name:       "distress yowl dominates the warning band",
			normalized: Normalized{ZCR: 0.8, Centroid: 0.8, Rolloff: 0.95, Energy: 0.9, RMS: 0.9},
			wantID:     "distress_yowl",
			wantCat:    CategoryWarning,
			wantConf:   0.90,
		},
		{
			name:       "hungry meow in the mid band",
			normalized: Normalized{ZCR: 0.45, Centroid: 0.55, Rolloff: 0.45, Energy: 0.6, RMS: 0.3},
			wantID:     "hungry_meow",
			wantCat:    CategoryAttention,
			wantConf:   0.85,
		},
		{
			name:       "hiss with high buzz and rolloff but low centroid",
			normalized: Normalized{ZCR: 0.85, Centroid: 0.3, Rolloff: 0.9, Energy: 0.5, RMS: 0.4},
			wantID:     "hiss",
			wantCat:    CategoryWarning,
			wantConf:   0.85,
		},
		{
			name:       "soft mew when everything is faint",
			normalized: Normalized{ZCR: 0.35, Centroid: 0.45, Rolloff: 0.9, Energy: 0.05, RMS: 0.2},
			wantID:     "soft_mew",
			wantCat:    CategoryFriendly,
			wantConf:   0.60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ClassifyNormalized(tt.normalized)
			if res == nil {
				t.Fatal("expected a result, got nil")
			}
			if res.EmotionID != tt.wantID {
				t.Errorf("EmotionID: got %q, want %q", res.EmotionID, tt.wantID)
			}
			if res.Category != tt.wantCat {
				t.Errorf("Category: got %q, want %q", res.Category, tt.wantCat)
			}
			if res.Confidence != tt.wantConf {
				t.Errorf("Confidence: got %v, want %v", res.Confidence, tt.wantConf)
			}
		})
	}
}

func TestClassifyNormalized_NoMatchReturnsNil(t *testing.T) {
	// Mid-high ZCR with low centroid, low rolloff, no energy: outside every
	// rule's conjunction.
	res := ClassifyNormalized(Normalized{ZCR: 0.62, Centroid: 0.05, Rolloff: 0.1, Energy: 0.0, RMS: 0.9})
	if res != nil {
		t.Errorf("expected nil, got %+v", res)
	}
}

func TestClassifyNormalized_TieBreakFirstDefined(t *testing.T) {
	// Hits both angry_growl and hiss is impossible (disjoint ZCR), but
	// defensive_snarl and fearful_shriek share confidence 0.75 and overlap at
	// ZCR 0.65-0.80 with high centroid and RMS. The first-defined rule
	// (defensive_snarl) must win.
	res := ClassifyNormalized(Normalized{ZCR: 0.7, Centroid: 0.7, Rolloff: 0.3, Energy: 0.2, RMS: 0.8})
	if res == nil {
		t.Fatal("expected a result, got nil")
	}
	if res.EmotionID != "defensive_snarl" {
		t.Errorf("tie-break: got %q, want defensive_snarl", res.EmotionID)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	v := audiofeat.Vector{
		ZeroCrossingRate: 0.05,
		SpectralCentroid: 2600,
		SpectralRolloff:  0.25,
		Energy:           6e-7,
		RMS:              0.0006,
	}
	first := Classify(v)
	for i := 0; i < 10; i++ {
		if got := Classify(v); (got == nil) != (first == nil) || (got != nil && *got != *first) {
			t.Fatalf("Classify not deterministic: run %d got %+v, want %+v", i, got, first)
		}
	}
}

func TestRules_TableShape(t *testing.T) {
	if RuleCount() != 21 {
		t.Errorf("rule table size: got %d, want 21", RuleCount())
	}

	counts := map[Category]int{}
	for i := range rules {
		counts[rules[i].Category]++
		if rules[i].Confidence <= 0 || rules[i].Confidence > 1 {
			t.Errorf("rule %q has confidence %v outside (0, 1]", rules[i].ID, rules[i].Confidence)
		}
	}
	for _, cat := range []Category{CategoryFriendly, CategoryAttention, CategoryWarning} {
		if counts[cat] != 7 {
			t.Errorf("category %s: got %d rules, want 7", cat, counts[cat])
		}
	}
}
