package emotion

// span is an inclusive range test over a normalized feature. A nil span in a
// rule means "don't care".
type span struct {
	lo, hi float64
}

func (s *span) contains(x float64) bool {
	return s == nil || (x >= s.lo && x <= s.hi)
}

func between(lo, hi float64) *span { return &span{lo: lo, hi: hi} }
func atMost(hi float64) *span      { return &span{lo: 0, hi: hi} }
func atLeast(lo float64) *span     { return &span{lo: lo, hi: 1} }

// rule is one row of the decision table: a conjunction of range tests over
// the normalized features, yielding a fixed confidence when every test holds.
type rule struct {
	ID         string
	Category   Category
	Confidence float64

	ZCR      *span
	Centroid *span
	Rolloff  *span
	Energy   *span
	RMS      *span
}

func (r *rule) matches(n Normalized) bool {
	return r.ZCR.contains(n.ZCR) &&
		r.Centroid.contains(n.Centroid) &&
		r.Rolloff.contains(n.Rolloff) &&
		r.Energy.contains(n.Energy) &&
		r.RMS.contains(n.RMS)
}

// rules is the full decision table: 21 rules partitioned into the three
// reaction categories. Ranges were tuned against recorded cat vocalization
// samples; treat the table as data. Table order is the tie-break order.
var rules = []rule{
	// --- friendly: purrs, trills, soft mews. Low buzz, low centroid. ---
	{
		ID: "comfortable", Category: CategoryFriendly, Confidence: 0.80,
		ZCR: atMost(0.30), Centroid: atMost(0.30), Rolloff: atMost(0.50),
	},
	{
		ID: "content_purr", Category: CategoryFriendly, Confidence: 0.75,
		ZCR: atMost(0.20), Centroid: atMost(0.25), Energy: atLeast(0.30),
	},
	{
		ID: "greeting_trill", Category: CategoryFriendly, Confidence: 0.70,
		ZCR: between(0.20, 0.50), Centroid: between(0.20, 0.50), Rolloff: between(0.30, 0.70),
	},
	{
		ID: "playful_chirp", Category: CategoryFriendly, Confidence: 0.70,
		ZCR: between(0.40, 0.70), Centroid: between(0.30, 0.60), Energy: atLeast(0.20),
	},
	{
		ID: "affectionate", Category: CategoryFriendly, Confidence: 0.65,
		ZCR: atMost(0.35), Centroid: atMost(0.40), RMS: between(0.20, 0.80),
	},
	{
		ID: "soft_mew", Category: CategoryFriendly, Confidence: 0.60,
		ZCR: atMost(0.40), Centroid: atMost(0.50), Energy: atMost(0.20), RMS: atMost(0.30),
	},
	{
		ID: "relaxed_drone", Category: CategoryFriendly, Confidence: 0.55,
		ZCR: atMost(0.15), Rolloff: atMost(0.40),
	},

	// --- attention: demanding meows and calls. Mid ranges across the board. ---
	{
		ID: "hungry_meow", Category: CategoryAttention, Confidence: 0.85,
		ZCR: between(0.30, 0.60), Centroid: between(0.40, 0.70), Energy: atLeast(0.40),
	},
	{
		ID: "demand_meow", Category: CategoryAttention, Confidence: 0.80,
		ZCR: between(0.35, 0.65), Centroid: between(0.45, 0.75), RMS: atLeast(0.50),
	},
	{
		ID: "insistent_call", Category: CategoryAttention, Confidence: 0.75,
		ZCR: between(0.40, 0.70), Rolloff: between(0.50, 0.90), RMS: atLeast(0.40),
	},
	{
		ID: "attention_chirp", Category: CategoryAttention, Confidence: 0.70,
		ZCR: between(0.50, 0.80), Centroid: between(0.40, 0.70), Energy: between(0.20, 0.80),
	},
	{
		ID: "curious_mew", Category: CategoryAttention, Confidence: 0.65,
		ZCR: between(0.30, 0.55), Centroid: between(0.30, 0.60), Energy: between(0.10, 0.50),
	},
	{
		ID: "questioning_trill", Category: CategoryAttention, Confidence: 0.60,
		ZCR: between(0.25, 0.50), Centroid: between(0.35, 0.65), Rolloff: between(0.40, 0.80),
	},
	{
		ID: "restless_mew", Category: CategoryAttention, Confidence: 0.55,
		ZCR: between(0.30, 0.60), Energy: between(0.30, 0.70),
	},

	// --- warning: yowls, growls, hisses. High buzz or high centroid + energy. ---
	{
		ID: "distress_yowl", Category: CategoryWarning, Confidence: 0.90,
		ZCR: atLeast(0.60), Centroid: atLeast(0.60), Energy: atLeast(0.60),
	},
	{
		ID: "angry_growl", Category: CategoryWarning, Confidence: 0.85,
		ZCR: atMost(0.25), Centroid: atLeast(0.50), Energy: atLeast(0.50), RMS: atLeast(0.60),
	},
	{
		ID: "hiss", Category: CategoryWarning, Confidence: 0.85,
		ZCR: atLeast(0.70), Rolloff: atLeast(0.70), Energy: atLeast(0.30),
	},
	{
		ID: "pain_cry", Category: CategoryWarning, Confidence: 0.80,
		ZCR: between(0.40, 0.70), Centroid: atLeast(0.65), Energy: atLeast(0.70),
	},
	{
		ID: "defensive_snarl", Category: CategoryWarning, Confidence: 0.75,
		ZCR: between(0.50, 0.80), Centroid: atLeast(0.55), RMS: atLeast(0.50),
	},
	{
		ID: "fearful_shriek", Category: CategoryWarning, Confidence: 0.75,
		ZCR: atLeast(0.65), Centroid: atLeast(0.60), RMS: atLeast(0.70),
	},
	{
		ID: "territorial_howl", Category: CategoryWarning, Confidence: 0.70,
		ZCR: between(0.20, 0.50), Centroid: between(0.50, 0.80), Rolloff: atLeast(0.60), Energy: atLeast(0.50),
	},
}

// RuleCount returns the size of the decision table. Exposed so callers and
// tests can sanity-check the table without reaching into package internals.
func RuleCount() int { return len(rules) }
