// Package fusion reconciles two asynchronous classifier streams into a single
// debounced presence state.
//
// Visual and acoustic detections arrive at unrelated, bursty rates and are
// aggregated into fixed windows. Each window flush produces one raw state,
// which a debouncer stabilizes before any transition is announced. A trust
// cache bridges short visual dropouts so a briefly-hidden cat does not flap
// the state.
package fusion

import "time"

// Source identifies which classifier produced a detection.
type Source string

const (
	// SourceVisual is the frame classifier (image labels).
	SourceVisual Source = "visual"

	// SourceAcoustic is the audio-chunk classifier (sound labels).
	SourceAcoustic Source = "acoustic"
)

// Detection is one classifier output: a label with a confidence. Detections
// are transient; they exist only until consumed into a window.
type Detection struct {
	Category   string    `json:"category"`
	Confidence float64   `json:"confidence"`
	Source     Source    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
}
