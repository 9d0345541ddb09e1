package fusion

// State is the four-valued presence state.
type State int

const (
	// StateIdle means neither stream sees the cat.
	StateIdle State = iota

	// StateVisualOnly means the cat is seen but not heard.
	StateVisualOnly

	// StateAudioOnly means the cat is heard but not seen.
	StateAudioOnly

	// StateBoth means both streams agree the cat is present.
	StateBoth
)

// String returns the wire name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateVisualOnly:
		return "visual_only"
	case StateAudioOnly:
		return "audio_only"
	case StateBoth:
		return "both"
	default:
		return "unknown"
	}
}

// HasVisual reports whether the state carries visual presence.
func (s State) HasVisual() bool {
	return s == StateVisualOnly || s == StateBoth
}

// HasAudio reports whether the state carries acoustic presence.
func (s State) HasAudio() bool {
	return s == StateAudioOnly || s == StateBoth
}

// ClassifyState maps the two presence booleans onto a State. Pure: no memory,
// no side effects.
func ClassifyState(hasVisual, hasAudio bool) State {
	switch {
	case hasVisual && hasAudio:
		return StateBoth
	case hasVisual:
		return StateVisualOnly
	case hasAudio:
		return StateAudioOnly
	default:
		return StateIdle
	}
}
