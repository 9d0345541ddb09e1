package protocol

import (
	"encoding/base64"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewNotificationMessage creates a notification message for the host
func NewNotificationMessage(text, sourceTag, state string, timestampMs int64, metadata map[string]any) (*Message, error) {
	return NewMessage(TypeNotification, NotificationData{
		Text:      text,
		SourceTag: sourceTag,
		State:     state,
		Timestamp: timestampMs,
		Metadata:  metadata,
	})
}

// NewTransitionMessage creates a transition message for the dashboard
func NewTransitionMessage(old, new string, trustOverride bool, emotionID string) (*Message, error) {
	return NewMessage(TypeTransition, TransitionData{
		Old:           old,
		New:           new,
		TrustOverride: trustOverride,
		Emotion:       emotionID,
	})
}

// NewStatsMessage creates a stats message for the dashboard
func NewStatsMessage(stats StatsData) (*Message, error) {
	return NewMessage(TypeStats, stats)
}

// NewAnalysisMessage creates a deep-analysis result message
func NewAnalysisMessage(text string, targetPresent bool, confidence float64) (*Message, error) {
	return NewMessage(TypeAnalysis, AnalysisData{
		Text:          text,
		TargetPresent: targetPresent,
		Confidence:    confidence,
	})
}

// NewDetectionMessage creates a detection message from the host
func NewDetectionMessage(source, category string, confidence float64) (*Message, error) {
	return NewMessage(TypeDetection, DetectionData{
		Source:     source,
		Category:   category,
		Confidence: confidence,
	})
}

// NewFrameMessage creates a frame message from raw JPEG data
func NewFrameMessage(width, height int, jpegData []byte) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{
		Width:  width,
		Height: height,
		Format: "jpeg",
		Data:   base64.StdEncoding.EncodeToString(jpegData),
	})
}

// NewAudioMessage creates an audio chunk message
func NewAudioMessage(data []byte, format string, sampleRate int) (*Message, error) {
	return NewMessage(TypeAudio, AudioData{
		Format:     format,
		SampleRate: sampleRate,
		Channels:   1,
		Data:       base64.StdEncoding.EncodeToString(data),
	})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: 0, // Will be set by NewMessage
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetNotificationData extracts notification data from a message
func (m *Message) GetNotificationData() (*NotificationData, error) {
	var data NotificationData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTransitionData extracts transition data from a message
func (m *Message) GetTransitionData() (*TransitionData, error) {
	var data TransitionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStatsData extracts stats data from a message
func (m *Message) GetStatsData() (*StatsData, error) {
	var data StatsData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAnalysisData extracts analysis data from a message
func (m *Message) GetAnalysisData() (*AnalysisData, error) {
	var data AnalysisData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetDetectionData extracts detection data from a message
func (m *Message) GetDetectionData() (*DetectionData, error) {
	var data DetectionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeFrameData decodes the base64 image data
func (f *FrameData) DecodeFrameData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

// GetAudioData extracts audio data from a message
func (m *Message) GetAudioData() (*AudioData, error) {
	var data AudioData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeAudioData decodes the base64 audio data
func (a *AudioData) DecodeAudioData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(a.Data)
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
