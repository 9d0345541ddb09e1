// Package protocol defines the WebSocket message types spoken between the
// engine, the host, and the monitor dashboard.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Engine → Host / Dashboard messages
	TypeNotification MessageType = "notification" // Formatted presence notification
	TypeTransition   MessageType = "transition"   // Raw state transition
	TypeStats        MessageType = "stats"        // Engine counters
	TypeAnalysis     MessageType = "analysis"     // Deep-analysis result

	// Host → Engine messages
	TypeDetection MessageType = "detection" // Classifier detection
	TypeFrame     MessageType = "frame"     // Camera frame
	TypeAudio     MessageType = "audio"     // Audio chunk

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// NotificationData is a formatted presence notification for the host.
type NotificationData struct {
	Text      string         `json:"text"`
	SourceTag string         `json:"source_tag"`
	State     string         `json:"state"`
	Timestamp int64          `json:"timestamp"` // Unix milliseconds
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TransitionData is a raw state transition for the dashboard.
type TransitionData struct {
	Old           string `json:"old"`
	New           string `json:"new"`
	TrustOverride bool   `json:"trust_override,omitempty"`
	Emotion       string `json:"emotion,omitempty"`
}

// StatsData carries engine counters for the dashboard.
type StatsData struct {
	State       string `json:"state"`
	Ticks       uint64 `json:"ticks"`
	Transitions uint64 `json:"transitions"`
	Detections  uint64 `json:"detections"`
	Clients     int    `json:"clients"`
}

// AnalysisData is a deep-analysis result for the dashboard.
type AnalysisData struct {
	Text          string  `json:"text"`
	TargetPresent bool    `json:"target_present"`
	Confidence    float64 `json:"confidence"`
}

// DetectionData is one classifier detection from the host.
type DetectionData struct {
	Source     string  `json:"source"` // "visual" or "acoustic"
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// FrameData contains a camera frame from the host.
type FrameData struct {
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Format string `json:"format"` // "jpeg"
	Data   string `json:"data"`   // base64 encoded
}

// AudioData contains an audio chunk from the host.
type AudioData struct {
	Format     string `json:"format"`      // "pcm16", "opus"
	SampleRate int    `json:"sample_rate"` // e.g., 16000
	Channels   int    `json:"channels"`    // 1 for mono
	Data       string `json:"data"`        // base64 encoded
}

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
