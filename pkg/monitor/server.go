// Package monitor provides the WebSocket server that connects hosts and
// dashboard viewers to the presence engine.
//
// Hosts connect on /ws/host and stream detections, frames, and audio chunks
// in; committed transitions flow back out to them and to any dashboard
// viewers on /ws/dashboard.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/purrlab/go-whisker/internal/observe"
	"github.com/purrlab/go-whisker/pkg/audioin"
	"github.com/purrlab/go-whisker/pkg/emotion"
	"github.com/purrlab/go-whisker/pkg/engine"
	"github.com/purrlab/go-whisker/pkg/protocol"
	"github.com/purrlab/go-whisker/pkg/react"
)

// Ingestor is the engine surface the server feeds. *engine.Engine satisfies
// it.
type Ingestor interface {
	IngestVisual(category string, confidence float64)
	IngestAcoustic(category string, confidence float64)
	IngestAudioSamples(samples []float64) (*emotion.Result, error)
	SetFrame(frame []byte)
	Stats() engine.Stats
}

// HostConnection represents a connected host
type HostConnection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	// Per-host Opus decoder, created lazily on the first opus chunk.
	opusDec *audioin.Decoder

	mu sync.Mutex
}

// Send sends a message to the host
func (h *HostConnection) Send(msg *protocol.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	return h.Conn.WriteMessage(websocket.TextMessage, data)
}

// Server manages host WebSocket connections and the dashboard broadcast.
type Server struct {
	ingestor Ingestor
	logger   *slog.Logger
	metrics  *observe.Metrics

	mu    sync.RWMutex
	hosts map[string]*HostConnection

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	framesReceived   atomic.Uint64
}

// NewServer creates a server feeding detections into ingestor.
func NewServer(ingestor Ingestor, logger *slog.Logger, metrics *observe.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Server{
		ingestor: ingestor,
		logger:   logger.With("component", "monitor"),
		metrics:  metrics,
		hosts:    make(map[string]*HostConnection),
	}
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (s *Server) RegisterRoutes(app *fiber.App) {
	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Host connection endpoint
	app.Get("/ws/host", websocket.New(s.handleHost))
	app.Get("/ws/host/:id", websocket.New(s.handleHost))
}

// handleHost handles a host WebSocket connection
func (s *Server) handleHost(c *websocket.Conn) {
	// Get host ID from path or generate one
	hostID := c.Params("id")
	if hostID == "" {
		hostID = generateHostID()
	}

	host := &HostConnection{
		ID:        hostID,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	// Register host
	s.mu.Lock()
	s.hosts[hostID] = host
	hostCount := len(s.hosts)
	s.mu.Unlock()

	s.metrics.HostConnections.Add(context.Background(), 1)
	s.logger.Info("host connected", "host_id", hostID, "total", hostCount)

	defer func() {
		s.mu.Lock()
		delete(s.hosts, hostID)
		hostCount := len(s.hosts)
		s.mu.Unlock()

		s.metrics.HostConnections.Add(context.Background(), -1)
		s.logger.Info("host disconnected", "host_id", hostID, "total", hostCount)
	}()

	// Read loop
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}

		host.mu.Lock()
		host.LastSeen = time.Now()
		host.mu.Unlock()

		s.messagesReceived.Add(1)
		s.handleMessage(host, data)
	}
}

// handleMessage processes an incoming message from a host
func (s *Server) handleMessage(host *HostConnection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.logger.Debug("parse error", "host_id", host.ID, "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeDetection:
		det, err := msg.GetDetectionData()
		if err != nil {
			return
		}
		s.ingestDetection(det)

	case protocol.TypeFrame:
		s.framesReceived.Add(1)
		frame, err := msg.GetFrameData()
		if err != nil {
			return
		}
		jpeg, err := frame.DecodeFrameData()
		if err != nil {
			s.logger.Debug("frame decode error", "host_id", host.ID, "error", err)
			return
		}
		s.ingestor.SetFrame(jpeg)

	case protocol.TypeAudio:
		audio, err := msg.GetAudioData()
		if err != nil {
			return
		}
		s.ingestAudio(host, audio)

	case protocol.TypePing:
		// Respond with pong
		s.SendPong(host.ID, msg.Timestamp)
	}
}

func (s *Server) ingestDetection(det *protocol.DetectionData) {
	switch det.Source {
	case "visual":
		s.ingestor.IngestVisual(det.Category, det.Confidence)
	case "acoustic":
		s.ingestor.IngestAcoustic(det.Category, det.Confidence)
	default:
		s.logger.Debug("unknown detection source", "source", det.Source)
	}
}

func (s *Server) ingestAudio(host *HostConnection, audio *protocol.AudioData) {
	raw, err := audio.DecodeAudioData()
	if err != nil {
		s.logger.Debug("audio decode error", "host_id", host.ID, "error", err)
		return
	}

	var samples []float64
	switch audio.Format {
	case "pcm16":
		samples = audioin.DecodePCM16(raw, audio.SampleRate)
	case "opus":
		host.mu.Lock()
		if host.opusDec == nil {
			host.opusDec, err = audioin.NewDecoder(audio.SampleRate)
		}
		dec := host.opusDec
		host.mu.Unlock()
		if err != nil {
			s.logger.Warn("opus decoder init failed", "host_id", host.ID, "error", err)
			return
		}
		samples, err = dec.Decode(raw)
		if err != nil {
			s.logger.Debug("opus decode error", "host_id", host.ID, "error", err)
			return
		}
	default:
		s.logger.Debug("unknown audio format", "format", audio.Format)
		return
	}

	// Silent or empty chunks are a normal outcome; nothing to classify.
	if _, err := s.ingestor.IngestAudioSamples(samples); err != nil {
		s.logger.Debug("audio classification skipped", "host_id", host.ID, "reason", err)
	}
}

// SendNotification sends a notification record to a host
func (s *Server) SendNotification(hostID string, rec *react.Record) error {
	msg, err := protocol.NewNotificationMessage(
		rec.Text, rec.SourceTag, rec.State, rec.Timestamp.UnixMilli(), rec.Metadata,
	)
	if err != nil {
		return err
	}
	return s.sendToHost(hostID, msg)
}

// SendPong sends a pong response to a host
func (s *Server) SendPong(hostID string, pingTS int64) error {
	msg, err := protocol.NewPongMessage("", pingTS, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	return s.sendToHost(hostID, msg)
}

// sendToHost sends a message to a specific host
func (s *Server) sendToHost(hostID string, msg *protocol.Message) error {
	s.mu.RLock()
	host, ok := s.hosts[hostID]
	s.mu.RUnlock()

	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "host not connected")
	}

	s.messagesSent.Add(1)
	return host.Send(msg)
}

// Broadcast sends a message to all connected hosts
func (s *Server) Broadcast(msg *protocol.Message) {
	s.mu.RLock()
	hosts := make([]*HostConnection, 0, len(s.hosts))
	for _, h := range s.hosts {
		hosts = append(hosts, h)
	}
	s.mu.RUnlock()

	for _, host := range hosts {
		s.messagesSent.Add(1)
		if err := host.Send(msg); err != nil {
			s.logger.Debug("broadcast error", "host_id", host.ID, "error", err)
		}
	}
}

// GetHost returns a host connection by ID
func (s *Server) GetHost(hostID string) *HostConnection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hosts[hostID]
}

// HostCount returns the number of connected hosts
func (s *Server) HostCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hosts)
}

// Stats contains server statistics
type Stats struct {
	HostCount        int    `json:"host_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	FramesReceived   uint64 `json:"frames_received"`
}

// GetStats returns server statistics
func (s *Server) GetStats() Stats {
	return Stats{
		HostCount:        s.HostCount(),
		MessagesReceived: s.messagesReceived.Load(),
		MessagesSent:     s.messagesSent.Load(),
		FramesReceived:   s.framesReceived.Load(),
	}
}

// HostInfo contains info about a connected host
type HostInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetHostInfos returns info about all connected hosts
func (s *Server) GetHostInfos() []HostInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]HostInfo, 0, len(s.hosts))
	for _, h := range s.hosts {
		h.mu.Lock()
		infos = append(infos, HostInfo{
			ID:        h.ID,
			Connected: h.Connected,
			LastSeen:  h.LastSeen,
		})
		h.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers API routes for engine and host introspection
func (s *Server) RegisterAPIRoutes(api fiber.Router, diag *react.Diagnostics) {
	// List connected hosts
	api.Get("/hosts", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"hosts": s.GetHostInfos(),
			"count": s.HostCount(),
		})
	})

	// Combined server and engine stats
	api.Get("/stats", func(c *fiber.Ctx) error {
		resp := fiber.Map{"server": s.GetStats()}
		if s.ingestor != nil {
			resp["engine"] = s.ingestor.Stats()
		}
		return c.JSON(resp)
	})

	// Recent transitions
	api.Get("/events", func(c *fiber.Ctx) error {
		if diag == nil {
			return c.JSON([]react.DiagnosticEvent{})
		}
		return c.JSON(diag.Events())
	})

	// Inject a detection by hand, for poking at a running engine
	api.Post("/detections", func(c *fiber.Ctx) error {
		var det protocol.DetectionData
		if err := c.BodyParser(&det); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		if det.Source != "visual" && det.Source != "acoustic" {
			return c.Status(400).JSON(fiber.Map{"error": "source must be visual or acoustic"})
		}
		s.ingestDetection(&det)
		return c.JSON(fiber.Map{"status": "ingested"})
	})
}

// generateHostID generates a unique host ID
func generateHostID() string {
	return time.Now().Format("20060102150405")
}
