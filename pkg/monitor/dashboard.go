package monitor

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"

	"github.com/purrlab/go-whisker/pkg/deepsight"
	"github.com/purrlab/go-whisker/pkg/fusion"
	"github.com/purrlab/go-whisker/pkg/hub"
	"github.com/purrlab/go-whisker/pkg/protocol"
	"github.com/purrlab/go-whisker/pkg/react"
)

// DefaultStatsInterval is how often the stats feed pushes a snapshot to
// viewers.
const DefaultStatsInterval = 5 * time.Second

// Dashboard fans transitions and stats out to browser viewers over a
// broadcast hub. It implements react.Observer so it can be registered with
// the engine directly.
type Dashboard struct {
	hub      *hub.Hub
	server   *Server
	priority int
}

// NewDashboard creates the dashboard broadcaster. Call Run once, then
// register it as an engine observer.
func NewDashboard(server *Server, priority int) *Dashboard {
	return &Dashboard{
		hub:      hub.New("dashboard"),
		server:   server,
		priority: priority,
	}
}

// Run starts the broadcast hub loop. Call in a goroutine.
func (d *Dashboard) Run() {
	d.hub.Run()
}

// Stop terminates the hub loop.
func (d *Dashboard) Stop() {
	d.hub.Stop()
}

// RunStatsLoop pushes an engine stats snapshot to viewers every interval
// until ctx is cancelled. Call in a goroutine alongside Run.
func (d *Dashboard) RunStatsLoop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultStatsInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if d.ViewerCount() == 0 {
				continue
			}
			if err := d.BroadcastStats(d.snapshotStats()); err != nil {
				return err
			}
		}
	}
}

// snapshotStats composes the dashboard stats payload from the engine
// counters and the viewer count.
func (d *Dashboard) snapshotStats() protocol.StatsData {
	data := protocol.StatsData{Clients: d.ViewerCount()}
	if d.server != nil {
		es := d.server.ingestor.Stats()
		data.State = es.State
		data.Ticks = es.Ticks
		data.Transitions = es.Transitions
		data.Detections = es.Detections
	}
	return data
}

func (d *Dashboard) Name() string  { return "dashboard" }
func (d *Dashboard) Priority() int { return d.priority }

// OnTransition broadcasts the transition to dashboard viewers and sends the
// formatted notification to every connected host.
func (d *Dashboard) OnTransition(_ context.Context, ev *fusion.TransitionEvent) error {
	emotionID := ""
	if ev.Emotion != nil {
		emotionID = ev.Emotion.EmotionID
	}

	msg, err := protocol.NewTransitionMessage(
		ev.Old.String(), ev.New.String(), ev.TrustOverride, emotionID,
	)
	if err != nil {
		return err
	}
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	d.hub.Broadcast(hub.NewJSONMessage(data))

	if d.server != nil {
		rec := react.BuildRecord(ev)
		notif, err := protocol.NewNotificationMessage(
			rec.Text, rec.SourceTag, rec.State, rec.Timestamp.UnixMilli(), rec.Metadata,
		)
		if err != nil {
			return err
		}
		d.server.Broadcast(notif)
	}
	return nil
}

// BroadcastStats pushes a stats snapshot to dashboard viewers.
func (d *Dashboard) BroadcastStats(stats protocol.StatsData) error {
	msg, err := protocol.NewStatsMessage(stats)
	if err != nil {
		return err
	}
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	d.hub.Broadcast(hub.NewJSONMessage(data))
	return nil
}

// BroadcastAnalysis pushes a deep-analysis result to dashboard viewers.
func (d *Dashboard) BroadcastAnalysis(a *deepsight.Analysis) error {
	msg, err := protocol.NewAnalysisMessage(a.Text, a.TargetPresent, a.Confidence)
	if err != nil {
		return err
	}
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	d.hub.Broadcast(hub.NewJSONMessage(data))
	return nil
}

// ViewerCount returns the number of connected dashboard viewers.
func (d *Dashboard) ViewerCount() int {
	return d.hub.ViewerCount()
}

// RegisterRoutes registers the dashboard WebSocket endpoint.
func (d *Dashboard) RegisterRoutes(app *fiber.App) {
	app.Use("/ws/dashboard", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/dashboard", fiberws.New(func(c *fiberws.Conn) {
		viewer := hub.NewViewer(d.hub, c)
		viewer.Run() // Blocks until the viewer disconnects
	}))
}
