// whisker-host: synthetic host for exercising a running whisker engine.
// Connects to the engine's host endpoint and replays a scripted stream of
// visual and acoustic detections, printing every notification that comes
// back.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/purrlab/go-whisker/internal/log"
	"github.com/purrlab/go-whisker/pkg/audioin"
	"github.com/purrlab/go-whisker/pkg/protocol"
)

var (
	serverURL = flag.String("server", "ws://localhost:8420/ws/host/sim", "Engine host endpoint")
	interval  = flag.Duration("interval", 500*time.Millisecond, "Delay between detections")
	withAudio = flag.Bool("audio", true, "Also send synthetic audio chunks")
)

func main() {
	flag.Parse()
	log.Init("info")
	logger := log.With("component", "whisker-host")

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		logger.Error("dial failed", "url", *serverURL, "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	logger.Info("connected", "url", *serverURL)

	go readNotifications(conn)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Alternate between a visual-led phase and an acoustic-led phase so the
	// engine walks through its states.
	script := []protocol.DetectionData{
		{Source: "visual", Category: "cat", Confidence: 0.92},
		{Source: "visual", Category: "cat", Confidence: 0.88},
		{Source: "acoustic", Category: "meow", Confidence: 0.75},
		{Source: "visual", Category: "cat", Confidence: 0.90},
		{Source: "acoustic", Category: "purr", Confidence: 0.64},
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	step := 0
	for {
		select {
		case <-quit:
			logger.Info("disconnecting")
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			det := script[step%len(script)]
			if err := send(conn, mustDetection(det)); err != nil {
				logger.Error("send failed", "error", err)
				return
			}

			if *withAudio && det.Source == "acoustic" {
				if err := send(conn, syntheticAudio()); err != nil {
					logger.Error("audio send failed", "error", err)
					return
				}
			}
			step++
		}
	}
}

func send(conn *websocket.Conn, msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func mustDetection(d protocol.DetectionData) *protocol.Message {
	msg, err := protocol.NewDetectionMessage(d.Source, d.Category, d.Confidence)
	if err != nil {
		panic(err)
	}
	return msg
}

// syntheticAudio builds 100ms of a 600Hz tone, roughly meow-shaped for the
// feature extractor.
func syntheticAudio() *protocol.Message {
	n := audioin.DefaultSampleRate / 10
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / float64(audioin.DefaultSampleRate)
		samples[i] = int16(12000 * math.Sin(2*math.Pi*600*t))
	}

	msg, err := protocol.NewAudioMessage(
		audioin.SamplesToBytes(samples), "pcm16", audioin.DefaultSampleRate,
	)
	if err != nil {
		panic(err)
	}
	return msg
}

func readNotifications(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			continue
		}
		switch msg.Type {
		case protocol.TypeNotification:
			notif, err := msg.GetNotificationData()
			if err != nil {
				continue
			}
			fmt.Printf("[%s] %s\n", notif.State, notif.Text)
		case protocol.TypePong:
			// keepalive reply, nothing to do
		default:
			raw, _ := json.Marshal(msg)
			fmt.Printf("<- %s\n", raw)
		}
	}
}
