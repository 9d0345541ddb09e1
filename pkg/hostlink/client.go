// Package hostlink connects the engine to a remote host over WebSocket and
// delivers presence notifications to it.
package hostlink

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/purrlab/go-whisker/pkg/protocol"
	"github.com/purrlab/go-whisker/pkg/react"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	pingInterval     = 30 * time.Second
)

// Client is a WebSocket connection to the host. It implements react.Emitter,
// so it can be registered behind a Notifier.
//
// Writes are serialized with a mutex; reads run in a background goroutine
// that answers host pings and detects disconnection. A failed write triggers
// one redial before the error is surfaced.
type Client struct {
	url    string
	id     string
	logger *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	done chan struct{}
}

// Dial connects to the host at url.
func Dial(url string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := dial(url)
	if err != nil {
		return nil, err
	}

	c := &Client{
		url:  url,
		id:   uuid.NewString(),
		conn: conn,
		done: make(chan struct{}),
	}
	c.logger = logger.With("component", "hostlink", "client_id", c.id)

	go c.readLoop(conn)
	go c.pingLoop()

	c.logger.Info("connected to host", "url", url)
	return c, nil
}

func dial(url string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("host connect failed: %w", err)
	}
	return conn, nil
}

// ID returns the client's connection ID.
func (c *Client) ID() string { return c.id }

// Emit sends one notification record to the host. Implements react.Emitter.
func (c *Client) Emit(record *react.Record) error {
	msg, err := protocol.NewNotificationMessage(
		record.Text,
		record.SourceTag,
		record.State,
		record.Timestamp.UnixMilli(),
		record.Metadata,
	)
	if err != nil {
		return err
	}
	return c.send(msg)
}

// Send delivers an arbitrary protocol message to the host.
func (c *Client) Send(msg *protocol.Message) error {
	return c.send(msg)
}

func (c *Client) send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("hostlink: connection closed")
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err = c.conn.WriteMessage(websocket.TextMessage, data)
	if err == nil {
		return nil
	}

	// The host may have restarted; try one redial before giving up.
	if rerr := c.redialLocked(); rerr != nil {
		return fmt.Errorf("hostlink: write failed: %w", err)
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// redialLocked replaces the dead connection. Caller holds c.mu.
func (c *Client) redialLocked() error {
	c.conn.Close()
	conn, err := dial(c.url)
	if err != nil {
		c.logger.Warn("host redial failed", "error", err)
		return err
	}
	c.conn = conn
	go c.readLoop(conn)
	c.logger.Info("reconnected to host", "url", c.url)
	return nil
}

// readLoop drains incoming messages on one connection, answering pings. The
// host does not otherwise talk back on this connection. A redial starts a
// fresh loop; this one exits when its connection dies.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			alreadyClosed := c.closed
			c.mu.Unlock()
			if !alreadyClosed {
				c.logger.Warn("host connection lost", "error", err)
			}
			return
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			c.logger.Debug("unparseable message from host", "error", err)
			continue
		}

		if msg.Type == protocol.TypePing {
			pong, err := protocol.NewPongMessage(c.id, msg.Timestamp, time.Now().UnixMilli())
			if err == nil {
				_ = c.send(pong)
			}
		}
	}
}

// pingLoop keeps the connection warm. Send failures are left to the redial
// in send; the loop only stops on Close.
func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			ping, err := protocol.NewPingMessage(uuid.NewString())
			if err != nil {
				continue
			}
			if err := c.send(ping); err != nil {
				c.logger.Debug("keepalive ping failed", "error", err)
			}
		}
	}
}

// Close shuts the connection down.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	close(c.done)
	c.mu.Unlock()

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	return conn.Close()
}
