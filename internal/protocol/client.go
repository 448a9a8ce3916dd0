// Package protocol maintains the duplex dialogue channel to the backend and
// dispatches inbound animation commands.
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Status is the connection state surfaced to the user-facing layer. It is
// the only error category that leaves this package; everything else is
// logged and recovered locally.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnected
)

func (s Status) String() string {
	if s == StatusConnected {
		return "connected"
	}
	return "disconnected"
}

// Handler receives each well-formed dialogue message.
type Handler func(DialogueMessage)

// Client is a reconnecting websocket client. After any close, including
// errors, it retries at a fixed delay indefinitely; there is deliberately no
// backoff growth and no attempt cap. Messages in flight during a drop are
// lost.
type Client struct {
	url            string
	reconnectDelay time.Duration
	handler        Handler
	onStatus       func(Status)
	logger         zerolog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	status  Status
	cancel  context.CancelFunc
	writeMu sync.Mutex
}

// NewClient creates a client for the given ws:// endpoint. onStatus may be
// nil; when set it observes every connected/disconnected transition.
func NewClient(url string, reconnectDelay time.Duration, handler Handler, onStatus func(Status), logger zerolog.Logger) *Client {
	return &Client{
		url:            url,
		reconnectDelay: reconnectDelay,
		handler:        handler,
		onStatus:       onStatus,
		logger:         logger.With().Str("component", "protocol").Logger(),
	}
}

// Connect starts the connection loop. It returns immediately; connection
// state is reported through Status and the onStatus callback.
func (c *Client) Connect(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go c.connectLoop(ctx)
}

// Disconnect stops the loop and closes any open connection.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
	c.setStatus(StatusDisconnected)
}

// Status returns the current connection status.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Send writes a user message to the channel.
func (c *Client) Send(text string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(UserMessage{Type: TypeUserMessage, Text: text}); err != nil {
		return fmt.Errorf("write user message: %w", err)
	}
	return nil
}

func (c *Client) connectLoop(ctx context.Context) {
	for {
		err := c.runOnce(ctx)
		c.setStatus(StatusDisconnected)
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn().Err(err).Dur("retry_in", c.reconnectDelay).Msg("connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setStatus(StatusConnected)
	c.logger.Info().Str("url", c.url).Msg("connected")

	// done bounds the cancel watcher to this connection; without it every
	// reconnect cycle would leave one watcher goroutine behind for the life
	// of the process.
	done := make(chan struct{})
	defer func() {
		close(done)
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.Close()
	}()

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		c.dispatch(payload)
	}
}

// dispatch parses one inbound payload. Malformed payloads are dropped and
// logged, never surfaced.
func (c *Client) dispatch(payload []byte) {
	var msg DialogueMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.logger.Warn().Err(err).Msg("dropping malformed payload")
		return
	}
	if msg.Type != TypeDialogue {
		c.logger.Debug().Str("type", msg.Type).Msg("ignoring message type")
		return
	}
	if c.handler != nil {
		c.handler(msg)
	}
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	changed := c.status != s
	c.status = s
	c.mu.Unlock()
	if changed && c.onStatus != nil {
		c.onStatus(s)
	}
}
