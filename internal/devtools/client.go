// Package devtools implements the harness side of the instrumentation
// protocol: a WebSocket connection to the application under test, over which
// the harness sends interaction commands and receives frame timing events.
//
// The wire format is JSON. Commands look like:
//
//	{"method": "input.tap", "params": {"target": "login_button"}}
//
// and events look like:
//
//	{"event": "frame", "build_micros": 10400, "raster_micros": 8200}
package devtools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// EventType identifies an instrumentation event.
type EventType string

const (
	// EventFrame carries the timing of one rendered frame.
	EventFrame EventType = "frame"
	// EventIdle signals that the application has quiesced after the last
	// command.
	EventIdle EventType = "idle"
)

// Event is one instrumentation event received from the application.
type Event struct {
	Type   EventType
	Build  time.Duration
	Raster time.Duration
}

// Config configures the devtools client.
type Config struct {
	URL              string
	Headers          http.Header
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
}

// Client is a connection to an application's instrumentation endpoint.
// One goroutine may read events while another sends commands.
type Client struct {
	url          string
	headers      http.Header
	dialer       *websocket.Dialer
	readTimeout  time.Duration
	writeTimeout time.Duration

	writeMu sync.Mutex
	connMu  sync.Mutex
	conn    *websocket.Conn
}

// NewClient creates a devtools client with the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 30 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	return &Client{
		url:     cfg.URL,
		headers: cfg.Headers,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
			Proxy:            http.ProxyFromEnvironment,
		},
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		return fmt.Errorf("already connected")
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("devtools dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("devtools dial failed: %w", err)
	}
	c.conn = conn
	return nil
}

// SendCommand sends one JSON command to the application.
func (c *Client) SendCommand(ctx context.Context, method string, params map[string]any) error {
	conn := c.current()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"method": method,
		"params": params,
	})
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(c.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write command %s: %w", method, err)
	}
	return nil
}

// NextEvent blocks until the next instrumentation event arrives, the read
// timeout expires, or the context deadline passes. Unrecognized event names
// are returned with their raw type so callers can skip them.
func (c *Client) NextEvent(ctx context.Context) (Event, error) {
	conn := c.current()
	if conn == nil {
		return Event{}, fmt.Errorf("not connected")
	}
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}

	deadline := time.Now().Add(c.readTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return Event{}, fmt.Errorf("set read deadline: %w", err)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		return Event{}, fmt.Errorf("read event: %w", err)
	}
	return parseEvent(data)
}

// Close tears down the connection.
func (c *Client) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) current() *websocket.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

func parseEvent(data []byte) (Event, error) {
	name := gjson.GetBytes(data, "event")
	if !name.Exists() {
		return Event{}, fmt.Errorf("event message missing %q field: %s", "event", data)
	}

	ev := Event{Type: EventType(name.String())}
	if ev.Type != EventFrame {
		return ev, nil
	}

	build := gjson.GetBytes(data, "build_micros")
	raster := gjson.GetBytes(data, "raster_micros")
	if !build.Exists() || !raster.Exists() {
		return Event{}, fmt.Errorf("frame event missing build_micros/raster_micros: %s", data)
	}
	if build.Int() < 0 || raster.Int() < 0 {
		return Event{}, fmt.Errorf("frame event has negative duration: %s", data)
	}

	ev.Build = time.Duration(build.Int()) * time.Microsecond
	ev.Raster = time.Duration(raster.Int()) * time.Microsecond
	return ev, nil
}
