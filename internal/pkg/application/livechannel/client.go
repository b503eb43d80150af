package livechannel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/skysync/integration-flighthub/domain"
	"github.com/skysync/integration-flighthub/internal/pkg/application/normalize"
)

// State tracks where the client is in its connection lifecycle:
// disconnected -> connecting -> open -> (closed -> connecting)*
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosed
)

const (
	initialBackoff    = time.Second
	backoffMultiplier = 1.6
	maxBackoff        = 10 * time.Second
)

// Handler receives the canonicalized devices of accepted messages and
// any channel errors. Malformed messages are reported through OnError
// without closing the channel.
type Handler struct {
	OnSnapshot func(devices []domain.Device)
	OnUpdate   func(devices []domain.Device)
	OnError    func(err error)
}

// Client maintains a persistent subscription to the push telemetry
// source. It owns its connection handle, backoff counter and the
// desired-reconnect flag; Connect and Close are its only public
// operations.
type Client struct {
	url     string
	handler Handler
	log     zerolog.Logger
	dialer  *websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	state     State
	backoff   time.Duration
	reconnect bool
	timer     *time.Timer
}

func New(url string, handler Handler, log zerolog.Logger) *Client {
	return &Client{
		url:     url,
		handler: handler,
		log:     log.With().Str("channel", url).Logger(),
		dialer:  websocket.DefaultDialer,
		state:   StateDisconnected,
		backoff: initialBackoff,
	}
}

// Connect opens the subscription and keeps it open, reconnecting with
// backoff, until Close is called or the context is cancelled.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	c.reconnect = true
	c.mu.Unlock()

	go c.dial(ctx)
}

// Close suppresses all further reconnection attempts, cancels a pending
// reconnect timer and closes the transport.
func (c *Client) Close() error {
	c.mu.Lock()
	c.reconnect = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	c.state = StateClosed
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) dial(ctx context.Context) {
	c.mu.Lock()
	if !c.reconnect || ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.report(fmt.Errorf("failed to connect to live channel: %s", err.Error()))
		c.scheduleReconnect(ctx)
		return
	}

	c.mu.Lock()
	if !c.reconnect {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.backoff = initialBackoff
	c.mu.Unlock()

	c.log.Info().Msg("live channel open")

	c.readLoop(ctx, conn)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()

			c.mu.Lock()
			wanted := c.reconnect
			c.conn = nil
			c.state = StateClosed
			c.mu.Unlock()

			if wanted {
				c.report(fmt.Errorf("live channel closed: %s", err.Error()))
				c.scheduleReconnect(ctx)
			}
			return
		}

		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg struct {
		Type    string `json:"type"`
		Devices []any  `json:"devices"`
	}

	if err := json.Unmarshal(data, &msg); err != nil {
		// parse failures are reported but the channel stays open
		c.report(fmt.Errorf("malformed live message: %s", err.Error()))
		return
	}

	if msg.Type != "snapshot" && msg.Type != "telemetry_update" {
		return
	}

	devices := make([]domain.Device, 0, len(msg.Devices))
	for _, d := range msg.Devices {
		dev, err := normalize.MapLive(d)
		if err != nil {
			c.report(err)
			continue
		}
		devices = append(devices, dev)
	}

	switch msg.Type {
	case "snapshot":
		if c.handler.OnSnapshot != nil {
			c.handler.OnSnapshot(devices)
		}
	case "telemetry_update":
		if c.handler.OnUpdate != nil {
			c.handler.OnUpdate(devices)
		}
	}
}

func (c *Client) scheduleReconnect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.reconnect || ctx.Err() != nil {
		return
	}

	delay := c.nextDelayLocked()
	c.timer = time.AfterFunc(delay, func() { c.dial(ctx) })
}

// nextDelayLocked returns the delay for the upcoming reconnect attempt
// and grows the backoff for the one after it: 1s base, x1.6 per close,
// capped at 10s. Reset happens on a successful open.
func (c *Client) nextDelayLocked() time.Duration {
	delay := c.backoff

	grown := time.Duration(float64(c.backoff) * backoffMultiplier)
	if grown > maxBackoff {
		grown = maxBackoff
	}
	c.backoff = grown

	return delay
}

func (c *Client) nextDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextDelayLocked()
}

func (c *Client) report(err error) {
	c.log.Error().Err(err).Msg("live channel error")
	if c.handler.OnError != nil {
		c.handler.OnError(err)
	}
}
