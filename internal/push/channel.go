// Package push maintains the persistent websocket connection that delivers
// result events as they happen. The channel owns its reconnect policy; the
// rest of the console only consumes delivered events and reads the
// connection state for the connectivity indicator.
package push

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/visorlabs/visor/internal/result"
)

// State is the lifecycle state of the channel.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

const (
	defaultPingInterval = 30 * time.Second
	initialBackoff      = time.Second
	maxBackoff          = 30 * time.Second
	writeWait           = 10 * time.Second
)

// envelope is the wire frame: only "ai_result" frames carry results; every
// other type is ignored without terminating the connection.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Channel is a reconnecting websocket subscriber producing a stream of
// result deliveries for a single consumer. Close stops delivery
// deterministically: after Events is closed no further event is emitted.
type Channel struct {
	url          string
	pingInterval time.Duration
	dialer       *websocket.Dialer

	events chan result.AIResult
	done   chan struct{}

	mu    sync.Mutex
	state State
	conn  *websocket.Conn

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a channel for the websocket endpoint at url. pingInterval <= 0
// selects the default. The channel does not connect until Start.
func New(url string, pingInterval time.Duration) *Channel {
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	return &Channel{
		url:          url,
		pingInterval: pingInterval,
		dialer:       websocket.DefaultDialer,
		events:       make(chan result.AIResult, 16),
		done:         make(chan struct{}),
		state:        StateConnecting,
	}
}

// Events returns the delivery stream. It is closed once, after Close, when
// no further delivery can occur.
func (c *Channel) Events() <-chan result.AIResult { return c.events }

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the connection is currently open. This drives
// the connectivity indicator only; correctness never depends on it.
func (c *Channel) Connected() bool { return c.State() == StateOpen }

// Start begins connecting and delivering events until ctx is canceled or
// Close is called.
func (c *Channel) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.run(ctx)
}

// run dials, reads until the connection drops, then redials with capped
// exponential backoff.
func (c *Channel) run(ctx context.Context) {
	defer c.wg.Done()
	defer close(c.events)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			c.setState(StateClosed)
			return
		case <-c.done:
			c.setState(StateClosed)
			return
		default:
		}

		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			log.Printf("[push] connect %s: %v (retrying in %s)", c.url, err, backoff)
			c.setState(StateConnecting)
			if !c.sleep(ctx, backoff) {
				c.setState(StateClosed)
				return
			}
			if backoff *= 2; backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		backoff = initialBackoff
		c.setConn(conn)
		c.setState(StateOpen)
		log.Printf("[push] connected to %s", c.url)

		c.readLoop(ctx, conn)
		conn.Close()
		c.setConn(nil)

		select {
		case <-ctx.Done():
			c.setState(StateClosed)
			return
		case <-c.done:
			c.setState(StateClosed)
			return
		default:
			c.setState(StateConnecting)
			log.Printf("[push] connection lost, reconnecting in %s", backoff)
			if !c.sleep(ctx, backoff) {
				c.setState(StateClosed)
				return
			}
			if backoff *= 2; backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// readLoop consumes frames until the connection errors or the channel is
// torn down. A ping ticker keeps the connection alive through idle periods.
func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	pings := time.NewTicker(c.pingInterval)
	defer pings.Stop()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-pings.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-stop:
				return
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			case <-ctx.Done():
			default:
				log.Printf("[push] read: %v", err)
			}
			return
		}

		r, ok := decodeDelivery(data)
		if !ok {
			continue
		}
		select {
		case c.events <- r:
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// decodeDelivery parses one frame. Frames of any type other than "ai_result"
// and malformed bodies are dropped with no effect on downstream state.
func decodeDelivery(data []byte) (result.AIResult, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("[push] malformed frame dropped: %v", err)
		return result.AIResult{}, false
	}
	if env.Type != "ai_result" {
		return result.AIResult{}, false
	}
	var r result.AIResult
	if err := json.Unmarshal(env.Data, &r); err != nil {
		log.Printf("[push] malformed ai_result dropped: %v", err)
		return result.AIResult{}, false
	}
	return r, true
}

// Close tears the channel down: the connection is closed, reconnection
// stops, and Events is closed once the read loop exits. Idempotent.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
	c.wg.Wait()
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Channel) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// sleep waits for d, returning false if the channel or ctx ended first.
func (c *Channel) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-c.done:
		return false
	case <-ctx.Done():
		return false
	}
}
