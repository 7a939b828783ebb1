// Package client connects to a running arena server over its WebSocket,
// streaming snapshots in and player input out.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"grid-arena/internal/game"
	"grid-arena/internal/input"
)

const (
	// EventSnapshot is the envelope event carrying a snapshot
	EventSnapshot = "arena:snapshot"

	// DefaultBaseDelay for exponential backoff
	DefaultBaseDelay = 500 * time.Millisecond

	// DefaultMaxDelay caps the backoff
	DefaultMaxDelay = 30 * time.Second

	writeWait = 2 * time.Second
)

// ErrNotConnected is returned by Send while the socket is down
var ErrNotConnected = errors.New("not connected")

// Envelope is the server's {"event","data"} frame
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Config configures a Client
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	MaxReconnects    int // 0 retries forever
}

// Client keeps a socket to the arena server open, reconnecting with backoff
type Client struct {
	cfg       Config
	conn      *websocket.Conn
	connected bool
	attempts  int

	// Snapshots holds the newest snapshot; older ones are replaced
	Snapshots chan *game.GameSnapshot

	writeMu  sync.Mutex
	mu       sync.RWMutex
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a client for a ws:// URL
func New(cfg Config) *Client {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	return &Client{
		cfg:       cfg,
		Snapshots: make(chan *game.GameSnapshot, 1),
		done:      make(chan struct{}),
	}
}

// Connect dials the server once
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}

	c.conn = conn
	c.connected = true
	log.Printf("✅ Connected to arena at %s", c.cfg.URL)
	return nil
}

// Run reads until ctx ends or Stop is called, reconnecting on failure.
// Snapshots is closed when Run returns.
func (c *Client) Run(ctx context.Context) error {
	defer func() {
		c.dropConn()
		close(c.Snapshots)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			if err := c.reconnect(ctx); err != nil {
				return err
			}
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			log.Printf("⚠️ Arena read error: %v", err)
			c.dropConn()
			continue
		}
		// a server that hangs up before sending anything keeps backing off
		c.mu.Lock()
		c.attempts = 0
		c.mu.Unlock()
		c.handleMessage(message)
	}
}

func (c *Client) handleMessage(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("⚠️ Failed to parse arena message: %v", err)
		return
	}
	if env.Event != EventSnapshot {
		return
	}

	snap := &game.GameSnapshot{}
	if err := json.Unmarshal(env.Data, snap); err != nil {
		log.Printf("⚠️ Failed to parse snapshot: %v", err)
		return
	}

	// latest wins
	select {
	case c.Snapshots <- snap:
	default:
		select {
		case <-c.Snapshots:
		default:
		}
		c.Snapshots <- snap
	}
}

// Send writes one input message
func (c *Client) Send(msg input.Message) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// SendKey sends a browser-style key press
func (c *Client) SendKey(key string, shift bool) error {
	return c.Send(input.Message{Key: key, Shift: shift})
}

// reconnect waits out the backoff and dials again
func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	c.attempts++
	attempt := c.attempts
	c.mu.Unlock()

	if c.cfg.MaxReconnects > 0 && attempt > c.cfg.MaxReconnects {
		log.Printf("❌ Max reconnect attempts reached (%d)", c.cfg.MaxReconnects)
		return errors.New("arena unreachable")
	}

	// first attempt dials right away
	if attempt > 1 {
		delay := backoff(c.cfg.BaseDelay, c.cfg.MaxDelay, attempt-1)
		log.Printf("🔄 Reconnecting to arena (attempt %d) in %v...", attempt, delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-c.done:
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}

	if err := c.Connect(ctx); err != nil {
		log.Printf("❌ Reconnect failed: %v", err)
	}
	return nil
}

// backoff doubles base per attempt up to max
func backoff(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

func (c *Client) dropConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
}

// Stop closes the socket and ends Run
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
		log.Println("🔌 Arena client stopped")
	})
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
