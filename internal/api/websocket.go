package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"grid-arena/internal/game"
	"grid-arena/internal/input"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 5

	// EventSnapshot carries a GameSnapshot
	EventSnapshot = "arena:snapshot"

	wsWriteWait    = 2 * time.Second
	wsMaxMessage   = 1024
	wsKeepalive    = time.Second
	broadcastEvery = 50 * time.Millisecond
)

// CommandSink receives parsed socket input
type CommandSink interface {
	Enqueue(cmd input.Command) bool
}

// SnapshotSource provides snapshots to broadcast
type SnapshotSource interface {
	GetSnapshot() *game.GameSnapshot
}

// HubConfig configures a WebSocketHub
type HubConfig struct {
	MaxTotal int
	MaxPerIP int
	Origins  OriginPolicy
	Sink     CommandSink // nil makes the socket read-only
}

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn   *websocket.Conn
	ip     string
	source string // rate-limit key for its commands
}

// WebSocketHub manages all WebSocket connections with DoS protection
type WebSocketHub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	stopChan   chan struct{}
	stopOnce   sync.Once

	cfg      HubConfig
	upgrader websocket.Upgrader
	conns    *ConnLimiter
	nextID   atomic.Uint64
}

// NewWebSocketHub creates a new hub with connection limiting
func NewWebSocketHub(cfg HubConfig) *WebSocketHub {
	if cfg.MaxTotal <= 0 {
		cfg.MaxTotal = MaxWSConnectionsTotal
	}
	if cfg.MaxPerIP <= 0 {
		cfg.MaxPerIP = MaxWSConnectionsPerIP
	}
	return &WebSocketHub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		stopChan:   make(chan struct{}),
		cfg:        cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.Origins.Check,
		},
		conns: NewConnLimiter(cfg.MaxPerIP, cfg.MaxTotal),
	}
}

// Run services registrations and broadcasts until Stop
func (h *WebSocketHub) Run() {
	for {
		select {
		case <-h.stopChan:
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client %s connected from %s (%d total)", client.source, client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			h.drop(conn)
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := write(conn, message); err != nil {
					h.drop(conn)
					continue
				}
				IncrementWSMessages("out")
			}
			count := len(h.clients)
			h.mu.Unlock()
			UpdateWSConnections(count)
		}
	}
}

// drop must be called with h.mu held
func (h *WebSocketHub) drop(conn *websocket.Conn) {
	if client, ok := h.clients[conn]; ok {
		h.conns.Release(client.ip)
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *WebSocketHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
			time.Now().Add(wsWriteWait))
		h.drop(conn)
	}
	UpdateWSConnections(0)
}

func write(conn *websocket.Conn, message []byte) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, message)
}

// Stop closes every connection and ends Run and the broadcast loop
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

// encodeEvent builds the {"event", "data"} envelope
func encodeEvent(event string, data interface{}) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
}

// Broadcast sends a message to all connected clients
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	jsonBytes, err := encodeEvent(event, data)
	if err != nil {
		return
	}

	select {
	case h.broadcast <- jsonBytes:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetStats returns socket limiter statistics
func (h *WebSocketHub) GetStats() map[string]uint64 {
	return h.conns.GetStats()
}

// StartBroadcastLoop pushes a snapshot whenever its sequence changes, and
// at least once a second so new clients see an idle board.
func (h *WebSocketHub) StartBroadcastLoop(source SnapshotSource, interval time.Duration) {
	if interval <= 0 {
		interval = broadcastEvery
	}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		var lastSeq uint64
		var lastSent time.Time

		for {
			select {
			case <-h.stopChan:
				return
			case now := <-ticker.C:
				if h.ClientCount() == 0 {
					continue
				}
				snap := source.GetSnapshot()
				if snap.Sequence == lastSeq && now.Sub(lastSent) < wsKeepalive {
					continue
				}
				// Encode from a clone so the hub owns what it sends
				h.Broadcast(EventSnapshot, snap.Clone())
				lastSeq, lastSent = snap.Sequence, now
			}
		}
	}()
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if err := h.conns.Acquire(ip); err != nil {
		if errors.Is(err, errArenaFull) {
			log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", h.cfg.MaxTotal)
			RecordConnectionRejected("ws_total_limit")
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, err.Error(), http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.conns.Release(ip)
		return
	}
	conn.SetReadLimit(wsMaxMessage)

	client := &wsClient{
		conn:   conn,
		ip:     ip,
		source: fmt.Sprintf("ws-%d", h.nextID.Add(1)),
	}
	select {
	case h.register <- client:
	case <-h.stopChan:
		h.conns.Release(ip)
		conn.Close()
		return
	}

	go h.readLoop(client)
}

// readLoop turns client messages into commands until the socket closes
func (h *WebSocketHub) readLoop(client *wsClient) {
	defer func() {
		select {
		case h.unregister <- client.conn:
		case <-h.stopChan:
		}
	}()

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		IncrementWSMessages("in")

		if h.cfg.Sink == nil {
			continue
		}
		cmd, err := input.ParseMessage(client.source, message)
		if err != nil {
			continue
		}
		if !h.cfg.Sink.Enqueue(cmd) {
			log.Printf("⚠️ Input from %s dropped: queue full", client.source)
		}
	}
}
