package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"grid-arena/internal/api"
	"grid-arena/internal/game"
	"grid-arena/internal/input"
)

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{40, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := backoff(time.Second, 30*time.Second, tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestSendWhileDisconnected(t *testing.T) {
	c := New(Config{URL: "ws://127.0.0.1:1/ws"})
	if err := c.SendKey("Enter", false); err != ErrNotConnected {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
	if c.IsConnected() {
		t.Error("new client reports connected")
	}
}

func TestHandleMessageKeepsLatest(t *testing.T) {
	c := New(Config{})
	for seq := 1; seq <= 3; seq++ {
		data, _ := json.Marshal(map[string]interface{}{
			"event": EventSnapshot,
			"data":  map[string]interface{}{"sequence": seq, "gridSize": 7},
		})
		c.handleMessage(data)
	}
	c.handleMessage([]byte(`{"event":"other","data":{}}`))
	c.handleMessage([]byte(`garbage`))

	select {
	case snap := <-c.Snapshots:
		if snap.Sequence != 3 {
			t.Errorf("Expected newest snapshot, got sequence %d", snap.Sequence)
		}
	default:
		t.Fatal("no snapshot buffered")
	}
	select {
	case <-c.Snapshots:
		t.Error("older snapshots were kept")
	default:
	}
}

// captureSink records commands the hub receives
type captureSink struct {
	cmds chan input.Command
}

func (s *captureSink) Enqueue(cmd input.Command) bool {
	s.cmds <- cmd
	return true
}

func TestClientAgainstHub(t *testing.T) {
	eng := game.NewEngine(game.EngineConfig{
		Clock:    game.NewManualClock(time.Unix(0, 0)),
		GridSize: 9,
		Seed:     2,
	})
	sink := &captureSink{cmds: make(chan input.Command, 1)}
	hub := api.NewWebSocketHub(api.HubConfig{Sink: sink})
	go hub.Run()
	hub.StartBroadcastLoop(eng, 10*time.Millisecond)
	defer hub.Stop()

	ts := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer ts.Close()

	c := New(Config{URL: wsURL(ts), BaseDelay: 10 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go c.Run(ctx)
	defer c.Stop()

	select {
	case snap := <-c.Snapshots:
		if snap.GridSize != 9 || snap.State != "PRE_GAME" {
			t.Errorf("unexpected snapshot %+v", snap)
		}
	case <-ctx.Done():
		t.Fatal("no snapshot received")
	}

	if err := c.SendKey("ArrowDown", true); err != nil {
		t.Fatal(err)
	}
	select {
	case cmd := <-sink.cmds:
		if cmd.Type != input.CmdMove || cmd.Direction != game.DirDown || !cmd.Dash {
			t.Errorf("unexpected command %+v", cmd)
		}
	case <-ctx.Done():
		t.Fatal("hub never received the key")
	}
}

func TestClientReconnects(t *testing.T) {
	var accepted atomic.Int32
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := accepted.Add(1)
		data, _ := json.Marshal(map[string]interface{}{
			"event": EventSnapshot,
			"data":  map[string]interface{}{"sequence": n},
		})
		conn.WriteMessage(websocket.TextMessage, data)
		if n == 1 {
			// drop the first connection
			conn.Close()
			return
		}
		conn.ReadMessage()
		conn.Close()
	}))
	defer ts.Close()

	c := New(Config{URL: wsURL(ts), BaseDelay: 10 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go c.Run(ctx)
	defer c.Stop()

	for {
		select {
		case snap := <-c.Snapshots:
			if snap.Sequence == 2 {
				if accepted.Load() != 2 {
					t.Errorf("Expected 2 connections, got %d", accepted.Load())
				}
				return
			}
		case <-ctx.Done():
			t.Fatal("client did not reconnect")
		}
	}
}

func TestRunGivesUpAfterMaxReconnects(t *testing.T) {
	c := New(Config{URL: "ws://127.0.0.1:1/ws", BaseDelay: time.Millisecond, MaxReconnects: 2})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Run(ctx); err == nil || err == ctx.Err() {
		t.Errorf("Expected an unreachable error, got %v", err)
	}
	if _, ok := <-c.Snapshots; ok {
		t.Error("Snapshots should be closed after Run returns")
	}
}

func TestSilentHangupBacksOff(t *testing.T) {
	var accepted atomic.Int32
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted.Add(1)
		conn.Close()
	}))
	defer ts.Close()

	base := 20 * time.Millisecond
	c := New(Config{URL: wsURL(ts), BaseDelay: base, MaxReconnects: 3})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	err := c.Run(ctx)
	elapsed := time.Since(start)

	if err == nil || err == ctx.Err() {
		t.Fatalf("Expected an unreachable error, got %v", err)
	}
	if n := accepted.Load(); n != 3 {
		t.Errorf("Expected 3 connections before giving up, got %d", n)
	}
	// attempts 2 and 3 wait base and 2*base
	if elapsed < 3*base {
		t.Errorf("Redialed without backoff: gave up after %v", elapsed)
	}
}
