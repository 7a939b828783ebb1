package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"grid-arena/internal/game"
	"grid-arena/internal/input"
)

// chanSink collects socket commands
type chanSink struct {
	cmds chan input.Command
}

func (s *chanSink) Enqueue(cmd input.Command) bool {
	select {
	case s.cmds <- cmd:
		return true
	default:
		return false
	}
}

func startHub(t *testing.T, cfg HubConfig, source SnapshotSource) (*WebSocketHub, string) {
	t.Helper()
	hub := NewWebSocketHub(cfg)
	go hub.Run()
	if source != nil {
		hub.StartBroadcastLoop(source, 10*time.Millisecond)
	}

	ts := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		hub.Stop()
		ts.Close()
	})
	return hub, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial: %v (status %d)", err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketSnapshotAndInput(t *testing.T) {
	eng, _ := newTestEngine(t)
	sink := &chanSink{cmds: make(chan input.Command, 4)}
	_, url := startHub(t, HubConfig{Sink: sink}, eng)

	conn := dial(t, url, nil)
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var env struct {
		Event string            `json:"event"`
		Data  game.GameSnapshot `json:"data"`
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatal(err)
	}
	if env.Event != EventSnapshot || env.Data.GridSize != 7 {
		t.Errorf("unexpected envelope %s %+v", env.Event, env.Data)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"key":"ArrowLeft","shift":true}`)); err != nil {
		t.Fatal(err)
	}
	// garbage is skipped without closing the socket
	conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
	conn.WriteMessage(websocket.TextMessage, []byte(`{"command":"start"}`))

	want := []input.Command{
		{Type: input.CmdMove, Direction: game.DirLeft, Dash: true},
		{Type: input.CmdStart},
	}
	for i, w := range want {
		select {
		case got := <-sink.cmds:
			if got.Type != w.Type || got.Direction != w.Direction || got.Dash != w.Dash {
				t.Errorf("command %d: got %+v", i, got)
			}
			if !strings.HasPrefix(got.Source, "ws-") {
				t.Errorf("command %d: source %q", i, got.Source)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("command %d never arrived", i)
		}
	}
}

func TestWebSocketOriginRejected(t *testing.T) {
	_, url := startHub(t, HubConfig{}, nil)

	header := http.Header{"Origin": {"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("foreign origin was upgraded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %v", resp)
	}

	dial(t, url, http.Header{"Origin": {"http://localhost:3000"}})
}

func TestWebSocketPerIPLimit(t *testing.T) {
	hub, url := startHub(t, HubConfig{MaxPerIP: 1}, nil)

	dial(t, url, nil)
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("second connection from the same IP was accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %v", resp)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", hub.ClientCount())
	}
}

func TestHubStopClosesClients(t *testing.T) {
	hub, url := startHub(t, HubConfig{}, nil)
	conn := dial(t, url, nil)

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.Stop()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("Expected going-away close, got %v", err)
	}
}

func TestMatchOrigin(t *testing.T) {
	tests := []struct {
		pattern string
		origin  string
		want    bool
	}{
		{"http://localhost:*", "http://localhost:5173", true},
		{"http://localhost:*", "http://localhost.evil.com:80", false},
		{"http://localhost:*", "http://localhost:", false},
		{"https://*.example.com", "https://play.example.com", true},
		{"https://*.example.com", "https://a.b.example.com", false},
		{"https://*.example.com", "http://play.example.com", false},
		{"https://arena.dev", "https://arena.dev", true},
		{"https://arena.dev", "https://arena.dev.evil", false},
		{"*", "https://anything", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.origin, func(t *testing.T) {
			if got := matchOrigin(tt.pattern, tt.origin); got != tt.want {
				t.Errorf("matchOrigin(%q, %q) = %v", tt.pattern, tt.origin, got)
			}
		})
	}
}

func TestOriginPolicy(t *testing.T) {
	p := OriginPolicy{}
	if p.IsAllowed("") {
		t.Error("empty origin should not match a pattern")
	}
	if !p.IsAllowed("http://127.0.0.1:8080") {
		t.Error("default policy should allow loopback")
	}

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if !p.Check(r) {
		t.Error("Check should accept requests without an Origin")
	}
	r.Header.Set("Origin", "https://evil.example")
	if p.Check(r) {
		t.Error("Check accepted a foreign origin")
	}
}

func TestWebSocketTotalLimit(t *testing.T) {
	hub, url := startHub(t, HubConfig{MaxTotal: 1, MaxPerIP: 5}, nil)

	conn := dial(t, url, nil)
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("connection over the total limit was accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %v", resp)
	}

	// closing the first socket frees its slot
	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.GetStats()["open"] != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if open := hub.GetStats()["open"]; open != 0 {
		t.Fatalf("Expected the slot released, %d open", open)
	}
	dial(t, url, nil)
}
