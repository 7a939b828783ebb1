package input

import (
	"errors"
	"sync"
	"testing"
	"time"

	"grid-arena/internal/game"
)

// MockEngine records calls for handler tests
type MockEngine struct {
	mu       sync.Mutex
	state    game.State
	size     int
	calls    []string
	recorded []string
	moveErr  error
	spawnErr error
}

func newMockEngine() *MockEngine {
	return &MockEngine{state: game.StatePreGame, size: 7}
}

func (m *MockEngine) call(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *MockEngine) StartSession() {
	m.call("start")
	m.state = game.StateRunning
}

func (m *MockEngine) Move(dir game.Direction, dash bool) error {
	m.call("move")
	return m.moveErr
}

func (m *MockEngine) Dash() error {
	m.call("dash")
	return nil
}

func (m *MockEngine) Resize(size int) (int, error) {
	m.call("resize")
	m.size = game.NewGrid(size).Size
	return m.size, nil
}

func (m *MockEngine) ResizeBy(delta int) (int, error) {
	m.call("resizeBy")
	return m.Resize(m.size + delta)
}

func (m *MockEngine) SpawnPattern(kind game.PatternKind, origin int) (game.PatternInstance, error) {
	m.call("spawn")
	return game.PatternInstance{Kind: kind, Origin: origin}, m.spawnErr
}

func (m *MockEngine) State() game.State { return m.state }

func (m *MockEngine) RecordInput(source, command, arg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded = append(m.recorded, command)
	return true
}

func (m *MockEngine) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func TestHandlerStateGating(t *testing.T) {
	tests := []struct {
		name  string
		state game.State
		cmd   Command
		want  Result
	}{
		{"move idle", game.StatePreGame, Command{Type: CmdMove, Direction: game.DirUp}, Applied},
		{"move running", game.StateRunning, Command{Type: CmdMove, Direction: game.DirUp}, Applied},
		{"dash idle", game.StateGameOver, Command{Type: CmdDash}, Applied},
		{"dash running", game.StateRunning, Command{Type: CmdDash}, Applied},
		{"start idle", game.StateGameOver, Command{Type: CmdStart}, Applied},
		{"start running", game.StateRunning, Command{Type: CmdStart}, Ignored},
		{"grow idle", game.StatePreGame, Command{Type: CmdGrow}, Applied},
		{"grow running", game.StateRunning, Command{Type: CmdGrow}, Ignored},
		{"resize running", game.StateRunning, Command{Type: CmdResize, Size: 9}, Ignored},
		{"spawn disabled", game.StateRunning, Command{Type: CmdSpawn}, Ignored},
		{"unknown", game.StatePreGame, Command{Type: CmdUnknown}, Ignored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newMockEngine()
			eng.state = tt.state
			h := NewHandler(eng, nil)

			res, err := h.Process(tt.cmd)
			if err != nil {
				t.Fatal(err)
			}
			if res != tt.want {
				t.Errorf("got %s, want %s", res, tt.want)
			}
			if (res == Applied) != (len(eng.recorded) == 1) {
				t.Errorf("recorded %v for result %s", eng.recorded, res)
			}
		})
	}
}

func TestHandlerGrowShrinkClamp(t *testing.T) {
	eng := newMockEngine()
	h := NewHandler(eng, nil)

	for i := 0; i < 10; i++ {
		h.Process(Command{Type: CmdGrow})
	}
	if eng.size != game.MaxGridSize {
		t.Errorf("Expected %d after growing, got %d", game.MaxGridSize, eng.size)
	}
	for i := 0; i < 10; i++ {
		h.Process(Command{Type: CmdShrink})
	}
	if eng.size != game.MinGridSize {
		t.Errorf("Expected %d after shrinking, got %d", game.MinGridSize, eng.size)
	}
}

func TestHandlerErrors(t *testing.T) {
	eng := newMockEngine()
	eng.moveErr = game.ErrUnknownDirection
	h := NewHandler(eng, nil)

	res, err := h.Process(Command{Type: CmdMove})
	if res != Rejected || !errors.Is(err, game.ErrUnknownDirection) {
		t.Errorf("got %s %v", res, err)
	}

	h.AllowSpawn(true)
	eng.spawnErr = game.ErrNotRunning
	if res, err := h.Process(Command{Type: CmdSpawn}); res != Ignored || err != nil {
		t.Errorf("spawn while idle: %s %v", res, err)
	}
	eng.spawnErr = game.ErrInvalidCell
	if res, err := h.Process(Command{Type: CmdSpawn, Cell: 99}); res != Rejected || err == nil {
		t.Errorf("bad cell: %s %v", res, err)
	}
}

func TestHandlerRateLimit(t *testing.T) {
	eng := newMockEngine()
	rl := NewRateLimiter(RateLimitConfig{PerSecond: 0.001, Burst: 3})
	defer rl.Stop()
	h := NewHandler(eng, rl)

	var limited int
	for i := 0; i < 5; i++ {
		if res, _ := h.Process(Command{Type: CmdMove, Direction: game.DirUp, Source: "spammer"}); res == RateLimited {
			limited++
		}
	}
	if limited != 2 {
		t.Errorf("Expected 2 limited, got %d", limited)
	}
	if res, _ := h.Process(Command{Type: CmdMove, Direction: game.DirUp, Source: "other"}); res != Applied {
		t.Errorf("other source limited: %s", res)
	}
}

func TestHandlerOnProcessed(t *testing.T) {
	h := NewHandler(newMockEngine(), nil)
	var got []Result
	h.OnProcessed = func(cmd Command, res Result) { got = append(got, res) }

	h.Process(Command{Type: CmdStart})
	h.Process(Command{Type: CmdStart})
	if len(got) != 2 || got[0] != Applied || got[1] != Ignored {
		t.Errorf("got %v", got)
	}
}

func TestHandlerDrivesRealEngine(t *testing.T) {
	clock := game.NewManualClock(time.Unix(1700000000, 0))
	rules := game.DefaultRules()
	rules.MaxHealth = 1000
	rules.Spawn.InitialRate = time.Hour
	rules.Spawn.MinRate = time.Hour
	eng := game.NewEngine(game.EngineConfig{Clock: clock, GridSize: 7, Seed: 3, Rules: rules})
	h := NewHandler(eng, nil)

	for _, text := range []string{"+", "+", "-"} {
		cmd, _ := Parse("p1", text)
		h.Process(cmd)
	}
	if eng.GridSize() != 9 {
		t.Fatalf("Expected grid 9, got %d", eng.GridSize())
	}

	cmd, _ := ParseKey("p1", "Enter", false)
	if res, _ := h.Process(cmd); res != Applied || eng.State() != game.StateRunning {
		t.Fatalf("Enter did not start: %s %s", res, eng.State())
	}

	// a centred player dashes right three cells
	cmd, _ = ParseKey("p1", "ArrowRight", true)
	h.Process(cmd)
	if p := eng.GetSnapshot().Player; p.X != 7 || p.DashReady {
		t.Errorf("Expected dash to x=7 on cooldown, got %+v", p)
	}

	cmd, _ = Parse("p1", "resize 5")
	if res, _ := h.Process(cmd); res != Ignored || eng.GridSize() != 9 {
		t.Errorf("resize during a round: %s, size %d", res, eng.GridSize())
	}
}
