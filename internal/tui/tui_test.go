package tui

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"grid-arena/internal/game"
	"grid-arena/internal/input"
	"grid-arena/internal/sfx"
)

func TestMapKey(t *testing.T) {
	tests := []struct {
		name   string
		key    tcell.Key
		ch     rune
		mod    tcell.ModMask
		action Action
		msg    input.Message
	}{
		{"arrow", tcell.KeyLeft, 0, tcell.ModNone, ActionSend, input.Message{Key: "ArrowLeft"}},
		{"shift arrow dashes", tcell.KeyUp, 0, tcell.ModShift, ActionSend, input.Message{Key: "ArrowUp", Shift: true}},
		{"enter", tcell.KeyEnter, 0, tcell.ModNone, ActionSend, input.Message{Key: "Enter"}},
		{"wasd", tcell.KeyRune, 'd', tcell.ModNone, ActionSend, input.Message{Key: "ArrowRight"}},
		{"upper wasd dashes", tcell.KeyRune, 'S', tcell.ModNone, ActionSend, input.Message{Key: "ArrowDown", Shift: true}},
		{"space", tcell.KeyRune, ' ', tcell.ModNone, ActionSend, input.Message{Key: " "}},
		{"grow", tcell.KeyRune, '=', tcell.ModNone, ActionSend, input.Message{Key: "="}},
		{"shrink", tcell.KeyRune, '-', tcell.ModNone, ActionSend, input.Message{Key: "-"}},
		{"mute", tcell.KeyRune, 'm', tcell.ModNone, ActionMute, input.Message{}},
		{"q quits", tcell.KeyRune, 'q', tcell.ModNone, ActionQuit, input.Message{}},
		{"escape quits", tcell.KeyEscape, 0, tcell.ModNone, ActionQuit, input.Message{}},
		{"other rune", tcell.KeyRune, 'x', tcell.ModNone, ActionNone, input.Message{}},
		{"function key", tcell.KeyF1, 0, tcell.ModNone, ActionNone, input.Message{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, msg := MapKey(tt.key, tt.ch, tt.mod)
			if action != tt.action || msg != tt.msg {
				t.Errorf("got %v %+v, want %v %+v", action, msg, tt.action, tt.msg)
			}
		})
	}
}

// every message MapKey sends must parse as an arena command
func TestMappedKeysParse(t *testing.T) {
	for _, key := range []tcell.Key{tcell.KeyUp, tcell.KeyDown, tcell.KeyLeft, tcell.KeyRight, tcell.KeyEnter} {
		_, msg := MapKey(key, 0, tcell.ModNone)
		if _, err := msg.ToCommand("tui"); err != nil {
			t.Errorf("%v: %v", key, err)
		}
	}
	for _, r := range "wasdWASD +=-" {
		_, msg := MapKey(tcell.KeyRune, r, tcell.ModNone)
		if _, err := msg.ToCommand("tui"); err != nil {
			t.Errorf("%q: %v", r, err)
		}
	}
}

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	s.SetSize(60, 20)
	t.Cleanup(s.Fini)
	return s
}

func newEngine() *game.Engine {
	rules := game.DefaultRules()
	rules.MaxHealth = 1000
	rules.Spawn.InitialRate = time.Hour
	rules.Spawn.MinRate = time.Hour
	return game.NewEngine(game.EngineConfig{
		Clock:    game.NewManualClock(time.Unix(0, 0)),
		GridSize: 5,
		Seed:     3,
		Rules:    rules,
	})
}

func runeAt(s tcell.Screen, x, y int) rune {
	r, _, _, _ := s.GetContent(x, y)
	return r
}

func TestDrawPlacesPlayer(t *testing.T) {
	s := newScreen(t)
	eng := newEngine()
	eng.StartSession()
	if _, err := eng.SpawnPattern(game.PatternLaser, 0); err != nil {
		t.Fatal(err)
	}
	snap := eng.GetSnapshot().Clone()

	Draw(s, snap, false)
	l := BoardOrigin(60, 20, 5)

	if r := runeAt(s, l.Left+2*cellWidth, l.Top+2); r != '@' {
		t.Errorf("Expected player at the centre, got %q", r)
	}
	// laser origin sits in the corner
	if r := runeAt(s, l.Left, l.Top); r != '#' {
		t.Errorf("Expected laser glyph at the origin, got %q", r)
	}
	// telegraphed row
	if r := runeAt(s, l.Left+cellWidth, l.Top); r == '·' {
		t.Errorf("Expected a telegraph on row 0, got an empty cell")
	}
	if r := runeAt(s, 0, 0); r != 'S' {
		t.Errorf("Expected the HUD on the first row, got %q", r)
	}
}

func TestDrawWaiting(t *testing.T) {
	s := newScreen(t)
	Draw(s, nil, false)
	if r := runeAt(s, 0, 0); r != 'w' {
		t.Errorf("Expected waiting text, got %q", r)
	}
}

type recordingSounds struct {
	cues []sfx.Cue
}

func (r *recordingSounds) Play(c sfx.Cue) { r.cues = append(r.cues, c) }

func TestAppLocalRound(t *testing.T) {
	s := newScreen(t)
	eng := newEngine()
	sounds := &recordingSounds{}
	app := NewApp(s, NewLocalBackend(eng), sounds)

	app.Frame() // prime the detector on the idle board

	if !app.HandleEvent(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)) {
		t.Fatal("Enter should not quit")
	}
	if eng.State() != game.StateRunning {
		t.Fatal("Enter did not start a round")
	}
	app.Frame()

	app.HandleEvent(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModShift))
	if snap := eng.GetSnapshot(); snap.Player.X != 4 || snap.Player.DashReady {
		t.Errorf("Expected a dash to the edge, got %+v", snap.Player)
	}
	app.Frame()

	want := map[sfx.Cue]bool{sfx.CueStart: false, sfx.CueDash: false}
	for _, c := range sounds.cues {
		if _, ok := want[c]; ok {
			want[c] = true
		}
	}
	for c, seen := range want {
		if !seen {
			t.Errorf("cue %s not played (got %v)", c, sounds.cues)
		}
	}

	if app.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Error("q should quit")
	}
}

func TestAppMute(t *testing.T) {
	s := newScreen(t)
	eng := newEngine()
	sounds := &recordingSounds{}
	app := NewApp(s, NewLocalBackend(eng), sounds)

	app.Frame()
	app.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'm', tcell.ModNone))
	app.HandleEvent(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	app.Frame()

	if len(sounds.cues) != 0 {
		t.Errorf("muted app played %v", sounds.cues)
	}
}
