package sfx

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"grid-arena/internal/game"
)

func TestParseCue(t *testing.T) {
	for _, c := range Cues() {
		got, err := ParseCue(c.String() + ".wav")
		if err != nil || got != c {
			t.Errorf("ParseCue(%s.wav) = %v, %v", c, got, err)
		}
	}
	if _, err := ParseCue("explosion"); !errors.Is(err, ErrUnknownCue) {
		t.Errorf("Expected ErrUnknownCue, got %v", err)
	}
}

func TestStreamerLength(t *testing.T) {
	cfg := DefaultConfig()
	rate := beep.SampleRate(cfg.SampleRate)

	for _, c := range Cues() {
		t.Run(c.String(), func(t *testing.T) {
			s, err := Streamer(c, cfg)
			if err != nil {
				t.Fatal(err)
			}
			buf := make([][2]float64, 512)
			total := 0
			for {
				n, ok := s.Stream(buf)
				total += n
				if !ok {
					break
				}
			}
			// each note rounds to whole samples independently
			want := rate.N(Duration(c))
			if diff := total - want; diff < -3 || diff > 3 {
				t.Errorf("streamed %d samples, want about %d", total, want)
			}
		})
	}
}

func TestEncodeWAVRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	data, err := EncodeWAV(CueDamage, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("bad header %q", data[:12])
	}

	s, format, err := wav.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if int(format.SampleRate) != cfg.SampleRate || format.NumChannels != 2 {
		t.Errorf("unexpected format %+v", format)
	}
	if want := format.SampleRate.N(180 * time.Millisecond); s.Len() != want {
		t.Errorf("decoded %d samples, want %d", s.Len(), want)
	}
}

func TestBankCaches(t *testing.T) {
	b := NewBank(DefaultConfig())
	first, err := b.WAV(CueStart)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := b.WAV(CueStart)
	if &first[0] != &second[0] {
		t.Error("Expected cached bytes on the second call")
	}
	if err := b.Warm(); err != nil {
		t.Fatal(err)
	}
	stats := b.Stats()
	if stats["cached"] != len(Cues()) {
		t.Errorf("cached = %v", stats["cached"])
	}
	if _, err := b.WAV(Cue(99)); !errors.Is(err, ErrUnknownCue) {
		t.Errorf("Expected ErrUnknownCue, got %v", err)
	}
}

func TestMutedCueIsSilent(t *testing.T) {
	s, err := Streamer(CueStart, Config{SampleRate: 8000, Volume: 0})
	if err != nil {
		t.Fatal(err)
	}
	buf := make([][2]float64, 256)
	for {
		n, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			if buf[i][0] != 0 || buf[i][1] != 0 {
				t.Fatal("muted cue produced sound")
			}
		}
		if !ok {
			break
		}
	}
}

func TestPlayerWithoutInitIsNoop(t *testing.T) {
	p := NewPlayer(DefaultConfig())
	p.Play(CueDash)
	p.Close()
}

func TestDetector(t *testing.T) {
	snap := func(state string, epoch uint64, health int, dash bool, patterns int) *game.GameSnapshot {
		s := &game.GameSnapshot{State: state, Epoch: epoch}
		s.Player.Health = health
		s.Player.DashReady = dash
		s.Patterns = make([]game.PatternSnapshot, patterns)
		return s
	}
	running, over, pre := game.StateRunning.String(), game.StateGameOver.String(), game.StatePreGame.String()

	var d Detector
	steps := []struct {
		name string
		snap *game.GameSnapshot
		want []Cue
	}{
		{"first frame primes", snap(pre, 0, 3, true, 0), nil},
		{"round starts", snap(running, 1, 3, true, 1), []Cue{CueStart}},
		{"spawn", snap(running, 1, 3, true, 2), []Cue{CueSpawn}},
		{"dash and hit", snap(running, 1, 2, false, 2), []Cue{CueDamage, CueDash}},
		{"quiet", snap(running, 1, 2, false, 1), nil},
		{"game over", snap(over, 1, 0, true, 0), []Cue{CueGameOver}},
		{"restart", snap(running, 2, 3, true, 1), []Cue{CueStart}},
	}
	for _, st := range steps {
		got := d.Observe(st.snap)
		if len(got) != len(st.want) {
			t.Fatalf("%s: got %v, want %v", st.name, got, st.want)
		}
		for i := range got {
			if got[i] != st.want[i] {
				t.Errorf("%s: got %v, want %v", st.name, got, st.want)
			}
		}
	}

	hs := snap(over, 2, 0, true, 0)
	hs.HighScore = 50
	if got := d.Observe(hs); len(got) != 1 || got[0] != CueHighScore {
		t.Errorf("Expected high score cue, got %v", got)
	}
}
