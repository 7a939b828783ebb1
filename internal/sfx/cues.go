// Package sfx synthesizes the arena's sound cues with beep.
package sfx

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
)

// ErrUnknownCue is returned for names that are not cues
var ErrUnknownCue = errors.New("unknown sound cue")

// Cue is a short sound tied to a game event
type Cue int

const (
	CueStart Cue = iota
	CueDash
	CueDamage
	CueSpawn
	CueWave
	CueGameOver
	CueHighScore
	cueCount
)

var cueNames = [...]string{
	CueStart:     "start",
	CueDash:      "dash",
	CueDamage:    "damage",
	CueSpawn:     "spawn",
	CueWave:      "wave",
	CueGameOver:  "gameover",
	CueHighScore: "highscore",
}

// String returns the cue name used in URLs
func (c Cue) String() string {
	if c >= 0 && c < cueCount {
		return cueNames[c]
	}
	return "unknown"
}

// Cues lists every cue
func Cues() []Cue {
	out := make([]Cue, 0, cueCount)
	for c := Cue(0); c < cueCount; c++ {
		out = append(out, c)
	}
	return out
}

// ParseCue maps a name such as "damage" or "damage.wav" to its cue
func ParseCue(name string) (Cue, error) {
	name = strings.TrimSuffix(strings.ToLower(name), ".wav")
	for c, n := range cueNames {
		if n == name {
			return Cue(c), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCue, name)
}

// Config controls synthesis
type Config struct {
	SampleRate int
	Volume     float64 // linear gain, 0 mutes
}

// DefaultConfig returns the default synthesis settings
func DefaultConfig() Config {
	return Config{SampleRate: 44100, Volume: 0.3}
}

// note is one tone of a cue
type note struct {
	freq     float64
	duration time.Duration
	level    float64
}

// cueNotes describes each cue as a sequence of notes
var cueNotes = map[Cue][]note{
	CueStart:     {{523.25, 90 * time.Millisecond, 1}, {659.25, 90 * time.Millisecond, 1}, {783.99, 140 * time.Millisecond, 1}},
	CueDash:      {{1200, 40 * time.Millisecond, 0.6}, {900, 50 * time.Millisecond, 0.5}},
	CueDamage:    {{140, 180 * time.Millisecond, 1}},
	CueSpawn:     {{330, 60 * time.Millisecond, 0.5}},
	CueWave:      {{440, 120 * time.Millisecond, 0.8}, {440, 60 * time.Millisecond, 0}, {587.33, 180 * time.Millisecond, 0.8}},
	CueGameOver:  {{392, 200 * time.Millisecond, 1}, {311.13, 200 * time.Millisecond, 1}, {196, 400 * time.Millisecond, 1}},
	CueHighScore: {{783.99, 100 * time.Millisecond, 1}, {987.77, 100 * time.Millisecond, 1}, {1318.51, 260 * time.Millisecond, 1}},
}

// Duration returns the length of a cue
func Duration(c Cue) time.Duration {
	var d time.Duration
	for _, n := range cueNotes[c] {
		d += n.duration
	}
	return d
}

// Streamer builds a fresh, finite streamer for the cue
func Streamer(c Cue, cfg Config) (beep.Streamer, error) {
	notes, ok := cueNotes[c]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCue, c)
	}
	rate := beep.SampleRate(cfg.SampleRate)

	parts := make([]beep.Streamer, 0, len(notes))
	for _, n := range notes {
		s, err := tone(rate, n)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	return volume(beep.Seq(parts...), cfg.Volume), nil
}

// tone renders one note with a short attack and release
func tone(rate beep.SampleRate, n note) (beep.Streamer, error) {
	samples := rate.N(n.duration)
	if n.level <= 0 || n.freq <= 0 {
		return beep.Silence(samples), nil
	}
	sine, err := generators.SineTone(rate, n.freq)
	if err != nil {
		return nil, fmt.Errorf("note %.0fHz: %w", n.freq, err)
	}
	ramp := rate.N(5 * time.Millisecond)
	return volume(newEnvelope(beep.Take(samples, sine), samples, ramp), n.level), nil
}

// volume wraps s with a linear gain. Zero or less is silent.
func volume(s beep.Streamer, gain float64) beep.Streamer {
	if gain <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(gain)}
}

// envelope fades the first and last ramp samples to avoid clicks
type envelope struct {
	streamer beep.Streamer
	position int
	total    int
	ramp     int
}

func newEnvelope(s beep.Streamer, total, ramp int) beep.Streamer {
	if ramp*2 > total {
		ramp = total / 2
	}
	return &envelope{streamer: s, total: total, ramp: ramp}
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		vol := 1.0
		switch {
		case e.ramp == 0:
		case e.position < e.ramp:
			vol = float64(e.position) / float64(e.ramp)
		case e.position >= e.total-e.ramp:
			vol = float64(e.total-e.position) / float64(e.ramp)
		}
		samples[i][0] *= vol
		samples[i][1] *= vol
		e.position++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }
