package game

import (
	"math/rand"
	"sort"
	"time"
)

// Wave restricts spawning to a subset of pattern kinds for a while once the
// score reaches its threshold.
type Wave struct {
	Score    int           `json:"score"`
	Duration time.Duration `json:"duration"`
	Kinds    []PatternKind `json:"-"`
}

// DefaultWaves returns the stock wave table
func DefaultWaves() []Wave {
	return []Wave{
		{Score: 10, Duration: 15 * time.Second, Kinds: []PatternKind{PatternSniper, PatternLaser}},
		{Score: 25, Duration: 20 * time.Second, Kinds: []PatternKind{PatternShockwave, PatternTrail}},
		{Score: 40, Duration: 15 * time.Second, Kinds: []PatternKind{PatternHunter, PatternCross}},
		{Score: 60, Duration: 10 * time.Second, Kinds: []PatternKind{PatternSpinner}},
		{Score: 80, Duration: 25 * time.Second, Kinds: []PatternKind{PatternGuardian, PatternHunter, PatternSniper}},
		{Score: 100, Duration: 20 * time.Second, Kinds: []PatternKind{PatternCross, PatternLaser, PatternShockwave}},
	}
}

// ActiveWave is the wave currently restricting spawns
type ActiveWave struct {
	Wave
	StartScore int
	EndScore   int
}

// WaveScheduler tracks which wave thresholds have fired this session and
// which wave, if any, is active.
type WaveScheduler struct {
	waves     []Wave
	triggered map[int]bool
	active    *ActiveWave
}

// NewWaveScheduler sorts waves by ascending threshold
func NewWaveScheduler(waves []Wave) *WaveScheduler {
	sorted := make([]Wave, len(waves))
	copy(sorted, waves)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score < sorted[j].Score })
	return &WaveScheduler{
		waves:     sorted,
		triggered: make(map[int]bool),
	}
}

// Waves returns the configured table in threshold order
func (w *WaveScheduler) Waves() []Wave {
	return w.waves
}

// Reset forgets trigger history and the active wave
func (w *WaveScheduler) Reset() {
	w.triggered = make(map[int]bool)
	w.active = nil
}

// Check expires the active wave when its end score is reached, then activates
// the lowest untriggered threshold at or below score, replacing any active
// wave. Returns the newly activated wave, or nil.
func (w *WaveScheduler) Check(score int) *ActiveWave {
	if w.active != nil && score >= w.active.EndScore {
		w.active = nil
	}
	for _, wave := range w.waves {
		if score >= wave.Score && !w.triggered[wave.Score] {
			w.triggered[wave.Score] = true
			w.active = &ActiveWave{
				Wave:       wave,
				StartScore: score,
				EndScore:   score + int(wave.Duration/time.Second),
			}
			return w.active
		}
	}
	return nil
}

// Active returns the active wave or nil
func (w *WaveScheduler) Active() *ActiveWave {
	return w.active
}

// Triggered reports whether threshold has fired this session
func (w *WaveScheduler) Triggered(threshold int) bool {
	return w.triggered[threshold]
}

// AllowedKinds returns the kinds spawn selection currently draws from
func (w *WaveScheduler) AllowedKinds() []PatternKind {
	if w.active != nil && len(w.active.Kinds) > 0 {
		return w.active.Kinds
	}
	return AllPatternKinds
}

// Pick draws one allowed kind uniformly at random
func (w *WaveScheduler) Pick(r *rand.Rand) PatternKind {
	kinds := w.AllowedKinds()
	return kinds[r.Intn(len(kinds))]
}
