package game

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// ResourceLimits caps what a snapshot carries
type ResourceLimits struct {
	MaxCells    int // cells per snapshot, MaxGridSize² by default
	MaxPatterns int // live patterns listed per snapshot
}

// DefaultLimits provides production-safe default limits
var DefaultLimits = ResourceLimits{
	MaxCells:    MaxGridSize * MaxGridSize,
	MaxPatterns: 256,
}

// ZoneMask is the set of zones on a cell, one bit per Zone
type ZoneMask uint8

// MaskOf builds a mask from zones
func MaskOf(zones ...Zone) ZoneMask {
	var m ZoneMask
	for _, z := range zones {
		m |= 1 << z
	}
	return m
}

// Has reports whether z is in the mask
func (m ZoneMask) Has(z Zone) bool {
	return m&(1<<z) != 0
}

// Zones lists the zones in ascending order
func (m ZoneMask) Zones() []Zone {
	var out []Zone
	for z := ZoneTelegraph; z <= ZoneEnemy; z++ {
		if m.Has(z) {
			out = append(out, z)
		}
	}
	return out
}

// MarshalJSON encodes the mask as a list of zone names
func (m ZoneMask) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, 4)
	for _, z := range m.Zones() {
		names = append(names, z.String())
	}
	return json.Marshal(names)
}

// UnmarshalJSON decodes a list of zone names. Unknown names are skipped.
func (m *ZoneMask) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*m = 0
	for _, n := range names {
		if z, ok := ParseZone(n); ok {
			*m |= MaskOf(z)
		}
	}
	return nil
}

// CellSnapshot is one non-empty cell
type CellSnapshot struct {
	Index  int      `json:"index"`
	X      int      `json:"x"`
	Y      int      `json:"y"`
	Zones  ZoneMask `json:"zones"`
	Lethal bool     `json:"lethal"`
	Enemy  string   `json:"enemy,omitempty"` // kind of the enemy standing here
}

// PlayerSnapshot is an immutable copy of player state for rendering
type PlayerSnapshot struct {
	Position      int    `json:"position"`
	X             int    `json:"x"`
	Y             int    `json:"y"`
	Health        int    `json:"health"`
	MaxHealth     int    `json:"maxHealth"`
	Invincible    bool   `json:"invincible"`
	DashReady     bool   `json:"dashReady"`
	LastDirection string `json:"lastDirection"`
}

// PatternSnapshot is a live enemy pattern
type PatternSnapshot struct {
	ID     uint64 `json:"id"`
	Kind   string `json:"kind"`
	Origin int    `json:"origin"`
	AgeMs  int64  `json:"ageMs"`
}

// WaveSnapshot is the active wave
type WaveSnapshot struct {
	Threshold  int      `json:"threshold"`
	StartScore int      `json:"startScore"`
	EndScore   int      `json:"endScore"`
	Kinds      []string `json:"kinds"`
}

// GameSnapshot is a complete immutable game state for rendering.
// Slices are pre-allocated and capped by ResourceLimits.
type GameSnapshot struct {
	Sequence   uint64    `json:"sequence"`
	Timestamp  time.Time `json:"timestamp"`
	TickNumber uint64    `json:"tick"`
	ClockMs    int64     `json:"clockMs"`
	Epoch      uint64    `json:"epoch"`

	State       string `json:"state"`
	Score       int    `json:"score"`
	HighScore   int    `json:"highScore"`
	GridSize    int    `json:"gridSize"`
	SpawnRateMs int64  `json:"spawnRateMs"`

	Player   PlayerSnapshot    `json:"player"`
	Cells    []CellSnapshot    `json:"cells"`
	Patterns []PatternSnapshot `json:"patterns"`
	Wave     *WaveSnapshot     `json:"wave"`

	wave WaveSnapshot
}

// Cell returns the snapshot of cell index, or an empty cell
func (s *GameSnapshot) Cell(index int) CellSnapshot {
	for _, c := range s.Cells {
		if c.Index == index {
			return c
		}
	}
	x, y := 0, 0
	if s.GridSize > 0 {
		x, y = index%s.GridSize, index/s.GridSize
	}
	return CellSnapshot{Index: index, X: x, Y: y}
}

// Clone returns a deep copy the caller may modify
func (s *GameSnapshot) Clone() *GameSnapshot {
	c := *s
	c.Cells = append([]CellSnapshot{}, s.Cells...)
	c.Patterns = append([]PatternSnapshot{}, s.Patterns...)
	if s.Wave != nil {
		w := *s.Wave
		w.Kinds = append([]string(nil), s.Wave.Kinds...)
		c.wave = w
		c.Wave = &c.wave
	}
	return &c
}

// ToJSON encodes the snapshot
func (s *GameSnapshot) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// SnapshotPool publishes snapshots to lock-free readers.
// Every publish is a freshly built snapshot, so a reader holding one never
// sees it change. Slices are sized from the previous publish to keep
// allocations to one per slice.
type SnapshotPool struct {
	latest   atomic.Pointer[GameSnapshot]
	limits   ResourceLimits
	sequence atomic.Uint64
}

// NewSnapshotPool creates a pool whose first read is an empty snapshot
func NewSnapshotPool(limits ResourceLimits) *SnapshotPool {
	pool := &SnapshotPool{limits: limits}
	pool.latest.Store(&GameSnapshot{})
	return pool
}

// AcquireWrite returns a new snapshot for the producer to fill
func (p *SnapshotPool) AcquireWrite() *GameSnapshot {
	prev := p.latest.Load()
	return &GameSnapshot{
		Sequence:  p.sequence.Add(1),
		Timestamp: time.Now(),
		Cells:     make([]CellSnapshot, 0, min(len(prev.Cells)+8, p.limits.MaxCells)),
		Patterns:  make([]PatternSnapshot, 0, min(len(prev.Patterns)+4, p.limits.MaxPatterns)),
	}
}

// PublishWrite makes snap visible to readers. snap must not be modified after.
func (p *SnapshotPool) PublishWrite(snap *GameSnapshot) {
	p.latest.Store(snap)
}

// AcquireRead gets the latest complete snapshot. It is never written again.
func (p *SnapshotPool) AcquireRead() *GameSnapshot {
	return p.latest.Load()
}

// GetLimits returns the resource limits
func (p *SnapshotPool) GetLimits() ResourceLimits {
	return p.limits
}

// fillSnapshot copies session state into snap
func fillSnapshot(snap *GameSnapshot, s *Session, limits ResourceLimits) {
	g := s.Grid()
	now := s.Now()

	snap.ClockMs = now.Milliseconds()
	snap.Epoch = s.Epoch()
	snap.State = s.State().String()
	snap.Score = s.Score()
	snap.HighScore = s.HighScore()
	snap.GridSize = g.Size
	snap.SpawnRateMs = s.SpawnRate().Milliseconds()

	p := s.Player()
	px, py := -1, -1
	if g.Valid(p.Position) {
		px, py = g.IndexToCoord(p.Position)
	}
	snap.Player = PlayerSnapshot{
		Position:      p.Position,
		X:             px,
		Y:             py,
		Health:        p.Health,
		MaxHealth:     p.MaxHealth,
		Invincible:    p.Invincible,
		DashReady:     p.DashReady,
		LastDirection: p.LastDirection.String(),
	}

	for i := 0; i < g.CellCount() && len(snap.Cells) < limits.MaxCells; i++ {
		tags := s.Tags(i)
		if len(tags) == 0 {
			continue
		}
		var mask ZoneMask
		enemy := ""
		for _, t := range tags {
			mask |= MaskOf(t.Zone)
			if t.Zone == ZoneEnemy && enemy == "" {
				if k, ok := s.PatternKindOf(t.Pattern); ok {
					enemy = k.String()
				}
			}
		}
		x, y := g.IndexToCoord(i)
		snap.Cells = append(snap.Cells, CellSnapshot{
			Index:  i,
			X:      x,
			Y:      y,
			Zones:  mask,
			Lethal: s.Lethal(i),
			Enemy:  enemy,
		})
	}

	for _, pat := range s.Patterns() {
		if len(snap.Patterns) >= limits.MaxPatterns {
			break
		}
		snap.Patterns = append(snap.Patterns, PatternSnapshot{
			ID:     pat.ID,
			Kind:   pat.Kind.String(),
			Origin: pat.Origin,
			AgeMs:  (now - pat.SpawnedAt).Milliseconds(),
		})
	}

	if w, ok := s.ActiveWave(); ok {
		snap.wave.Threshold = w.Score
		snap.wave.StartScore = w.StartScore
		snap.wave.EndScore = w.EndScore
		for _, k := range w.Kinds {
			snap.wave.Kinds = append(snap.wave.Kinds, k.String())
		}
		snap.Wave = &snap.wave
	}
}
