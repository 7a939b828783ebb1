package game

import (
	"math/rand"
	"time"
)

// SpawnConfig controls how fast enemies appear and how that speeds up
type SpawnConfig struct {
	InitialRate        time.Duration // interval between spawn ticks at score 0
	MinRate            time.Duration // floor for the interval
	DifficultyInterval int           // score multiple that triggers a speed-up
	Multiplier         float64       // applied to the interval on each speed-up
}

// DefaultSpawnConfig returns the stock spawn tuning
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		InitialRate:        4000 * time.Millisecond,
		MinRate:            750 * time.Millisecond,
		DifficultyInterval: 8,
		Multiplier:         0.9,
	}
}

// SpawnScheduler holds the current spawn interval
type SpawnScheduler struct {
	cfg  SpawnConfig
	rate time.Duration
}

// NewSpawnScheduler starts at the initial rate
func NewSpawnScheduler(cfg SpawnConfig) *SpawnScheduler {
	if cfg.DifficultyInterval <= 0 {
		cfg.DifficultyInterval = DefaultSpawnConfig().DifficultyInterval
	}
	if cfg.MinRate <= 0 {
		cfg.MinRate = time.Millisecond
	}
	s := &SpawnScheduler{cfg: cfg}
	s.Reset()
	return s
}

// Reset restores the initial rate
func (s *SpawnScheduler) Reset() {
	s.rate = s.cfg.InitialRate
	if s.rate < s.cfg.MinRate {
		s.rate = s.cfg.MinRate
	}
}

// Rate returns the current spawn interval
func (s *SpawnScheduler) Rate() time.Duration {
	return s.rate
}

// OnScore speeds spawning up when score is a positive multiple of the
// difficulty interval. Returns true when the caller must re-arm the spawn
// timer at the new rate.
func (s *SpawnScheduler) OnScore(score int) bool {
	if score <= 0 || score%s.cfg.DifficultyInterval != 0 {
		return false
	}
	next := time.Duration(float64(s.rate) * s.cfg.Multiplier)
	if next < s.cfg.MinRate {
		next = s.cfg.MinRate
	}
	s.rate = next
	return true
}

// EnemyCount returns how many enemies one spawn tick creates:
// floor(rand * size/2.5) + 1.
func EnemyCount(r *rand.Rand, size int) int {
	return int(r.Float64()*(float64(size)/2.5)) + 1
}

const maxSpawnAttempts = 64

// PickSpawnCell returns a random cell other than avoid. Sampling is bounded;
// after maxSpawnAttempts misses it falls back to the first free cell, and it
// reports false only when no such cell exists.
func PickSpawnCell(r *rand.Rand, g Grid, avoid int) (int, bool) {
	n := g.CellCount()
	if n == 0 || (n == 1 && avoid == 0) {
		return -1, false
	}
	for i := 0; i < maxSpawnAttempts; i++ {
		c := r.Intn(n)
		if c != avoid {
			return c, true
		}
	}
	for c := 0; c < n; c++ {
		if c != avoid {
			return c, true
		}
	}
	return -1, false
}
