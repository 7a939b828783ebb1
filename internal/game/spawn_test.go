package game

import (
	"math/rand"
	"testing"
	"time"
)

func TestSpawnRateScalesEveryInterval(t *testing.T) {
	s := NewSpawnScheduler(DefaultSpawnConfig())

	if s.OnScore(0) || s.OnScore(7) {
		t.Fatal("speed-up off a multiple of 8")
	}
	if !s.OnScore(8) {
		t.Fatal("no speed-up at 8")
	}
	if got := s.Rate(); got != 3600*time.Millisecond {
		t.Errorf("rate after one step = %v, want 3.6s", got)
	}

	for score := 16; score <= 800; score += 8 {
		s.OnScore(score)
	}
	if got := s.Rate(); got != 750*time.Millisecond {
		t.Errorf("rate = %v, want floor 750ms", got)
	}

	s.Reset()
	if s.Rate() != 4*time.Second {
		t.Errorf("Reset rate = %v", s.Rate())
	}
}

func TestEnemyCountBounds(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for _, size := range []int{5, 7, 21} {
		max := int(float64(size)/2.5) + 1
		seen := make(map[int]bool)
		for i := 0; i < 2000; i++ {
			n := EnemyCount(r, size)
			if n < 1 || n > max {
				t.Fatalf("size %d: count %d outside [1,%d]", size, n, max)
			}
			seen[n] = true
		}
		if !seen[1] {
			t.Errorf("size %d: never spawned a single enemy", size)
		}
	}
}

func TestPickSpawnCellAvoidsPlayer(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	g := NewGrid(5)
	for i := 0; i < 1000; i++ {
		c, ok := PickSpawnCell(r, g, 12)
		if !ok || c == 12 || !g.Valid(c) {
			t.Fatalf("picked %d, %v", c, ok)
		}
	}
}

func TestPickSpawnCellTerminatesOnSingleCell(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	if _, ok := PickSpawnCell(r, Grid{Size: 1}, 0); ok {
		t.Error("found a free cell on a 1-cell grid occupied by the player")
	}
	if c, ok := PickSpawnCell(r, Grid{Size: 1}, -1); !ok || c != 0 {
		t.Errorf("empty 1-cell grid: got %d, %v", c, ok)
	}
}
