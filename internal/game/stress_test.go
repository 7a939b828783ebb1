package game

import (
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// STRESS TEST SUITE: SUSTAINED PLAY SIMULATION
// Run with: go test -v -run=TestStress -timeout=60s ./internal/game/...
// =============================================================================

// StressTestResult contains metrics from stress tests
type StressTestResult struct {
	TotalTicks      int64
	AvgTickTime     time.Duration
	MaxTickTime     time.Duration
	P99TickTime     time.Duration
	CommandsHandled int64
	Rounds          int64
	PeakPatterns    int
}

// StressTestConfig configures stress test parameters
type StressTestConfig struct {
	GridSize         int
	SimulatedTime    time.Duration
	TickInterval     time.Duration
	CommandsPerTick  int
	ExtraSpawnChance float64 // Probability of a manual spawn per tick
	LatencyThreshold time.Duration
}

// DefaultStressConfig returns a busy max-size board config
func DefaultStressConfig() StressTestConfig {
	return StressTestConfig{
		GridSize:         MaxGridSize,
		SimulatedTime:    5 * time.Minute,
		TickInterval:     16 * time.Millisecond,
		CommandsPerTick:  2,
		ExtraSpawnChance: 0.05,
		LatencyThreshold: 20 * time.Millisecond,
	}
}

func runStressTest(t *testing.T, cfg StressTestConfig) StressTestResult {
	t.Helper()

	clock := NewManualClock(time.Unix(0, 0))
	e := NewEngine(EngineConfig{GridSize: cfg.GridSize, Seed: 99, Clock: clock})

	var rounds int64
	e.SetCallbacks(Callbacks{
		OnGameOver: func(int, bool) { atomic.AddInt64(&rounds, 1) },
	})

	r := rand.New(rand.NewSource(5))
	dirs := []Direction{DirUp, DirDown, DirLeft, DirRight}

	var result StressTestResult
	var tickTimes []time.Duration
	var total time.Duration

	for elapsed := time.Duration(0); elapsed < cfg.SimulatedTime; elapsed += cfg.TickInterval {
		for i := 0; i < cfg.CommandsPerTick; i++ {
			if err := e.Move(dirs[r.Intn(len(dirs))], r.Intn(4) == 0); err != nil {
				t.Fatalf("Move failed: %v", err)
			}
			result.CommandsHandled++
		}
		if r.Float64() < cfg.ExtraSpawnChance {
			kind := AllPatternKinds[r.Intn(len(AllPatternKinds))]
			e.SpawnPattern(kind, r.Intn(cfg.GridSize*cfg.GridSize))
		}

		clock.Advance(cfg.TickInterval)
		start := time.Now()
		e.Tick()
		d := time.Since(start)

		tickTimes = append(tickTimes, d)
		total += d
		if d > result.MaxTickTime {
			result.MaxTickTime = d
		}
		if n := len(e.GetSnapshot().Patterns); n > result.PeakPatterns {
			result.PeakPatterns = n
		}
		result.TotalTicks++
	}

	sort.Slice(tickTimes, func(i, j int) bool { return tickTimes[i] < tickTimes[j] })
	result.P99TickTime = tickTimes[len(tickTimes)*99/100]
	result.AvgTickTime = total / time.Duration(result.TotalTicks)
	result.Rounds = atomic.LoadInt64(&rounds)
	return result
}

// -----------------------------------------------------------------------------
// STRESS TEST: SUSTAINED PLAY
// -----------------------------------------------------------------------------

func TestStress_SustainedPlay(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping stress test in short mode")
	}

	cfg := DefaultStressConfig()
	result := runStressTest(t, cfg)

	t.Logf("📊 Ticks: %d, Avg: %v, P99: %v, Max: %v", result.TotalTicks, result.AvgTickTime, result.P99TickTime, result.MaxTickTime)
	t.Logf("📊 Commands: %d, Rounds: %d, Peak patterns: %d", result.CommandsHandled, result.Rounds, result.PeakPatterns)

	if result.P99TickTime > cfg.LatencyThreshold {
		t.Errorf("P99 tick time %v exceeds threshold %v", result.P99TickTime, cfg.LatencyThreshold)
	}
	if result.Rounds == 0 {
		t.Error("random play never lost a round in five minutes")
	}
	if result.PeakPatterns > DefaultLimits.MaxPatterns {
		t.Errorf("snapshot exceeded pattern limit: %d", result.PeakPatterns)
	}
}

// -----------------------------------------------------------------------------
// STRESS TEST: CONCURRENT CLIENTS
// -----------------------------------------------------------------------------

func TestStress_ConcurrentClients(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping stress test in short mode")
	}

	e := NewEngine(EngineConfig{TickRate: 120, GridSize: 11, Seed: 3})
	e.Start()
	defer e.Stop()

	var wg sync.WaitGroup
	var moves, resizes int64
	stop := make(chan struct{})

	for c := 0; c < 8; c++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
				}
				switch r.Intn(10) {
				case 0:
					if _, err := e.ResizeBy(2 * (r.Intn(3) - 1)); err == nil {
						atomic.AddInt64(&resizes, 1)
					}
				case 1:
					e.StartSession()
				default:
					e.Move(Direction(r.Intn(4)+1), r.Intn(3) == 0)
					atomic.AddInt64(&moves, 1)
				}
				e.GetSnapshot()
				time.Sleep(time.Millisecond)
			}
		}(int64(c))
	}

	time.Sleep(2 * time.Second)
	close(stop)
	wg.Wait()

	t.Logf("📊 Moves: %d, Resizes: %d, Ticks: %d", moves, resizes, e.TickCount())

	size := e.GridSize()
	if size < MinGridSize || size > MaxGridSize || size%2 == 0 {
		t.Errorf("grid size %d out of range after concurrent resizes", size)
	}
	if e.TickCount() == 0 {
		t.Error("game loop stalled under client load")
	}
}
