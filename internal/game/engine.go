package game

import (
	"log"
	"sync"
	"time"
)

// Clock is the engine's wall-time source
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real monotonic clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a controllable clock for tests
type ManualClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManualClock starts a manual clock at start
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current mocked time
func (c *ManualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// EngineConfig configures NewEngine
type EngineConfig struct {
	TickRate   int   // ticks per second of the background loop
	GridSize   int   // initial board size
	Seed       int64 // 0 seeds from the wall clock
	Rules      Rules
	Limits     ResourceLimits
	Clock      Clock
	HighScores HighScoreStore
}

// Callbacks observe engine events. They run on the game loop with the
// engine lock held and must not call back into the Engine.
type Callbacks struct {
	OnStart      func(size int)
	OnGameOver   func(score int, newHigh bool)
	OnDamage     func(cell, health int)
	OnSpawn      func(p PatternInstance)
	OnPatternEnd func(p PatternInstance)
	OnWave       func(w ActiveWave)
	OnDash       func(from, to int)
	OnTick       func(elapsed time.Duration, fired int)
}

// Engine runs a Session on wall time: a ticker goroutine feeds elapsed time
// into Session.Advance and publishes a snapshot after every tick and input.
type Engine struct {
	mu      sync.RWMutex
	session *Session
	clock   Clock
	origin  time.Time

	tickRate  int
	running   bool
	ticker    *time.Ticker
	stopChan  chan struct{}
	tickCount uint64
	seed      int64

	callbacks Callbacks

	limits       ResourceLimits
	snapshotPool *SnapshotPool
	eventLog     *EventLog
}

// NewEngine creates an engine with a PRE_GAME session
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}
	if cfg.GridSize == 0 {
		cfg.GridSize = DefaultGridSize
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Limits.MaxCells <= 0 || cfg.Limits.MaxPatterns <= 0 {
		cfg.Limits = DefaultLimits
	}
	if cfg.Rules.MaxHealth == 0 {
		cfg.Rules = DefaultRules()
	}

	e := &Engine{
		session:      NewSession(cfg.Rules, cfg.GridSize, cfg.Seed),
		clock:        cfg.Clock,
		origin:       cfg.Clock.Now(),
		tickRate:     cfg.TickRate,
		stopChan:     make(chan struct{}),
		seed:         cfg.Seed,
		limits:       cfg.Limits,
		snapshotPool: NewSnapshotPool(cfg.Limits),
		eventLog:     NewEventLog(),
	}
	e.session.SetHighScoreStore(cfg.HighScores)
	e.session.SetHooks(e.sessionHooks())
	e.produceSnapshot()
	return e
}

// Start begins the game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	ticker := time.NewTicker(time.Second / time.Duration(e.tickRate))
	stop := make(chan struct{})
	e.ticker, e.stopChan = ticker, stop
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				e.Tick()
			case <-stop:
				return
			}
		}
	}()

	log.Printf("🎮 Game engine started at %d TPS", e.tickRate)
}

// Stop stops the game loop
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false
	e.ticker.Stop()
	close(e.stopChan)
	log.Println("🛑 Game engine stopped")
}

// Tick advances the session to the clock's current time and publishes a
// snapshot. The background loop calls it; tests drive it with a ManualClock.
func (e *Engine) Tick() {
	start := time.Now()

	e.mu.Lock()
	e.tickCount++
	fired := e.advanceLocked()
	e.produceSnapshot()
	onTick := e.callbacks.OnTick
	e.mu.Unlock()

	if onTick != nil {
		onTick(time.Since(start), fired)
	}
}

func (e *Engine) advanceLocked() int {
	return e.session.Advance(e.clock.Now().Sub(e.origin))
}

// SetCallbacks installs event observers
func (e *Engine) SetCallbacks(cb Callbacks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callbacks = cb
}

func (e *Engine) sessionHooks() Hooks {
	return Hooks{
		OnStart: func(size int) {
			log.Printf("🎮 Session started on %dx%d grid", size, size)
			e.emit(EventTypeSessionStart, SessionStartPayload{GridSize: size, Seed: e.seed})
			if e.callbacks.OnStart != nil {
				e.callbacks.OnStart(size)
			}
		},
		OnGameOver: func(score int, newHigh bool) {
			if newHigh {
				log.Printf("🏆 New high score: %d", score)
			}
			log.Printf("💀 Game over at score %d", score)
			e.emit(EventTypeGameOver, GameOverPayload{Score: score, NewHighScore: newHigh})
			if e.callbacks.OnGameOver != nil {
				e.callbacks.OnGameOver(score, newHigh)
			}
		},
		OnDamage: func(cell, health int) {
			e.emit(EventTypeDamage, DamagePayload{Cell: cell, Health: health})
			if e.callbacks.OnDamage != nil {
				e.callbacks.OnDamage(cell, health)
			}
		},
		OnSpawn: func(p PatternInstance) {
			e.emit(EventTypeSpawn, SpawnPayload{PatternID: p.ID, Kind: p.Kind.String(), Origin: p.Origin})
			if e.callbacks.OnSpawn != nil {
				e.callbacks.OnSpawn(p)
			}
		},
		OnPatternEnd: func(p PatternInstance) {
			e.emit(EventTypePatternEnd, SpawnPayload{PatternID: p.ID, Kind: p.Kind.String(), Origin: p.Origin})
			if e.callbacks.OnPatternEnd != nil {
				e.callbacks.OnPatternEnd(p)
			}
		},
		OnWave: func(w ActiveWave) {
			kinds := make([]string, len(w.Kinds))
			for i, k := range w.Kinds {
				kinds[i] = k.String()
			}
			log.Printf("🌊 Wave %d active until score %d: %v", w.Score, w.EndScore, kinds)
			e.emit(EventTypeWave, WavePayload{Threshold: w.Score, EndScore: w.EndScore, Kinds: kinds})
			if e.callbacks.OnWave != nil {
				e.callbacks.OnWave(w)
			}
		},
		OnDash: func(from, to int) {
			e.emit(EventTypeDash, DashPayload{From: from, To: to})
			if e.callbacks.OnDash != nil {
				e.callbacks.OnDash(from, to)
			}
		},
	}
}

func (e *Engine) emit(t EventType, payload interface{}) {
	e.eventLog.EmitSimple(t, e.session.Now(), e.session.Epoch(), "", payload)
}

// =============================================================================
// INPUT
// =============================================================================

// StartSession begins a new round immediately
func (e *Engine) StartSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advanceLocked()
	e.session.Start()
	e.produceSnapshot()
}

// Move applies a directional input (starting a round when idle)
func (e *Engine) Move(dir Direction, dash bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advanceLocked()
	if err := e.session.HandleMove(dir, dash); err != nil {
		return err
	}
	e.produceSnapshot()
	return nil
}

// Dash dashes in the last movement direction
func (e *Engine) Dash() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advanceLocked()
	if err := e.session.HandleDash(); err != nil {
		return err
	}
	e.produceSnapshot()
	return nil
}

// Resize changes the board size outside a round
func (e *Engine) Resize(size int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resizeLocked(func() (int, error) { return e.session.Resize(size) })
}

// ResizeBy grows or shrinks the board outside a round
func (e *Engine) ResizeBy(delta int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resizeLocked(func() (int, error) { return e.session.ResizeBy(delta) })
}

func (e *Engine) resizeLocked(resize func() (int, error)) (int, error) {
	e.advanceLocked()
	before := e.session.Grid().Size
	size, err := resize()
	if err != nil {
		return size, err
	}
	if size != before {
		log.Printf("📐 Grid resized to %dx%d", size, size)
		e.emit(EventTypeResize, ResizePayload{GridSize: size})
	}
	e.produceSnapshot()
	return size, nil
}

// SpawnPattern starts a specific pattern at origin in the running round
func (e *Engine) SpawnPattern(kind PatternKind, origin int) (PatternInstance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advanceLocked()
	inst, err := e.session.Spawn(kind, origin)
	if err != nil {
		return inst, err
	}
	e.produceSnapshot()
	return inst, nil
}

// RecordInput logs an accepted client command, rate limited per source
func (e *Engine) RecordInput(source, command, arg string) bool {
	e.mu.RLock()
	at, epoch := e.session.Now(), e.session.Epoch()
	e.mu.RUnlock()
	return e.eventLog.EmitSimple(EventTypeInput, at, epoch, source, InputPayload{Command: command, Arg: arg})
}

// =============================================================================
// QUERIES
// =============================================================================

// GetSnapshot returns the latest published snapshot without locking.
// The result is read-only; Clone it to modify.
func (e *Engine) GetSnapshot() *GameSnapshot {
	return e.snapshotPool.AcquireRead()
}

// ProduceSnapshot publishes the current state
func (e *Engine) ProduceSnapshot() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.produceSnapshot()
}

// produceSnapshot must be called with e.mu held
func (e *Engine) produceSnapshot() {
	snap := e.snapshotPool.AcquireWrite()
	snap.TickNumber = e.tickCount
	fillSnapshot(snap, e.session, e.limits)
	e.snapshotPool.PublishWrite(snap)
}

// CellTags returns the raw tags on a cell
func (e *Engine) CellTags(cell int) ([]Tag, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.session.Grid().Valid(cell) {
		return nil, ErrInvalidCell
	}
	return e.session.Tags(cell), nil
}

// State returns the session lifecycle state
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session.State()
}

// HighScore returns the best score
func (e *Engine) HighScore() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session.HighScore()
}

// Waves returns the configured wave table
func (e *Engine) Waves() []Wave {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session.Waves()
}

// GridSize returns the board size
func (e *Engine) GridSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session.Grid().Size
}

// TickCount returns the number of ticks run
func (e *Engine) TickCount() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tickCount
}

// GetLimits returns the snapshot limits
func (e *Engine) GetLimits() ResourceLimits {
	return e.limits
}

// StartEventLog initializes the event logging system
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog gracefully stops the event logging system
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// GetEventLogStats returns event log statistics for monitoring
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}
