package game

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"
)

var (
	// ErrResizeWhileRunning is returned when the grid is resized mid-round
	ErrResizeWhileRunning = errors.New("grid cannot be resized while running")
	// ErrNotRunning is returned by operations that need a live round
	ErrNotRunning = errors.New("session is not running")
	// ErrInvalidCell is returned for cell indices outside the grid
	ErrInvalidCell = errors.New("invalid cell index")
)

// State is the session lifecycle state
type State uint8

const (
	StatePreGame State = iota
	StateRunning
	StateGameOver
)

// String returns the state name used by clients
func (s State) String() string {
	switch s {
	case StatePreGame:
		return "PRE_GAME"
	case StateRunning:
		return "RUNNING"
	case StateGameOver:
		return "GAME_OVER"
	default:
		return "UNKNOWN"
	}
}

// Rules are the tunables of a round
type Rules struct {
	MaxHealth             int
	DashDistance          int
	DashCooldown          time.Duration
	InvincibilityDuration time.Duration
	ScoreInterval         time.Duration
	CollisionInterval     time.Duration
	Spawn                 SpawnConfig
	Waves                 []Wave
}

// DefaultRules returns the stock rules
func DefaultRules() Rules {
	return Rules{
		MaxHealth:             3,
		DashDistance:          3,
		DashCooldown:          1000 * time.Millisecond,
		InvincibilityDuration: 1000 * time.Millisecond,
		ScoreInterval:         time.Second,
		CollisionInterval:     50 * time.Millisecond,
		Spawn:                 DefaultSpawnConfig(),
		Waves:                 DefaultWaves(),
	}
}

// HighScoreStore persists the best score across runs
type HighScoreStore interface {
	HighScore() int
	SetHighScore(score int) error
}

// Hooks are optional observers of session transitions. They run inside
// Advance or the triggering call, so they must not call back into the session.
type Hooks struct {
	OnStart      func(size int)
	OnGameOver   func(score int, newHigh bool)
	OnDamage     func(cell, health int)
	OnSpawn      func(p PatternInstance)
	OnPatternEnd func(p PatternInstance)
	OnWave       func(w ActiveWave)
	OnDash       func(from, to int)
}

// Session is one player's arena: grid, hazards, timers and lifecycle.
// It is deterministic for a given seed and sequence of Advance/input calls.
// Not safe for concurrent use; Engine wraps it with a lock.
type Session struct {
	rules Rules
	grid  Grid
	state State
	score int

	player  Player
	hazards *HazardTable

	sched *Scheduler
	waves *WaveScheduler
	spawn *SpawnScheduler
	rng   *rand.Rand

	// epoch changes on every start, game over and resize; pattern steps
	// from an older epoch are dropped
	epoch       uint64
	nextPattern uint64
	patterns    map[uint64]*PatternInstance
	spawnTimer  TimerID

	store     HighScoreStore
	highScore int
	hooks     Hooks
}

// NewSession creates a PRE_GAME session on a grid of the given size
func NewSession(rules Rules, gridSize int, seed int64) *Session {
	if rules.MaxHealth <= 0 {
		rules.MaxHealth = DefaultRules().MaxHealth
	}
	if rules.ScoreInterval <= 0 {
		rules.ScoreInterval = time.Second
	}
	if rules.CollisionInterval <= 0 {
		rules.CollisionInterval = DefaultRules().CollisionInterval
	}
	grid := NewGrid(gridSize)
	return &Session{
		rules:    rules,
		grid:     grid,
		state:    StatePreGame,
		player:   NewPlayer(rules.MaxHealth),
		hazards:  NewHazardTable(grid.CellCount()),
		sched:    NewScheduler(),
		waves:    NewWaveScheduler(rules.Waves),
		spawn:    NewSpawnScheduler(rules.Spawn),
		rng:      rand.New(rand.NewSource(seed)),
		patterns: make(map[uint64]*PatternInstance),
	}
}

// SetHooks installs transition observers
func (s *Session) SetHooks(h Hooks) {
	s.hooks = h
}

// SetHighScoreStore attaches persistence and loads the stored best score
func (s *Session) SetHighScoreStore(store HighScoreStore) {
	s.store = store
	if store != nil {
		s.highScore = store.HighScore()
	}
}

// Start begins a fresh round, discarding everything from the previous one
func (s *Session) Start() {
	s.invalidate()
	s.hazards.Clear()
	s.waves.Reset()
	s.spawn.Reset()

	last := s.player.LastDirection
	s.player = NewPlayer(s.rules.MaxHealth)
	s.player.LastDirection = last
	s.player.Position = s.grid.Center()

	s.state = StateRunning
	s.score = 0

	s.sched.Every(s.rules.ScoreInterval, SessionOwner, s.onScoreTick)
	s.armSpawner()
	s.spawnEnemy()
	s.sched.Every(s.rules.CollisionInterval, SessionOwner, s.checkCollision)

	if s.hooks.OnStart != nil {
		s.hooks.OnStart(s.grid.Size)
	}
}

// invalidate cancels every timer and makes in-flight pattern steps stale
func (s *Session) invalidate() {
	s.sched.Reset()
	s.epoch++
	s.patterns = make(map[uint64]*PatternInstance)
	s.spawnTimer = 0
}

// HandleMove applies a directional input. Outside a round it starts one.
// With dash set it dashes if the cooldown allows and does nothing otherwise.
func (s *Session) HandleMove(dir Direction, dash bool) error {
	if dir == DirNone || dir > DirRight {
		return fmt.Errorf("%w: %d", ErrUnknownDirection, dir)
	}
	if s.state != StateRunning {
		s.Start()
		return nil
	}
	if !s.player.Present() {
		return nil
	}

	s.player.LastDirection = dir
	switch {
	case dash && s.player.DashReady:
		s.dash(dir)
	case !dash:
		s.player.Position = StepPosition(s.grid, s.player.Position, dir)
	}
	return nil
}

// HandleDash dashes in the last movement direction
func (s *Session) HandleDash() error {
	return s.HandleMove(s.player.LastDirection, true)
}

func (s *Session) dash(dir Direction) {
	from := s.player.Position
	s.player.DashReady = false
	s.player.Position = DashPosition(s.grid, from, dir, s.rules.DashDistance)
	s.sched.After(s.rules.DashCooldown, SessionOwner, func() {
		s.player.DashReady = true
	})
	if s.hooks.OnDash != nil {
		s.hooks.OnDash(from, s.player.Position)
	}
}

// Resize rebuilds the board at a new size. Only allowed outside a round.
// Returns the size actually applied after clamping.
func (s *Session) Resize(size int) (int, error) {
	if s.state == StateRunning {
		return s.grid.Size, ErrResizeWhileRunning
	}
	next := NewGrid(size)
	if next.Size == s.grid.Size {
		return next.Size, nil
	}
	s.invalidate()
	s.grid = next
	s.hazards = NewHazardTable(next.CellCount())
	s.player.Position = -1
	return next.Size, nil
}

// ResizeBy grows or shrinks the board by delta cells per side
func (s *Session) ResizeBy(delta int) (int, error) {
	return s.Resize(s.grid.Size + delta)
}

// Advance moves the session clock to now and runs every due timer
func (s *Session) Advance(now time.Duration) int {
	return s.sched.Advance(now)
}

// Spawn starts a pattern of kind at origin in the running round
func (s *Session) Spawn(kind PatternKind, origin int) (PatternInstance, error) {
	if s.state != StateRunning {
		return PatternInstance{}, ErrNotRunning
	}
	if !s.grid.Valid(origin) {
		return PatternInstance{}, fmt.Errorf("%w: %d", ErrInvalidCell, origin)
	}
	inst, err := s.spawnPattern(kind, origin)
	if err != nil {
		return PatternInstance{}, err
	}
	return *inst, nil
}

func (s *Session) spawnPattern(kind PatternKind, origin int) (*PatternInstance, error) {
	steps, err := BuildPattern(kind, PatternContext{Origin: origin, Grid: s.grid, Rand: s.rng})
	if err != nil {
		return nil, err
	}

	s.nextPattern++
	inst := &PatternInstance{
		ID:        s.nextPattern,
		Kind:      kind,
		Origin:    origin,
		SpawnedAt: s.sched.Now(),
		GridSize:  s.grid.Size,
		epoch:     s.epoch,
	}
	s.patterns[inst.ID] = inst
	if s.hooks.OnSpawn != nil {
		s.hooks.OnSpawn(*inst)
	}

	// Steps at spawn time apply immediately so the telegraph is visible
	// in the same frame the enemy appears.
	var immediate []Step
	for _, st := range steps {
		if st.At <= 0 {
			inst.pending++
			immediate = append(immediate, st)
			continue
		}
		s.scheduleStep(inst, st)
	}
	for _, st := range immediate {
		s.runStep(inst, st)
	}
	if inst.pending == 0 {
		s.finishPattern(inst)
	}
	return inst, nil
}

func (s *Session) scheduleStep(inst *PatternInstance, st Step) {
	inst.pending++
	s.sched.At(inst.SpawnedAt+st.At, inst.ID, func() {
		s.runStep(inst, st)
	})
}

func (s *Session) runStep(inst *PatternInstance, st Step) {
	inst.pending--
	if !s.live(inst) {
		return
	}

	s.applyMutations(inst.ID, st.Mutations)
	if st.Resolve != nil {
		muts, follow := st.Resolve(PatternEnv{
			Grid:   s.grid,
			Player: s.player.Position,
			Rand:   s.rng,
		})
		s.applyMutations(inst.ID, muts)
		for _, f := range follow {
			s.scheduleStep(inst, f)
		}
	}

	if inst.pending == 0 {
		s.finishPattern(inst)
	}
}

// live reports whether a pattern's steps may still touch the board
func (s *Session) live(inst *PatternInstance) bool {
	return inst.epoch == s.epoch &&
		s.state == StateRunning &&
		inst.GridSize == s.grid.Size
}

func (s *Session) applyMutations(owner uint64, muts []Mutation) {
	for _, m := range muts {
		tag := Tag{Pattern: owner, Zone: m.Zone}
		for _, c := range m.Cells {
			if !s.grid.Valid(c) {
				continue
			}
			switch m.Op {
			case OpAdd:
				s.hazards.Add(c, tag)
			case OpRemove:
				s.hazards.Remove(c, tag)
			case OpStrip:
				s.hazards.Strip(c)
			}
		}
	}
}

func (s *Session) finishPattern(inst *PatternInstance) {
	if _, ok := s.patterns[inst.ID]; !ok {
		return
	}
	delete(s.patterns, inst.ID)
	if s.hooks.OnPatternEnd != nil {
		s.hooks.OnPatternEnd(*inst)
	}
}

func (s *Session) onScoreTick() {
	s.score++
	if s.spawn.OnScore(s.score) {
		s.armSpawner()
	}
	if w := s.waves.Check(s.score); w != nil && s.hooks.OnWave != nil {
		s.hooks.OnWave(*w)
	}
}

// armSpawner (re)starts the spawn interval at the current rate
func (s *Session) armSpawner() {
	if s.spawnTimer != 0 {
		s.sched.Cancel(s.spawnTimer)
	}
	s.spawnTimer = s.sched.Every(s.spawn.Rate(), SessionOwner, s.spawnTick)
}

func (s *Session) spawnTick() {
	n := EnemyCount(s.rng, s.grid.Size)
	for i := 0; i < n; i++ {
		s.spawnEnemy()
	}
}

func (s *Session) spawnEnemy() {
	kind := s.waves.Pick(s.rng)
	cell, ok := PickSpawnCell(s.rng, s.grid, s.player.Position)
	if !ok {
		return
	}
	if _, err := s.spawnPattern(kind, cell); err != nil {
		log.Printf("⚠️ Spawn %s at %d failed: %v", kind, cell, err)
	}
}

func (s *Session) checkCollision() {
	if s.state != StateRunning || s.player.Invincible || !s.player.Present() {
		return
	}
	if s.hazards.Lethal(s.player.Position) {
		s.takeDamage()
	}
}

func (s *Session) takeDamage() {
	s.player.Health--
	s.player.Invincible = true
	if s.hooks.OnDamage != nil {
		s.hooks.OnDamage(s.player.Position, s.player.Health)
	}

	if s.player.Health <= 0 {
		s.gameOver()
		return
	}
	s.sched.After(s.rules.InvincibilityDuration, SessionOwner, func() {
		s.player.Invincible = false
	})
}

// gameOver stops every timer. Hazard tags stay frozen until the next Start.
func (s *Session) gameOver() {
	s.invalidate()
	s.state = StateGameOver

	newHigh := false
	if s.score > s.highScore {
		s.highScore = s.score
		newHigh = true
		if s.store != nil {
			if err := s.store.SetHighScore(s.score); err != nil {
				log.Printf("⚠️ Failed to save high score %d: %v", s.score, err)
			}
		}
	}
	if s.hooks.OnGameOver != nil {
		s.hooks.OnGameOver(s.score, newHigh)
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the lifecycle state
func (s *Session) State() State { return s.state }

// Score returns the seconds survived this round
func (s *Session) Score() int { return s.score }

// HighScore returns the best score seen, including the store's value
func (s *Session) HighScore() int { return s.highScore }

// Grid returns the current board
func (s *Session) Grid() Grid { return s.grid }

// Player returns a copy of the player
func (s *Session) Player() Player { return s.player }

// Health returns the player's health
func (s *Session) Health() int { return s.player.Health }

// DashReady reports whether a dash is available
func (s *Session) DashReady() bool { return s.player.DashReady }

// Now returns the session clock
func (s *Session) Now() time.Duration { return s.sched.Now() }

// Epoch returns the current session generation
func (s *Session) Epoch() uint64 { return s.epoch }

// Rules returns the round tunables
func (s *Session) Rules() Rules { return s.rules }

// SpawnRate returns the current spawn interval
func (s *Session) SpawnRate() time.Duration { return s.spawn.Rate() }

// ActiveWave returns a copy of the active wave, if any
func (s *Session) ActiveWave() (ActiveWave, bool) {
	if w := s.waves.Active(); w != nil {
		return *w, true
	}
	return ActiveWave{}, false
}

// Waves returns the wave table
func (s *Session) Waves() []Wave { return s.waves.Waves() }

// WaveTriggered reports whether the wave at threshold fired this round
func (s *Session) WaveTriggered(threshold int) bool { return s.waves.Triggered(threshold) }

// Tags returns the tags on cell
func (s *Session) Tags(cell int) []Tag { return s.hazards.Tags(cell) }

// Zones returns the distinct zones on cell
func (s *Session) Zones(cell int) []Zone { return s.hazards.Zones(cell) }

// Lethal reports whether cell currently damages the player
func (s *Session) Lethal(cell int) bool { return s.hazards.Lethal(cell) }

// Patterns returns the live pattern instances ordered by id
func (s *Session) Patterns() []PatternInstance {
	out := make([]PatternInstance, 0, len(s.patterns))
	for _, p := range s.patterns {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PatternKindOf returns the kind of a live pattern
func (s *Session) PatternKindOf(id uint64) (PatternKind, bool) {
	p, ok := s.patterns[id]
	if !ok {
		return 0, false
	}
	return p.Kind, true
}

// PendingTimers returns the number of scheduled callbacks
func (s *Session) PendingTimers() int { return s.sched.Len() }
