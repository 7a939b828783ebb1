package game

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// ErrUnknownPattern is returned for pattern names outside the library
var ErrUnknownPattern = errors.New("unknown pattern kind")

// PatternKind enumerates the enemy attack patterns
type PatternKind uint8

const (
	PatternCross PatternKind = iota
	PatternShockwave
	PatternTrail
	PatternSniper
	PatternLaser
	PatternHunter
	PatternSpinner
	PatternGuardian
)

// AllPatternKinds lists every kind in spawn-table order
var AllPatternKinds = []PatternKind{
	PatternCross,
	PatternShockwave,
	PatternTrail,
	PatternSniper,
	PatternLaser,
	PatternHunter,
	PatternSpinner,
	PatternGuardian,
}

var patternNames = [...]string{
	PatternCross:     "cross",
	PatternShockwave: "shockwave",
	PatternTrail:     "trail",
	PatternSniper:    "sniper",
	PatternLaser:     "laser",
	PatternHunter:    "hunter",
	PatternSpinner:   "spinner",
	PatternGuardian:  "guardian",
}

// String returns the lower-case pattern name
func (k PatternKind) String() string {
	if int(k) < len(patternNames) {
		return patternNames[k]
	}
	return "unknown"
}

// ParsePatternKind maps a name such as "laser" to its kind (case-insensitive)
func ParsePatternKind(name string) (PatternKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range patternNames {
		if n == name {
			return PatternKind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPattern, name)
}

// MutationOp is what a step does to its cells
type MutationOp uint8

const (
	OpAdd    MutationOp = iota // add the pattern's tag
	OpRemove                   // remove one instance of the pattern's tag
	OpStrip                    // remove every lethal tag, any owner
)

// Mutation applies one op for one zone to a set of cells
type Mutation struct {
	Op    MutationOp
	Zone  Zone
	Cells []int
}

func add(zone Zone, cells ...int) Mutation    { return Mutation{Op: OpAdd, Zone: zone, Cells: cells} }
func remove(zone Zone, cells ...int) Mutation { return Mutation{Op: OpRemove, Zone: zone, Cells: cells} }
func strip(cells ...int) Mutation             { return Mutation{Op: OpStrip, Cells: cells} }

// PatternEnv is what a dynamic step can observe when it fires
type PatternEnv struct {
	Grid   Grid
	Player int // -1 when no player is on the board
	Rand   *rand.Rand
}

// Step is one timed entry of a pattern timeline. At is relative to spawn.
// Resolve, when set, runs at fire time after Mutations are applied and may
// return further mutations plus follow-up steps (also relative to spawn).
type Step struct {
	At        time.Duration
	Mutations []Mutation
	Resolve   func(env PatternEnv) ([]Mutation, []Step)
}

// PatternContext is the input of a pattern generator
type PatternContext struct {
	Origin int
	Grid   Grid
	Rand   *rand.Rand
}

// Generator builds the timeline of one pattern kind
type Generator func(ctx PatternContext) []Step

var generators = map[PatternKind]Generator{
	PatternCross:     crossPattern,
	PatternShockwave: shockwavePattern,
	PatternTrail:     trailPattern,
	PatternSniper:    sniperPattern,
	PatternLaser:     laserPattern,
	PatternHunter:    hunterPattern,
	PatternSpinner:   spinnerPattern,
	PatternGuardian:  guardianPattern,
}

// BuildPattern returns the ordered timeline for kind spawned at ctx.Origin
func BuildPattern(kind PatternKind, ctx PatternContext) ([]Step, error) {
	gen, ok := generators[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPattern, kind)
	}
	if !ctx.Grid.Valid(ctx.Origin) {
		return nil, fmt.Errorf("%w: origin %d", ErrInvalidCell, ctx.Origin)
	}
	if ctx.Rand == nil {
		ctx.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return gen(ctx), nil
}

// PatternInstance is a spawned pattern tracked by the session
type PatternInstance struct {
	ID        uint64
	Kind      PatternKind
	Origin    int
	SpawnedAt time.Duration
	GridSize  int

	epoch   uint64
	pending int
}
