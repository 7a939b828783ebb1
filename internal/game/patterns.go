package game

import (
	"math"
	"time"
)

// Pattern timing, in milliseconds from spawn
const (
	crossStrikeAt     = 2000
	crossDiagonalAt   = 2300
	crossDiagStrikeAt = 2800
	crossClearAt      = 3100

	shockwaveStartAt  = 1000
	shockwaveRingStep = 250
	shockwaveLinger   = 500

	trailMoves    = 15
	trailInterval = 400
	trailLinger   = 3000

	sniperAimAt    = 2000
	sniperStrikeAt = 2750
	sniperClearAt  = 3250

	laserStrikeAt = 2000
	laserClearAt  = 2500

	hunterMoves    = 8
	hunterInterval = 200
	hunterLinger   = 2000

	spinnerStartAt  = 2000
	spinnerInterval = 50
	spinnerDegrees  = 3

	guardianStartAt  = 1500
	guardianRingStep = 200
	guardianLinger   = 1000
)

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// crossPattern telegraphs the row and column, strikes, then repeats on the diagonals
func crossPattern(ctx PatternContext) []Step {
	o := ctx.Origin
	line := ctx.Grid.Cross(o)
	diag := ctx.Grid.Diagonals(o)

	return []Step{
		{At: 0, Mutations: []Mutation{add(ZoneEnemy, o), add(ZoneTelegraph, line...)}},
		{At: ms(crossStrikeAt), Mutations: []Mutation{
			remove(ZoneEnemy, o),
			remove(ZoneTelegraph, line...),
			add(ZoneStrike, line...),
		}},
		{At: ms(crossDiagonalAt), Mutations: []Mutation{
			remove(ZoneStrike, line...),
			add(ZoneTelegraph, diag...),
		}},
		{At: ms(crossDiagStrikeAt), Mutations: []Mutation{
			remove(ZoneTelegraph, diag...),
			add(ZoneStrike, diag...),
		}},
		{At: ms(crossClearAt), Mutations: []Mutation{remove(ZoneStrike, diag...)}},
	}
}

// shockwavePattern emits expanding diamond rings that all clear together
func shockwavePattern(ctx PatternContext) []Step {
	o := ctx.Origin
	radius := ctx.Grid.Size / 3

	steps := []Step{
		{At: 0, Mutations: []Mutation{add(ZoneEnemy, o)}},
		{At: ms(shockwaveStartAt), Mutations: []Mutation{remove(ZoneEnemy, o)}},
	}
	var hit []int
	for d := 0; d <= radius; d++ {
		ring := ctx.Grid.Ring(o, d)
		hit = append(hit, ring...)
		steps = append(steps, Step{
			At:        ms(shockwaveStartAt + d*shockwaveRingStep),
			Mutations: []Mutation{add(ZoneShockwave, ring...)},
		})
	}
	steps = append(steps, Step{
		At:        ms(shockwaveStartAt + radius*shockwaveRingStep + shockwaveLinger),
		Mutations: []Mutation{remove(ZoneShockwave, hit...)},
	})
	return steps
}

// trailPattern random-walks the board leaving short-lived trail hazards
func trailPattern(ctx PatternContext) []Step {
	cur := ctx.Origin
	steps := []Step{{At: 0, Mutations: []Mutation{add(ZoneEnemy, cur)}}}

	for k := 1; k <= trailMoves; k++ {
		at := ms(k * trailInterval)
		steps = append(steps, Step{At: at, Resolve: func(env PatternEnv) ([]Mutation, []Step) {
			from := cur
			next := from
			if nb := env.Grid.Neighbors(from); len(nb) > 0 {
				next = nb[env.Rand.Intn(len(nb))]
			}
			cur = next
			return []Mutation{
					remove(ZoneEnemy, from),
					add(ZoneTrail, from),
					add(ZoneEnemy, next),
				}, []Step{
					{At: at + ms(trailLinger), Mutations: []Mutation{remove(ZoneTrail, from)}},
				}
		}})
	}
	steps = append(steps, Step{At: ms((trailMoves + 1) * trailInterval), Resolve: func(PatternEnv) ([]Mutation, []Step) {
		return []Mutation{remove(ZoneEnemy, cur)}, nil
	}})
	return steps
}

// sniperPattern aims at wherever the player stands when the shot is lined up
func sniperPattern(ctx PatternContext) []Step {
	o := ctx.Origin
	return []Step{
		{At: 0, Mutations: []Mutation{add(ZoneEnemy, o)}},
		{
			At:        ms(sniperAimAt),
			Mutations: []Mutation{remove(ZoneEnemy, o)},
			Resolve: func(env PatternEnv) ([]Mutation, []Step) {
				target := env.Player
				if !env.Grid.Valid(target) {
					return nil, nil
				}
				return []Mutation{add(ZoneTelegraph, target)}, []Step{
					{At: ms(sniperStrikeAt), Mutations: []Mutation{
						remove(ZoneTelegraph, target),
						add(ZoneStrike, target),
					}},
					{At: ms(sniperClearAt), Mutations: []Mutation{remove(ZoneStrike, target)}},
				}
			},
		},
	}
}

// laserPattern telegraphs and fires the full row and column
func laserPattern(ctx PatternContext) []Step {
	o := ctx.Origin
	line := ctx.Grid.Cross(o)
	return []Step{
		{At: 0, Mutations: []Mutation{add(ZoneEnemy, o), add(ZoneTelegraph, line...)}},
		{At: ms(laserStrikeAt), Mutations: []Mutation{
			remove(ZoneEnemy, o),
			remove(ZoneTelegraph, line...),
			add(ZoneStrike, line...),
		}},
		{At: ms(laserClearAt), Mutations: []Mutation{remove(ZoneStrike, line...)}},
	}
}

// hunterPattern chases the player one cell at a time
func hunterPattern(ctx PatternContext) []Step {
	cur := ctx.Origin
	steps := []Step{{At: 0, Mutations: []Mutation{add(ZoneEnemy, cur)}}}

	for k := 1; k <= hunterMoves; k++ {
		at := ms(k * hunterInterval)
		steps = append(steps, Step{At: at, Resolve: func(env PatternEnv) ([]Mutation, []Step) {
			from := cur
			next := hunterStep(env.Grid, from, env.Player)
			cur = next
			return []Mutation{
					remove(ZoneEnemy, from),
					add(ZoneTrail, from),
					add(ZoneEnemy, next),
				}, []Step{
					{At: at + ms(hunterLinger), Mutations: []Mutation{remove(ZoneTrail, from)}},
				}
		}})
	}
	steps = append(steps, Step{At: ms((hunterMoves + 1) * hunterInterval), Resolve: func(PatternEnv) ([]Mutation, []Step) {
		return []Mutation{remove(ZoneEnemy, cur)}, nil
	}})
	return steps
}

// hunterStep moves one cell toward target along the axis with the larger
// offset; ties move vertically. Without a valid target the hunter holds.
func hunterStep(g Grid, from, target int) int {
	if !g.Valid(target) {
		return from
	}
	hx, hy := g.IndexToCoord(from)
	px, py := g.IndexToCoord(target)
	dx, dy := px-hx, py-hy
	if abs(dx) > abs(dy) {
		hx += sign(dx)
	} else {
		hy += sign(dy)
	}
	if !g.InBounds(hx, hy) {
		return from
	}
	return g.CoordToIndex(hx, hy)
}

// spinnerPattern sweeps two opposite beams around the origin for a full turn
func spinnerPattern(ctx PatternContext) []Step {
	o := ctx.Origin
	g := ctx.Grid
	angle := ctx.Rand.Float64() * 360
	speed := float64(spinnerDegrees)
	if ctx.Rand.Intn(2) == 0 {
		speed = -speed
	}
	ticks := 360 / spinnerDegrees
	var prev []int

	steps := []Step{
		{At: 0, Mutations: []Mutation{add(ZoneEnemy, o)}},
		{At: ms(spinnerStartAt), Mutations: []Mutation{remove(ZoneEnemy, o)}},
	}
	for k := 1; k <= ticks; k++ {
		steps = append(steps, Step{
			At: ms(spinnerStartAt + k*spinnerInterval),
			Resolve: func(PatternEnv) ([]Mutation, []Step) {
				beams := SpinnerBeams(g, o, angle)
				angle += speed
				muts := []Mutation{remove(ZoneStrike, prev...), add(ZoneStrike, beams...)}
				prev = beams
				return muts, nil
			},
		})
	}
	steps = append(steps, Step{
		At: ms(spinnerStartAt + (ticks+1)*spinnerInterval),
		Resolve: func(PatternEnv) ([]Mutation, []Step) {
			return []Mutation{remove(ZoneStrike, prev...)}, nil
		},
	})
	return steps
}

// SpinnerBeams returns the distinct cells covered by two opposite beams of
// length Size-1 at angle degrees around origin.
func SpinnerBeams(g Grid, origin int, angle float64) []int {
	ox, oy := g.IndexToCoord(origin)
	seen := make(map[int]bool, 2*g.Size)
	cells := make([]int, 0, 2*g.Size)
	for _, a := range [2]float64{angle, angle + 180} {
		rad := a * math.Pi / 180
		cos, sin := math.Cos(rad), math.Sin(rad)
		for i := 1; i < g.Size; i++ {
			x := roundHalfUp(float64(ox) + float64(i)*cos)
			y := roundHalfUp(float64(oy) + float64(i)*sin)
			if !g.InBounds(x, y) {
				continue
			}
			c := g.CoordToIndex(x, y)
			if !seen[c] {
				seen[c] = true
				cells = append(cells, c)
			}
		}
	}
	return cells
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// guardianPattern opens rings of safe ground that wipe existing hazards
func guardianPattern(ctx PatternContext) []Step {
	o := ctx.Origin
	radius := ctx.Grid.Size / 4

	steps := []Step{
		{At: 0, Mutations: []Mutation{add(ZoneEnemy, o)}},
		{At: ms(guardianStartAt), Mutations: []Mutation{remove(ZoneEnemy, o)}},
	}
	var safe []int
	for d := 0; d <= radius; d++ {
		ring := ctx.Grid.Ring(o, d)
		safe = append(safe, ring...)
		steps = append(steps, Step{
			At:        ms(guardianStartAt + d*guardianRingStep),
			Mutations: []Mutation{strip(ring...), add(ZoneSafe, ring...)},
		})
	}
	steps = append(steps, Step{
		At:        ms(guardianStartAt + radius*guardianRingStep + guardianLinger),
		Mutations: []Mutation{remove(ZoneSafe, safe...)},
	})
	return steps
}
