package game

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDirection is returned for input that is not a cardinal direction
var ErrUnknownDirection = errors.New("unknown direction")

// Direction is one of the four cardinal moves
type Direction uint8

const (
	DirNone Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

// String returns the key name the browser client sends
func (d Direction) String() string {
	switch d {
	case DirUp:
		return "ArrowUp"
	case DirDown:
		return "ArrowDown"
	case DirLeft:
		return "ArrowLeft"
	case DirRight:
		return "ArrowRight"
	default:
		return "none"
	}
}

// ParseDirection accepts key names ("ArrowUp") and short names ("up") and WASD
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "arrowup", "up", "w":
		return DirUp, nil
	case "arrowdown", "down", "s":
		return DirDown, nil
	case "arrowleft", "left", "a":
		return DirLeft, nil
	case "arrowright", "right", "d":
		return DirRight, nil
	}
	return DirNone, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// Delta returns the unit step of the direction
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	case DirRight:
		return 1, 0
	}
	return 0, 0
}

// Player is the single token on the board
type Player struct {
	Position      int // -1 when absent
	Health        int
	MaxHealth     int
	Invincible    bool
	DashReady     bool
	LastDirection Direction
}

// NewPlayer creates an absent player at full health
func NewPlayer(maxHealth int) Player {
	return Player{
		Position:      -1,
		Health:        maxHealth,
		MaxHealth:     maxHealth,
		DashReady:     true,
		LastDirection: DirUp,
	}
}

// Present reports whether the player is on the board
func (p Player) Present() bool {
	return p.Position >= 0
}

// StepPosition returns the cell one step from pos in dir, or pos itself when
// the step would leave the grid.
func StepPosition(g Grid, pos int, dir Direction) int {
	if !g.Valid(pos) {
		return pos
	}
	dx, dy := dir.Delta()
	x, y := g.IndexToCoord(pos)
	if !g.InBounds(x+dx, y+dy) {
		return pos
	}
	return g.CoordToIndex(x+dx, y+dy)
}

// DashPosition moves up to distance cells from pos in dir, stopping at the edge
func DashPosition(g Grid, pos int, dir Direction, distance int) int {
	if !g.Valid(pos) {
		return pos
	}
	dx, dy := dir.Delta()
	x, y := g.IndexToCoord(pos)

	var room int
	switch dir {
	case DirUp:
		room = y
	case DirDown:
		room = g.Size - 1 - y
	case DirLeft:
		room = x
	case DirRight:
		room = g.Size - 1 - x
	}
	if distance < room {
		room = distance
	}
	if room <= 0 {
		return pos
	}
	return g.CoordToIndex(x+dx*room, y+dy*room)
}
