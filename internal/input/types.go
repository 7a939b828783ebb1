package input

import (
	"time"

	"grid-arena/internal/game"
)

// CommandType for routing
type CommandType int

const (
	CmdMove   CommandType = iota // step (or dash with Dash set) in Direction
	CmdDash                      // dash in the last direction
	CmdStart                     // begin a round when idle
	CmdGrow                      // grid +2 when idle
	CmdShrink                    // grid -2 when idle
	CmdResize                    // grid to Size when idle
	CmdSpawn                     // debug: pattern Kind at Cell
	CmdUnknown
)

// String returns the canonical command name
func (t CommandType) String() string {
	switch t {
	case CmdMove:
		return "move"
	case CmdDash:
		return "dash"
	case CmdStart:
		return "start"
	case CmdGrow:
		return "grow"
	case CmdShrink:
		return "shrink"
	case CmdResize:
		return "resize"
	case CmdSpawn:
		return "spawn"
	default:
		return "unknown"
	}
}

// Command is a parsed player command
type Command struct {
	Type      CommandType
	Direction game.Direction // CmdMove
	Dash      bool           // CmdMove: dash instead of step
	Size      int            // CmdResize
	Kind      game.PatternKind
	Cell      int // CmdSpawn

	Source     string // connection or client id, used for rate limiting
	ReceivedAt time.Time
}

// Arg returns a short argument string for logging
func (c Command) Arg() string {
	switch c.Type {
	case CmdMove:
		if c.Dash {
			return c.Direction.String() + "+dash"
		}
		return c.Direction.String()
	case CmdSpawn:
		return c.Kind.String()
	}
	return ""
}

// SupportedCommands maps command words to types
var SupportedCommands = map[string]CommandType{
	// Move variants
	"move": CmdMove,
	"go":   CmdMove,

	// Dash variants
	"dash":  CmdDash,
	"shift": CmdDash,

	// Start variants
	"start":   CmdStart,
	"enter":   CmdStart,
	"restart": CmdStart,

	// Resize variants
	"grow":   CmdGrow,
	"+":      CmdGrow,
	"=":      CmdGrow,
	"shrink": CmdShrink,
	"-":      CmdShrink,
	"resize": CmdResize,
	"size":   CmdResize,

	// Debug
	"spawn": CmdSpawn,
}

// GetCommandType returns the command type for a lower-case word
func GetCommandType(word string) CommandType {
	if t, ok := SupportedCommands[word]; ok {
		return t
	}
	return CmdUnknown
}
