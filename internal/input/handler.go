package input

import (
	"errors"
	"log"

	"grid-arena/internal/game"
)

// growStep is how far one grow/shrink key changes the board
const growStep = 2

// Engine is the subset of the game engine the handler drives
type Engine interface {
	StartSession()
	Move(dir game.Direction, dash bool) error
	Dash() error
	Resize(size int) (int, error)
	ResizeBy(delta int) (int, error)
	SpawnPattern(kind game.PatternKind, origin int) (game.PatternInstance, error)
	State() game.State
	RecordInput(source, command, arg string) bool
}

// Result reports what happened to a command
type Result int

const (
	Applied     Result = iota
	Ignored            // valid but has no effect in the current state
	RateLimited        // source exceeded its budget
	Rejected           // the engine returned an error
)

// String returns the result name
func (r Result) String() string {
	switch r {
	case Applied:
		return "applied"
	case Ignored:
		return "ignored"
	case RateLimited:
		return "rate_limited"
	default:
		return "rejected"
	}
}

// Handler applies commands to the engine
type Handler struct {
	engine      Engine
	rateLimiter *RateLimiter
	allowSpawn  bool
	OnProcessed func(cmd Command, res Result)
}

// NewHandler creates a new command handler. A nil limiter disables rate limiting.
func NewHandler(engine Engine, limiter *RateLimiter) *Handler {
	return &Handler{
		engine:      engine,
		rateLimiter: limiter,
	}
}

// AllowSpawn enables the debug spawn command
func (h *Handler) AllowSpawn(allow bool) {
	h.allowSpawn = allow
}

// Process handles a single command
func (h *Handler) Process(cmd Command) (Result, error) {
	res, err := h.process(cmd)
	if h.OnProcessed != nil {
		h.OnProcessed(cmd, res)
	}
	return res, err
}

func (h *Handler) process(cmd Command) (Result, error) {
	if h.rateLimiter != nil && !h.rateLimiter.Allow(cmd.Source) {
		return RateLimited, nil
	}

	running := h.engine.State() == game.StateRunning

	switch cmd.Type {
	case CmdMove:
		if err := h.engine.Move(cmd.Direction, cmd.Dash); err != nil {
			return Rejected, err
		}

	case CmdDash:
		// like any move key, a dash outside a round starts one
		if !running {
			h.engine.StartSession()
			break
		}
		if err := h.engine.Dash(); err != nil {
			return Rejected, err
		}

	case CmdStart:
		// Enter only starts a round from the title or game over screen
		if running {
			return Ignored, nil
		}
		h.engine.StartSession()

	case CmdGrow, CmdShrink, CmdResize:
		if running {
			return Ignored, nil
		}
		var (
			size int
			err  error
		)
		switch cmd.Type {
		case CmdGrow:
			size, err = h.engine.ResizeBy(growStep)
		case CmdShrink:
			size, err = h.engine.ResizeBy(-growStep)
		default:
			size, err = h.engine.Resize(cmd.Size)
		}
		if errors.Is(err, game.ErrResizeWhileRunning) {
			return Ignored, nil
		}
		if err != nil {
			return Rejected, err
		}
		log.Printf("📐 %s set grid to %d", cmd.Source, size)

	case CmdSpawn:
		if !h.allowSpawn {
			return Ignored, nil
		}
		if _, err := h.engine.SpawnPattern(cmd.Kind, cmd.Cell); err != nil {
			if errors.Is(err, game.ErrNotRunning) {
				return Ignored, nil
			}
			return Rejected, err
		}

	default:
		return Ignored, nil
	}

	h.engine.RecordInput(cmd.Source, cmd.Type.String(), cmd.Arg())
	return Applied, nil
}
