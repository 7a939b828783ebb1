package input

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"grid-arena/internal/game"
)

var (
	// ErrEmptyCommand is returned for blank input
	ErrEmptyCommand = errors.New("empty command")
	// ErrUnknownCommand is returned for words that are not commands
	ErrUnknownCommand = errors.New("unknown command")
	// ErrMissingArgument is returned when a command needs an argument
	ErrMissingArgument = errors.New("missing argument")
)

// Parse reads a text command such as "up", "move left", "dash right",
// "dash", "start", "+", "resize 9" or "spawn laser 12". A leading "!" is
// allowed so chat-style input works too.
func Parse(source, text string) (Command, error) {
	text = strings.TrimPrefix(strings.TrimSpace(text), "!")
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return Command{}, ErrEmptyCommand
	}

	cmd := Command{Source: source, ReceivedAt: time.Now()}
	word := strings.ToLower(parts[0])
	args := parts[1:]

	// a bare direction is a move
	if dir, err := game.ParseDirection(word); err == nil {
		cmd.Type = CmdMove
		cmd.Direction = dir
		return cmd, nil
	}

	cmd.Type = GetCommandType(word)
	switch cmd.Type {
	case CmdMove:
		if len(args) == 0 {
			return Command{}, fmt.Errorf("%w: move needs a direction", ErrMissingArgument)
		}
		dir, err := game.ParseDirection(args[0])
		if err != nil {
			return Command{}, err
		}
		cmd.Direction = dir

	case CmdDash:
		// "dash left" dashes in that direction, bare "dash" reuses the last one
		if len(args) > 0 {
			dir, err := game.ParseDirection(args[0])
			if err != nil {
				return Command{}, err
			}
			cmd.Type = CmdMove
			cmd.Direction = dir
			cmd.Dash = true
		}

	case CmdResize:
		if len(args) == 0 {
			return Command{}, fmt.Errorf("%w: resize needs a size", ErrMissingArgument)
		}
		size, err := strconv.Atoi(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("%w: bad size %q", ErrMissingArgument, args[0])
		}
		cmd.Size = size

	case CmdSpawn:
		if len(args) < 2 {
			return Command{}, fmt.Errorf("%w: spawn needs a kind and a cell", ErrMissingArgument)
		}
		kind, err := game.ParsePatternKind(args[0])
		if err != nil {
			return Command{}, err
		}
		cell, err := strconv.Atoi(args[1])
		if err != nil {
			return Command{}, fmt.Errorf("%w: bad cell %q", ErrMissingArgument, args[1])
		}
		cmd.Kind = kind
		cmd.Cell = cell

	case CmdUnknown:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, word)
	}

	return cmd, nil
}

// ParseKey maps a browser KeyboardEvent.key (plus the shift modifier) to a
// command, the way the arena page binds its keys.
func ParseKey(source, key string, shift bool) (Command, error) {
	cmd := Command{Source: source, ReceivedAt: time.Now()}

	switch key {
	case "ArrowUp", "ArrowDown", "ArrowLeft", "ArrowRight":
		dir, _ := game.ParseDirection(key)
		cmd.Type = CmdMove
		cmd.Direction = dir
		cmd.Dash = shift
	case " ", "Shift":
		cmd.Type = CmdDash
	case "Enter":
		cmd.Type = CmdStart
	case "+", "=":
		cmd.Type = CmdGrow
	case "-":
		cmd.Type = CmdShrink
	case "":
		return Command{}, ErrEmptyCommand
	default:
		return Command{}, fmt.Errorf("%w: key %q", ErrUnknownCommand, key)
	}
	return cmd, nil
}

// Message is the JSON shape clients send over the socket or POST to /api/input.
// Either Key (browser key name) or Command (text command) is set.
type Message struct {
	Type    string `json:"type,omitempty"`
	Key     string `json:"key,omitempty"`
	Shift   bool   `json:"shift,omitempty"`
	Command string `json:"command,omitempty"`
}

// ParseMessage decodes a JSON client message
func ParseMessage(source string, data []byte) (Command, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Command{}, fmt.Errorf("decode input: %w", err)
	}
	return msg.ToCommand(source)
}

// ToCommand converts a decoded message
func (m Message) ToCommand(source string) (Command, error) {
	if m.Key != "" {
		return ParseKey(source, m.Key, m.Shift)
	}
	return Parse(source, m.Command)
}
