package tui

import (
	"unicode"

	"github.com/gdamore/tcell/v2"

	"grid-arena/internal/input"
)

// Action is what a key press asks the terminal client to do
type Action int

const (
	ActionNone Action = iota
	ActionSend        // forward Message to the arena
	ActionQuit
	ActionMute
)

var wasd = map[rune]string{
	'w': "ArrowUp",
	'a': "ArrowLeft",
	's': "ArrowDown",
	'd': "ArrowRight",
}

// MapKey turns a terminal key into an arena message. Shift+arrow and
// upper-case WASD dash; space dashes in the last direction.
func MapKey(key tcell.Key, ch rune, mod tcell.ModMask) (Action, input.Message) {
	shift := mod&tcell.ModShift != 0

	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ActionQuit, input.Message{}
	case tcell.KeyUp:
		return ActionSend, input.Message{Key: "ArrowUp", Shift: shift}
	case tcell.KeyDown:
		return ActionSend, input.Message{Key: "ArrowDown", Shift: shift}
	case tcell.KeyLeft:
		return ActionSend, input.Message{Key: "ArrowLeft", Shift: shift}
	case tcell.KeyRight:
		return ActionSend, input.Message{Key: "ArrowRight", Shift: shift}
	case tcell.KeyEnter:
		return ActionSend, input.Message{Key: "Enter"}
	case tcell.KeyRune:
	default:
		return ActionNone, input.Message{}
	}

	switch ch {
	case 'q':
		return ActionQuit, input.Message{}
	case 'm':
		return ActionMute, input.Message{}
	case ' ':
		return ActionSend, input.Message{Key: " "}
	case '+', '=', '-':
		return ActionSend, input.Message{Key: string(ch)}
	}

	if arrow, ok := wasd[unicode.ToLower(ch)]; ok {
		return ActionSend, input.Message{Key: arrow, Shift: shift || unicode.IsUpper(ch)}
	}
	return ActionNone, input.Message{}
}
