package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeSessionStart
	EventTypeGameOver
	EventTypeResize
	EventTypeSpawn
	EventTypePatternEnd
	EventTypeDamage
	EventTypeDash
	EventTypeWave
	EventTypeInput
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is one entry of the session event log
type Event struct {
	Version   uint8     `json:"version"`
	Type      EventType `json:"type"`
	Name      string    `json:"name"`
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`
	At        int64     `json:"atMs"`   // session clock
	Epoch     uint64    `json:"epoch"`  // session generation
	Source    string    `json:"source"` // input origin, used for rate limiting
	Payload   []byte    `json:"payload"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeSessionStart:
		return "session_start"
	case EventTypeGameOver:
		return "game_over"
	case EventTypeResize:
		return "resize"
	case EventTypeSpawn:
		return "spawn"
	case EventTypePatternEnd:
		return "pattern_end"
	case EventTypeDamage:
		return "damage"
	case EventTypeDash:
		return "dash"
	case EventTypeWave:
		return "wave"
	case EventTypeInput:
		return "input"
	default:
		return "unknown"
	}
}

// Typed payloads for different event types

// SessionStartPayload records the board a round started on
type SessionStartPayload struct {
	GridSize int   `json:"gridSize"`
	Seed     int64 `json:"seed"`
}

// GameOverPayload records how a round ended
type GameOverPayload struct {
	Score        int  `json:"score"`
	NewHighScore bool `json:"newHighScore"`
}

// ResizePayload records a board size change
type ResizePayload struct {
	GridSize int `json:"gridSize"`
}

// SpawnPayload describes a spawned pattern
type SpawnPayload struct {
	PatternID uint64 `json:"patternId"`
	Kind      string `json:"kind"`
	Origin    int    `json:"origin"`
}

// DamagePayload describes a hit on the player
type DamagePayload struct {
	Cell   int `json:"cell"`
	Health int `json:"health"`
}

// DashPayload describes a dash
type DashPayload struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// WavePayload describes a wave activation
type WavePayload struct {
	Threshold int      `json:"threshold"`
	EndScore  int      `json:"endScore"`
	Kinds     []string `json:"kinds"`
}

// InputPayload records an accepted client command
type InputPayload struct {
	Command string `json:"command"`
	Arg     string `json:"arg,omitempty"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, at time.Duration, epoch uint64, source string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Name:      eventType.String(),
		Timestamp: time.Now().UnixNano(),
		At:        at.Milliseconds(),
		Epoch:     epoch,
		Source:    source,
		Payload:   EncodePayload(payload),
	}
}
