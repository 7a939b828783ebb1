package tui

import (
	"sync"

	"grid-arena/internal/client"
	"grid-arena/internal/game"
	"grid-arena/internal/input"
)

// Backend is where the terminal client gets snapshots and sends input
type Backend interface {
	Latest() *game.GameSnapshot
	Send(msg input.Message) error
}

// LocalBackend plays against an in-process engine
type LocalBackend struct {
	engine  *game.Engine
	handler *input.Handler
}

// NewLocalBackend wraps a running engine
func NewLocalBackend(engine *game.Engine) *LocalBackend {
	return &LocalBackend{engine: engine, handler: input.NewHandler(engine, nil)}
}

// Latest returns a copy of the current snapshot
func (b *LocalBackend) Latest() *game.GameSnapshot {
	return b.engine.GetSnapshot().Clone()
}

// Send applies msg directly
func (b *LocalBackend) Send(msg input.Message) error {
	cmd, err := msg.ToCommand("tui")
	if err != nil {
		return err
	}
	_, err = b.handler.Process(cmd)
	return err
}

// RemoteBackend plays against a server through a client socket
type RemoteBackend struct {
	client *client.Client

	mu     sync.RWMutex
	latest *game.GameSnapshot
}

// NewRemoteBackend drains c.Snapshots until the channel closes
func NewRemoteBackend(c *client.Client) *RemoteBackend {
	b := &RemoteBackend{client: c}
	go func() {
		for snap := range c.Snapshots {
			b.mu.Lock()
			b.latest = snap
			b.mu.Unlock()
		}
	}()
	return b
}

// Latest returns the newest snapshot received, or nil
func (b *RemoteBackend) Latest() *game.GameSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latest
}

// Send forwards msg to the server
func (b *RemoteBackend) Send(msg input.Message) error {
	return b.client.Send(msg)
}
