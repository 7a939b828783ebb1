// Package tui is a terminal client for the arena, local or remote.
package tui

import (
	"context"
	"log"
	"time"

	"github.com/gdamore/tcell/v2"

	"grid-arena/internal/sfx"
)

// DefaultFrameInterval redraws at about 30 FPS
const DefaultFrameInterval = 33 * time.Millisecond

// Sounds plays cues. *sfx.Player satisfies it.
type Sounds interface {
	Play(c sfx.Cue)
}

// App draws snapshots from a Backend and forwards key presses
type App struct {
	screen   tcell.Screen
	backend  Backend
	sounds   Sounds
	detector sfx.Detector
	interval time.Duration
	muted    bool
}

// NewApp creates an app on an initialised screen. sounds may be nil.
func NewApp(screen tcell.Screen, backend Backend, sounds Sounds) *App {
	return &App{
		screen:   screen,
		backend:  backend,
		sounds:   sounds,
		interval: DefaultFrameInterval,
	}
}

// Run loops until ctx ends or the player quits
func (a *App) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)

	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if !a.HandleEvent(ev) {
				return nil
			}
		case <-ticker.C:
			a.Frame()
		}
	}
}

// HandleEvent reacts to one terminal event and reports whether to keep running
func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		action, msg := MapKey(ev.Key(), ev.Rune(), ev.Modifiers())
		switch action {
		case ActionQuit:
			return false
		case ActionMute:
			a.muted = !a.muted
		case ActionSend:
			if err := a.backend.Send(msg); err != nil {
				log.Printf("⚠️ input %q: %v", msg.Key, err)
			}
		}
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

// Frame draws the latest snapshot and plays any cues it implies
func (a *App) Frame() {
	snap := a.backend.Latest()
	for _, cue := range a.detector.Observe(snap) {
		if a.sounds != nil && !a.muted {
			a.sounds.Play(cue)
		}
	}
	Draw(a.screen, snap, a.muted)
	a.screen.Show()
}
