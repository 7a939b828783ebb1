// =============================================================================
// GRID ARENA - TERMINAL CLIENT
// =============================================================================
// Plays the arena in a terminal, either against an in-process engine or
// against a running server over its WebSocket.
//
// USAGE:
//   go run ./cmd/arena-tui                              # local game
//   go run ./cmd/arena-tui -server ws://localhost:3000/ws
// =============================================================================
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"

	"grid-arena/internal/client"
	"grid-arena/internal/config"
	"grid-arena/internal/game"
	"grid-arena/internal/sfx"
	"grid-arena/internal/store"
	"grid-arena/internal/tui"
)

func main() {
	serverURL := flag.String("server", os.Getenv("ARENA_SERVER"), "ws:// URL of an arena server; empty plays locally")
	logPath := flag.String("log", os.Getenv("TUI_LOG"), "log file; empty discards logs")
	flag.Parse()

	if err := godotenv.Load(".env"); err == nil {
		log.Println("✅ Loaded environment from .env")
	}

	// the screen owns stdout from here on
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatalf("❌ Log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(io.Discard)
	}

	appConfig := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var backend tui.Backend
	if *serverURL != "" {
		c := client.New(client.Config{URL: *serverURL})
		go func() {
			if err := c.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("❌ Arena client: %v", err)
			}
		}()
		defer c.Stop()
		backend = tui.NewRemoteBackend(c)
		log.Printf("🌐 Remote arena: %s", *serverURL)
	} else {
		engine, err := localEngine(appConfig)
		if err != nil {
			log.SetOutput(os.Stderr)
			log.Fatalf("❌ %v", err)
		}
		engine.Start()
		defer engine.Stop()
		backend = tui.NewLocalBackend(engine)
		log.Println("🎮 Local arena started")
	}

	var sounds tui.Sounds
	if appConfig.Audio.Enabled {
		player := sfx.NewPlayer(sfx.Config{SampleRate: appConfig.Audio.SampleRate, Volume: appConfig.Audio.Volume})
		if err := player.Init(); err != nil {
			// Non-fatal, game can run without sound
			log.Printf("⚠️ Audio initialization failed: %v", err)
		} else {
			defer player.Close()
			sounds = player
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("❌ Terminal: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("❌ Terminal: %v", err)
	}
	defer screen.Fini()

	app := tui.NewApp(screen, backend, sounds)
	if err := app.Run(ctx); err != nil && err != context.Canceled {
		log.Printf("⚠️ %v", err)
	}
}

// localEngine builds an engine from the same configuration the server uses
func localEngine(appConfig config.AppConfig) (*game.Engine, error) {
	rules, err := game.RulesFromConfig(appConfig.Rules)
	if err != nil {
		return nil, err
	}

	var scores game.HighScoreStore = store.NewMemoryStore(0)
	if path := appConfig.Server.HighScorePath; path != "" {
		fs, err := store.OpenFile(path)
		if err != nil {
			return nil, err
		}
		scores = fs
	}

	return game.NewEngine(game.EngineConfig{
		TickRate:   appConfig.Engine.TickRate,
		GridSize:   appConfig.Grid.DefaultSize,
		Seed:       appConfig.Engine.Seed,
		Rules:      rules,
		Limits:     game.LimitsFromConfig(appConfig.Engine),
		HighScores: scores,
	}), nil
}
