package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"grid-arena/internal/api"
	"grid-arena/internal/config"
	"grid-arena/internal/game"
	"grid-arena/internal/input"
	"grid-arena/internal/render"
	"grid-arena/internal/sfx"
	"grid-arena/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	debugSpawn := flag.Bool("debug-spawn", os.Getenv("ENABLE_DEBUG_SPAWN") == "true", "expose POST /api/patterns/spawn")
	flag.Parse()

	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  GRID ARENA - GO ENGINE")
	log.Println("🎮 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	serverCfg := appConfig.Server

	rules, err := game.RulesFromConfig(appConfig.Rules)
	if err != nil {
		log.Fatalf("❌ Invalid rules: %v", err)
	}

	// High score persistence
	var scores game.HighScoreStore
	if serverCfg.HighScorePath != "" {
		fs, err := store.OpenFile(serverCfg.HighScorePath)
		if err != nil {
			log.Fatalf("❌ High score store: %v", err)
		}
		log.Printf("🏆 High score file: %s (best %d)", fs.Path(), fs.HighScore())
		scores = fs
	} else {
		log.Println("🏆 High score kept in memory only")
		scores = store.NewMemoryStore(0)
	}

	engine := game.NewEngine(game.EngineConfig{
		TickRate:   appConfig.Engine.TickRate,
		GridSize:   appConfig.Grid.DefaultSize,
		Seed:       appConfig.Engine.Seed,
		Rules:      rules,
		Limits:     game.LimitsFromConfig(appConfig.Engine),
		HighScores: scores,
	})
	limits := engine.GetLimits()
	log.Printf("🛡️ Resource limits: %d cells, %d patterns", limits.MaxCells, limits.MaxPatterns)
	log.Printf("🎮 Config: %d TPS, %dx%d grid", appConfig.Engine.TickRate, engine.GridSize(), engine.GridSize())

	engine.SetCallbacks(api.MetricsCallbacks(func() int {
		return len(engine.GetSnapshot().Patterns)
	}))
	api.SetHighScore(engine.HighScore())

	// Start event log
	if path := appConfig.Engine.EventLogPath; path != "" {
		if err := engine.StartEventLog(path); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", path)
		}
	}

	// Start debug server
	debugCfg := api.DefaultObservabilityConfig()
	debugCfg.ListenAddr = serverCfg.DebugServerAddr
	debugCfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	debugCfg.BasicAuthPass = os.Getenv("DEBUG_PASS")
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	// Player input: per-source limits, then an ordered queue for socket input
	inputLimiter := input.NewRateLimiter(input.RateLimitConfig{
		PerSecond: serverCfg.InputsPerSec,
		Burst:     serverCfg.InputBurst,
	})
	inputHandler := input.NewHandler(engine, inputLimiter)
	inputHandler.AllowSpawn(*debugSpawn)
	inputHandler.OnProcessed = api.InputMetrics

	queueCfg := input.DefaultQueueConfig()
	queueCfg.BufferSize = serverCfg.InputQueueSize
	queue := input.NewCommandQueue(inputHandler, queueCfg)

	// Presentation
	renderer := render.New(render.Config{
		CellSize: appConfig.Render.CellSize,
		Padding:  appConfig.Render.Padding,
		HUD:      appConfig.Render.HUD,
	})
	sfxCfg := sfx.Config{SampleRate: appConfig.Audio.SampleRate, Volume: appConfig.Audio.Volume}
	if !appConfig.Audio.Enabled {
		sfxCfg.Volume = 0
	}
	sounds := sfx.NewBank(sfxCfg)
	if err := sounds.Warm(); err != nil {
		log.Printf("⚠️ Sound cues unavailable: %v", err)
	}

	server := api.NewServer(api.ServerConfig{
		Engine:   engine,
		Input:    inputHandler,
		Queue:    queue,
		Renderer: renderer,
		Sounds:   sounds,
		RateLimit: api.RateLimitConfig{
			Read:    api.Budget{PerSecond: serverCfg.ReadPerSec, Burst: serverCfg.ReadBurst},
			Command: api.Budget{PerSecond: serverCfg.CommandPerSec, Burst: serverCfg.CommandBurst},
		},
		MaxWSPerIP:       serverCfg.MaxConnsPerIP,
		EnableDebugSpawn: *debugSpawn,
	})
	if *debugSpawn {
		log.Println("🧪 Debug pattern spawning ENABLED")
	}

	// Start game engine
	engine.Start()
	log.Println("✅ Game Engine started")

	// Feed event log counters to metrics
	stopStats := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stopStats:
				return
			case <-ticker.C:
				stats := engine.GetEventLogStats()
				total, _ := stats["total"].(uint64)
				dropped, _ := stats["dropped"].(uint64)
				api.UpdateEventLogStats(total, dropped)
			}
		}
	}()

	// Start API server in goroutine
	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
	close(stopStats)
	inputLimiter.Stop()
	engine.Stop()
	engine.StopEventLog()
	log.Println("👋 Goodbye!")
}
