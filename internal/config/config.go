// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all arena, server and client settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// GRID CONFIGURATION
// =============================================================================

// GridConfig holds board size settings.
// The playable range is fixed by the game (game.MinGridSize..MaxGridSize);
// DefaultSize is clamped into it.
type GridConfig struct {
	DefaultSize int // Board size at startup
}

// DefaultGrid returns the default grid configuration.
func DefaultGrid() GridConfig {
	return GridConfig{
		DefaultSize: 7,
	}
}

// GridFromEnv returns grid configuration with environment variable overrides.
func GridFromEnv() GridConfig {
	cfg := DefaultGrid()

	if s := getEnvInt("GRID_SIZE", 0); s > 0 {
		cfg.DefaultSize = s
	}

	return cfg
}

// =============================================================================
// RULES CONFIGURATION
// =============================================================================

// WaveConfig is one entry of the wave table.
type WaveConfig struct {
	Score    int           // Score threshold that activates the wave
	Duration time.Duration // How long the wave lasts, in score seconds
	Kinds    []string      // Pattern kind names allowed during the wave
}

// RulesConfig holds the gameplay tunables of a round.
type RulesConfig struct {
	MaxHealth             int
	DashDistance          int
	DashCooldown          time.Duration
	InvincibilityDuration time.Duration
	ScoreInterval         time.Duration
	CollisionInterval     time.Duration

	SpawnInitialRate        time.Duration // First spawn interval
	SpawnMinRate            time.Duration // Spawn interval floor
	SpawnDifficultyInterval int           // Score seconds between speed-ups
	SpawnMultiplier         float64       // Interval multiplier per speed-up

	Waves []WaveConfig
}

// DefaultRules returns the default rules.
// This is the SINGLE SOURCE OF TRUTH for difficulty.
func DefaultRules() RulesConfig {
	return RulesConfig{
		MaxHealth:             3,
		DashDistance:          3,
		DashCooldown:          1000 * time.Millisecond,
		InvincibilityDuration: 1000 * time.Millisecond,
		ScoreInterval:         time.Second,
		CollisionInterval:     50 * time.Millisecond, // 20 checks per second

		SpawnInitialRate:        4000 * time.Millisecond,
		SpawnMinRate:            750 * time.Millisecond,
		SpawnDifficultyInterval: 8,
		SpawnMultiplier:         0.9,

		Waves: []WaveConfig{
			{Score: 10, Duration: 15 * time.Second, Kinds: []string{"sniper", "laser"}},
			{Score: 25, Duration: 20 * time.Second, Kinds: []string{"shockwave", "trail"}},
			{Score: 40, Duration: 15 * time.Second, Kinds: []string{"hunter", "cross"}},
			{Score: 60, Duration: 10 * time.Second, Kinds: []string{"spinner"}},
			{Score: 80, Duration: 25 * time.Second, Kinds: []string{"guardian", "hunter", "sniper"}},
			{Score: 100, Duration: 20 * time.Second, Kinds: []string{"cross", "laser", "shockwave"}},
		},
	}
}

// RulesFromEnv returns rules with environment variable overrides.
func RulesFromEnv() RulesConfig {
	cfg := DefaultRules()

	if h := getEnvInt("MAX_HEALTH", 0); h > 0 {
		cfg.MaxHealth = h
	}
	if ms := getEnvInt("SPAWN_INITIAL_MS", 0); ms > 0 {
		cfg.SpawnInitialRate = time.Duration(ms) * time.Millisecond
	}
	if ms := getEnvInt("SPAWN_MIN_MS", 0); ms > 0 {
		cfg.SpawnMinRate = time.Duration(ms) * time.Millisecond
	}

	return cfg
}

// =============================================================================
// ENGINE CONFIGURATION
// =============================================================================

// EngineConfig holds game loop settings.
type EngineConfig struct {
	TickRate     int    // Game loop ticks per second
	Seed         int64  // Random seed, 0 = from the wall clock
	EventLogPath string // JSONL event log, empty = disabled
	MaxCells     int    // Cells per snapshot
	MaxPatterns  int    // Patterns per snapshot
}

// DefaultEngine returns the default engine configuration.
func DefaultEngine() EngineConfig {
	return EngineConfig{
		TickRate:     60,
		EventLogPath: "events.jsonl",
		MaxCells:     21 * 21,
		MaxPatterns:  256,
	}
}

// EngineFromEnv returns engine configuration with environment variable overrides.
func EngineFromEnv() EngineConfig {
	cfg := DefaultEngine()

	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if v := os.Getenv("ARENA_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = seed
		}
	}
	if v, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.EventLogPath = v
	}

	return cfg
}

// =============================================================================
// AUDIO CONFIGURATION
// =============================================================================

// AudioConfig holds sound cue settings.
type AudioConfig struct {
	SampleRate int     // Audio sample rate in Hz
	Volume     float64 // Master volume (0.0 to 1.0)
	Enabled    bool    // Whether sound cues are played/served
}

// DefaultAudio returns the default audio configuration.
func DefaultAudio() AudioConfig {
	return AudioConfig{
		SampleRate: 44100,
		Volume:     0.3,
		Enabled:    true,
	}
}

// AudioFromEnv returns audio configuration with environment variable overrides.
func AudioFromEnv() AudioConfig {
	cfg := DefaultAudio()

	if v := getEnvFloat("SFX_VOLUME", -1); v >= 0 {
		cfg.Volume = v
	}
	if os.Getenv("SFX_ENABLED") == "false" {
		cfg.Enabled = false
	}

	return cfg
}

// =============================================================================
// RENDER CONFIGURATION
// =============================================================================

// RenderConfig holds PNG frame renderer settings.
type RenderConfig struct {
	CellSize int // Pixels per grid cell
	Padding  int // Border around the board in pixels
	HUD      int // Height of the score bar in pixels
}

// DefaultRender returns the default render configuration.
func DefaultRender() RenderConfig {
	return RenderConfig{
		CellSize: 48,
		Padding:  12,
		HUD:      36,
	}
}

// RenderFromEnv returns render configuration with environment variable overrides.
func RenderFromEnv() RenderConfig {
	cfg := DefaultRender()

	if cs := getEnvInt("RENDER_CELL_SIZE", 0); cs > 0 {
		cfg.CellSize = cs
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int
	MaxConnsPerIP   int     // WebSocket connections per IP
	ReadPerSec      float64 // HTTP GET requests per second per IP
	ReadBurst       int
	CommandPerSec   float64 // HTTP POST requests per second per IP
	CommandBurst    int
	InputsPerSec    float64 // Input commands per second per source
	InputBurst      int
	InputQueueSize  int
	HighScorePath   string // JSON high score file, empty = memory only
	DebugServerAddr string
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:            3000,
		MaxConnsPerIP:   5,
		ReadPerSec:      20, // 10 fps frame polling plus state
		ReadBurst:       40,
		CommandPerSec:   15,
		CommandBurst:    15,
		InputsPerSec:    30, // faster than any human mashes arrows
		InputBurst:      10,
		InputQueueSize:  256,
		HighScorePath:   "highscore.json",
		DebugServerAddr: "127.0.0.1:6060",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if v, ok := os.LookupEnv("HIGH_SCORE_PATH"); ok {
		cfg.HighScorePath = v
	}
	if addr := os.Getenv("DEBUG_SERVER_ADDR"); addr != "" {
		cfg.DebugServerAddr = addr
	}
	if v := getEnvFloat("HTTP_READ_RPS", 0); v > 0 {
		cfg.ReadPerSec = v
	}
	if v := getEnvFloat("HTTP_COMMAND_RPS", 0); v > 0 {
		cfg.CommandPerSec = v
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Grid   GridConfig
	Rules  RulesConfig
	Engine EngineConfig
	Audio  AudioConfig
	Render RenderConfig
	Server ServerConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Grid:   GridFromEnv(),
		Rules:  RulesFromEnv(),
		Engine: EngineFromEnv(),
		Audio:  AudioFromEnv(),
		Render: RenderFromEnv(),
		Server: ServerFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
