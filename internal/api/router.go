package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"grid-arena/internal/game"
	"grid-arena/internal/input"
	"grid-arena/internal/render"
	"grid-arena/internal/sfx"
)

// EngineInterface defines the game engine methods used by the API.
// This interface enables mocking for tests without spinning up the game loop.
type EngineInterface interface {
	input.Engine

	// GetSnapshot returns the latest lock-free snapshot
	GetSnapshot() *game.GameSnapshot
	// CellTags returns the raw tags on a cell
	CellTags(cell int) ([]game.Tag, error)
	// HighScore returns the best score
	HighScore() int
	// Waves returns the wave table
	Waves() []game.Wave
	// GridSize returns the board size
	GridSize() int
	// TickCount returns the number of ticks run
	TickCount() uint64
	// GetEventLogStats returns event log statistics
	GetEventLogStats() map[string]interface{}
}

// QueueStatser reports command queue statistics
type QueueStatser interface {
	Stats() input.QueueStats
}

// StatsReporter reports limiter counters
type StatsReporter interface {
	GetStats() map[string]uint64
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: engine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        Read:    api.Budget{PerSecond: 1000, Burst: 1000},
//	        Command: api.Budget{PerSecond: 1000, Burst: 1000},
//	    },
//	    DisableLogging: true,
//	}
//	ts := httptest.NewServer(api.NewRouter(cfg))
type RouterConfig struct {
	// Engine is the game engine (required)
	Engine EngineInterface

	// Input applies commands from HTTP requests. If nil, a handler without
	// per-source limiting is built around Engine.
	Input *input.Handler

	// Queue is reported in /api/stats when set
	Queue QueueStatser

	// Sockets is reported in /api/stats when set
	Sockets StatsReporter

	// Renderer draws /api/frame.png. If nil, one with default geometry is used.
	Renderer *render.Renderer

	// Sounds serves /api/sfx. If nil, one with default settings is used.
	Sounds *sfx.Bank

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses DefaultAllowedOrigins.
	CORSOrigins []string

	// EnableDebugSpawn exposes POST /api/patterns/spawn
	EnableDebugSpawn bool

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the dependencies of the route handlers
type routerHandlers struct {
	engine     EngineInterface
	input      *input.Handler
	queue      QueueStatser
	sockets    StatsReporter
	limiter    *IPRateLimiter
	renderer   *render.Renderer
	sounds     *sfx.Bank
	debugSpawn bool
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// It has no side effects beyond the rate limiter's cleanup goroutine when
// no limiter is supplied: no listeners are opened and the engine is not started.
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = DefaultAllowedOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &routerHandlers{
		engine:     cfg.Engine,
		input:      cfg.Input,
		queue:      cfg.Queue,
		sockets:    cfg.Sockets,
		limiter:    rateLimiter,
		renderer:   cfg.Renderer,
		sounds:     cfg.Sounds,
		debugSpawn: cfg.EnableDebugSpawn,
	}
	if h.input == nil {
		h.input = input.NewHandler(cfg.Engine, nil)
		h.input.AllowSpawn(cfg.EnableDebugSpawn)
		h.input.OnProcessed = InputMetrics
	}
	if h.renderer == nil {
		h.renderer = render.New(render.DefaultConfig())
	}
	if h.sounds == nil {
		h.sounds = sfx.NewBank(sfx.DefaultConfig())
	}

	r.Route("/api", func(r chi.Router) {
		// Game state
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/cells/{index}", h.handleGetCell)
		r.Get("/highscore", h.handleGetHighScore)
		r.Get("/waves", h.handleGetWaves)
		r.Get("/patterns", h.handleGetPatterns)

		// Player input
		r.Post("/session/start", h.handleStart)
		r.Post("/move", h.handleMove)
		r.Post("/dash", h.handleDash)
		r.Post("/input", h.handleInput)

		// Board
		r.Get("/grid", h.handleGetGrid)
		r.Post("/grid", h.handleSetGrid)

		// Debug
		if cfg.EnableDebugSpawn {
			r.Post("/patterns/spawn", h.handleSpawn)
		}

		// Presentation
		r.Get("/frame.png", h.handleFrame)
		r.Get("/sfx/{cue}", h.handleSound)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/state", http.StatusFound)
	})

	return r
}

// metricsMiddleware records latency by route pattern so labels stay bounded
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}
