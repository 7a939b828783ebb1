package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"grid-arena/internal/input"
	"grid-arena/internal/render"
	"grid-arena/internal/sfx"
)

// ServerConfig wires a Server
type ServerConfig struct {
	Engine   EngineInterface
	Input    *input.Handler
	Queue    *input.CommandQueue // socket input goes through the queue
	Renderer *render.Renderer
	Sounds   *sfx.Bank

	RateLimit        RateLimitConfig
	Origins          []string
	MaxWSPerIP       int
	EnableDebugSpawn bool
}

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with WebSocket hub for real-time updates.
type Server struct {
	engine      EngineInterface
	queue       *input.CommandQueue
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates a new API server.
//
// Background workers do NOT start until Start() is called, so the server can
// be constructed in tests and driven through Router().
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		engine:      cfg.Engine,
		queue:       cfg.Queue,
		rateLimiter: NewIPRateLimiter(cfg.RateLimit),
	}

	var sink CommandSink
	if cfg.Queue != nil {
		sink = cfg.Queue
	}
	s.wsHub = NewWebSocketHub(HubConfig{
		MaxPerIP: cfg.MaxWSPerIP,
		Origins:  OriginPolicy{Allowed: cfg.Origins},
		Sink:     sink,
	})

	routerCfg := RouterConfig{
		Engine:           cfg.Engine,
		Input:            cfg.Input,
		Renderer:         cfg.Renderer,
		Sounds:           cfg.Sounds,
		Sockets:          s.wsHub,
		RateLimiter:      s.rateLimiter,
		CORSOrigins:      cfg.Origins,
		EnableDebugSpawn: cfg.EnableDebugSpawn,
	}
	if cfg.Queue != nil {
		routerCfg.Queue = cfg.Queue
	}
	s.router = NewRouter(routerCfg)

	s.setupWebSocketRoutes()

	return s
}

// setupWebSocketRoutes adds routes that need the hub instance
func (s *Server) setupWebSocketRoutes() {
	s.router.Get("/ws", s.wsHub.HandleWebSocket)
}

// Start runs the hub and the HTTP listener. It blocks until the listener
// fails or Shutdown is called, in which case it returns nil.
func (s *Server) Start(addr string) error {
	if s.queue != nil {
		s.queue.Start()
	}
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.engine, broadcastEvery)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🎮 State: http://localhost%s/api/state  Socket: ws://localhost%s/ws", addr, addr)

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown stops the listener and background workers
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	s.Stop()
	return err
}

// Stop performs shutdown of background workers
func (s *Server) Stop() {
	s.wsHub.Stop()
	if s.queue != nil {
		s.queue.Stop()
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}
