package api

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grid-arena/internal/game"
	"grid-arena/internal/input"
)

// Metrics with bounded cardinality: labels are pattern kinds, routes and reasons only
var (
	// Game engine metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Time spent in game tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025},
	})

	timersFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_timers_fired_total",
		Help: "Scheduler timers run by game ticks",
	})

	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_render_duration_seconds",
		Help:    "Time spent rendering a PNG frame",
		Buckets: []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1},
	})

	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_sessions_started_total",
		Help: "Rounds started",
	})

	damageTaken = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_damage_total",
		Help: "Hits taken by the player",
	})

	gameOverScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_game_over_score",
		Help:    "Score at the end of each round",
		Buckets: []float64{5, 10, 20, 30, 50, 75, 100, 150, 250},
	})

	highScoreGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_high_score",
		Help: "Best score seen by this process",
	})

	patternsSpawned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_patterns_spawned_total",
		Help: "Enemy patterns spawned",
	}, []string{"kind"}) // Bounded: eight pattern kinds

	patternsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_patterns_active",
		Help: "Patterns currently on the board",
	})

	wavesActivated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_waves_activated_total",
		Help: "Waves activated",
	})

	dashesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_dashes_total",
		Help: "Dashes performed",
	})

	inputsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_inputs_total",
		Help: "Player commands by outcome",
	}, []string{"command", "result"})

	// Event log metrics
	eventLogTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_event_log_total",
		Help: "Total events logged",
	})

	eventLogDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_event_log_dropped_total",
		Help: "Events dropped due to rate limiting or buffer full",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arena_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_websocket_messages_total",
		Help: "WebSocket messages by direction",
	}, []string{"direction"}) // Bounded: "out", "in"
)

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // keep on localhost in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// StartDebugServer starts the internal observability server.
// It binds to localhost unless ALLOW_DEBUG_EXTERNAL=true.
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled || cfg.ListenAddr == "" {
		log.Println("📊 Debug server disabled")
		return nil
	}

	if !isLocalAddr(cfg.ListenAddr) && os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
		log.Println("⚠️ Debug server forced to localhost for security")
		cfg.ListenAddr = DefaultObservabilityConfig().ListenAddr
	}

	var handler http.Handler = debugMux()
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, handler)
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

func isLocalAddr(addr string) bool {
	for _, prefix := range []string{"127.0.0.1:", "localhost:", "[::1]:"} {
		if len(addr) > len(prefix) && addr[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

func debugMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MetricsCallbacks returns engine callbacks that feed the game metrics.
// activePatterns is read after each tick to update the gauge.
func MetricsCallbacks(activePatterns func() int) game.Callbacks {
	return game.Callbacks{
		OnStart: func(size int) {
			sessionsStarted.Inc()
		},
		OnGameOver: func(score int, newHigh bool) {
			gameOverScore.Observe(float64(score))
			if newHigh {
				highScoreGauge.Set(float64(score))
			}
		},
		OnDamage: func(cell, health int) {
			damageTaken.Inc()
		},
		OnSpawn: func(p game.PatternInstance) {
			patternsSpawned.WithLabelValues(p.Kind.String()).Inc()
		},
		OnWave: func(w game.ActiveWave) {
			wavesActivated.Inc()
		},
		OnDash: func(from, to int) {
			dashesTotal.Inc()
		},
		OnTick: func(elapsed time.Duration, fired int) {
			RecordTick(elapsed)
			timersFired.Add(float64(fired))
			if activePatterns != nil {
				patternsActive.Set(float64(activePatterns()))
			}
		},
	}
}

// RecordTick records tick timing for metrics
func RecordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}

// RecordRender records render timing for metrics
func RecordRender(duration time.Duration) {
	renderDuration.Observe(duration.Seconds())
}

// SetHighScore seeds the high score gauge at startup
func SetHighScore(score int) {
	highScoreGauge.Set(float64(score))
}

// RecordInput counts a processed player command
func RecordInput(command, result string) {
	inputsTotal.WithLabelValues(command, result).Inc()
}

// InputMetrics is an input.Handler OnProcessed hook
func InputMetrics(cmd input.Command, res input.Result) {
	RecordInput(cmd.Type.String(), res.String())
}

var eventLogSeen struct {
	mu             sync.Mutex
	total, dropped uint64
}

// UpdateEventLogStats feeds the event log counters from absolute totals
func UpdateEventLogStats(total, dropped uint64) {
	eventLogSeen.mu.Lock()
	defer eventLogSeen.mu.Unlock()

	if total > eventLogSeen.total {
		eventLogTotal.Add(float64(total - eventLogSeen.total))
		eventLogSeen.total = total
	}
	if dropped > eventLogSeen.dropped {
		eventLogDropped.Add(float64(dropped - eventLogSeen.dropped))
		eventLogSeen.dropped = dropped
	}
}

// RecordConnectionRejected increments the rejection counter.
// reason must be one of: "rate_limit_read", "rate_limit_command", "origin",
// "ws_total_limit", "ws_ip_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages counts a WebSocket message; direction is "out" or "in"
func IncrementWSMessages(direction string) {
	wsMessagesTotal.WithLabelValues(direction).Inc()
}
