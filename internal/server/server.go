// Package server exposes the PII engine over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/piiguard/piiguard/internal/config"
	"github.com/piiguard/piiguard/internal/engine"
	"github.com/piiguard/piiguard/internal/logger"
	"github.com/piiguard/piiguard/internal/websocket"
)

// Server hosts the detection API and the event feed.
type Server struct {
	mu      sync.RWMutex
	cfg     *config.Config
	engine  *engine.Engine
	logger  *logger.Logger
	router  *mux.Router
	server  *http.Server
	wsHub   *websocket.Hub
	limiter *rateLimiter
	started time.Time

	totalRequests   int64
	totalDetections int64
}

// New creates a server around an existing engine.
func New(cfg *config.Config, eng *engine.Engine, log *logger.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		cfg:     cfg,
		engine:  eng,
		logger:  log.WithComponent("server"),
		router:  router,
		wsHub:   websocket.NewHub(log.WithComponent("websocket").Logger),
		limiter: newRateLimiter(cfg.Server.RateLimit),
		started: time.Now(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	if s.cfg.WebSocket.Enabled {
		s.router.HandleFunc(s.cfg.WebSocket.Path, s.handleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/detect", s.handleDetect).Methods("POST")
	api.HandleFunc("/anonymize", s.handleAnonymize).Methods("POST")
	api.HandleFunc("/batch", s.handleBatch).Methods("POST")
}

// Start runs the HTTP server and the event hub; it blocks until the
// listener fails or the server is shut down.
func (s *Server) Start() error {
	go s.wsHub.Run()
	s.limiter.startCleanup()

	s.logger.Info("Server listening", zap.Int("port", s.cfg.Server.Port))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.stopCleanup()
	return s.server.Shutdown(ctx)
}

// Reload swaps in a new configuration and engine, picking up
// hot-reloaded detection and anonymization settings without a
// restart. Server-level settings (port, timeouts) still require one.
func (s *Server) Reload(cfg *config.Config, eng *engine.Engine) {
	s.mu.Lock()
	s.cfg = cfg
	s.engine = eng
	s.mu.Unlock()
	s.logger.Info("Configuration reloaded")
}

func (s *Server) currentEngine() *engine.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}
