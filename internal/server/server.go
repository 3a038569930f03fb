package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/testops/taskwatch/internal/config"
	"github.com/testops/taskwatch/internal/logging"
	"github.com/testops/taskwatch/internal/monitor"
)

// SnapshotSource is the read side of the monitor.
type SnapshotSource interface {
	Snapshot() monitor.Snapshot
}

// Config holds server configuration options.
type Config struct {
	Addr      string
	Source    SnapshotSource
	Gatherer  prometheus.Gatherer
	RateLimit RateLimitConfig
	Logger    *logging.Logger
}

// Server serves the monitor state over HTTP.
type Server struct {
	addr    string
	source  SnapshotSource
	limiter *rateLimiter
	log     *logging.Logger
	engine  *gin.Engine

	mu       sync.RWMutex
	server   *http.Server
	listener net.Listener
	started  bool
}

// NewServer creates a new Server instance.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Source == nil {
		return nil, errors.New("snapshot source is required")
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	s := &Server{
		addr:    cfg.Addr,
		source:  cfg.Source,
		limiter: newRateLimiter(cfg.RateLimit),
		log:     cfg.Logger.Component("server"),
	}
	s.engine = s.routes(cfg.Gatherer)
	return s, nil
}

// NewServerFromConfig creates a Server from the server section of the config.
func NewServerFromConfig(cfg *config.ServerConfig, source SnapshotSource, gatherer prometheus.Gatherer) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config is required")
	}
	return NewServer(&Config{Addr: cfg.Addr, Source: source, Gatherer: gatherer})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes(gatherer prometheus.Gatherer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.rateLimit())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		api.GET("/snapshot", s.handleSnapshot)
		api.GET("/tasks/:id", s.handleTask)
	}
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	snap := s.source.Snapshot()
	body := gin.H{
		"status":    "ok",
		"connected": snap.Connected,
		"tasks":     len(snap.Tasks),
	}
	if !snap.LastPoll.IsZero() {
		body["last_poll"] = snap.LastPoll.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.source.Snapshot())
}

func (s *Server) handleTask(c *gin.Context) {
	id := c.Param("id")
	snap := s.source.Snapshot()
	if snap.Selected != nil && snap.Selected.RequestID == id {
		c.JSON(http.StatusOK, snap.Selected)
		return
	}
	if t, ok := snap.Task(id); ok {
		c.JSON(http.StatusOK, t)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Task with ID %s not found", id)})
}

// rateLimit rejects clients that exceed the configured request rate.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		res := s.limiter.check(c.ClientIP())
		if !res.Allowed {
			s.log.Debug("rate limited", "ip", c.ClientIP(), "attempts", res.Attempts)
			c.Header("Retry-After", fmt.Sprintf("%d", int(res.RetryAfter.Seconds()+0.5)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Start listens on the configured address and serves until ctx is
// cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.started = true
	s.mu.Unlock()

	s.log.Info("status server listening", "addr", listener.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		if err := s.Stop(); err != nil {
			s.log.Warn("status server shutdown failed", "error", err)
		}
	})
	defer stop()

	go s.cleanupLoop(ctx)

	err = s.server.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.started = false
	return nil
}

// ListenAddr returns the actual address the server is listening on, or ""
// before Start.
func (s *Server) ListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.cleanup()
		}
	}
}
