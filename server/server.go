package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/logger"
)

const componentName = "admin-server"

var _ component.Component = (*Server)(nil)

// Server is the admin HTTP server.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     Config
	log        *logger.Logger

	mu      sync.Mutex
	addr    net.Addr
	serving bool
}

// New creates a Server with the middleware stack applied and no routes.
func New(cfg Config, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log = log.WithComponent(componentName)
	engine := gin.New()
	engine.Use(Recovery(log), RequestID(), RequestLogger(log))

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      engine,
			ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
			IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
		},
		engine: engine,
		config: cfg,
		log:    log,
	}
}

// Engine returns the underlying Gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// RegisterDefaultEndpoints registers /health, /ready and /metrics.
func (s *Server) RegisterDefaultEndpoints(serviceName string, checker HealthChecker, gatherer prometheus.Gatherer) {
	s.engine.GET("/health", Health(serviceName, checker))
	s.engine.GET("/ready", Readiness(serviceName, checker))
	s.engine.GET("/metrics", Metrics(gatherer))
}

// Name implements component.Component.
func (s *Server) Name() string { return componentName }

// Start binds the port and begins serving. It returns once the listener is
// bound; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}

	s.mu.Lock()
	s.addr = listener.Addr()
	s.serving = true
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Server error", logger.ErrorFields("serve", err))
		}
	}()

	s.log.Info("Admin server started", map[string]interface{}{
		"addr": listener.Addr().String(),
	})
	return nil
}

// Stop gracefully shuts down the server with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	serving := s.serving
	s.serving = false
	s.mu.Unlock()
	if !serving {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("Admin server shut down")
	return nil
}

// Health implements component.Component.
func (s *Server) Health(context.Context) component.Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.serving {
		return component.Health{Name: componentName, Status: component.StatusDegraded, Message: "not serving"}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy, Message: s.addr.String()}
}

// Addr returns the bound address once started, or the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr != nil {
		return s.addr.String()
	}
	return s.httpServer.Addr
}
