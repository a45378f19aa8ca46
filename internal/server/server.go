// Package server exposes the investigation harness over HTTP: a small REST
// surface to start and inspect investigations, a WebSocket stream of live
// harness events, and the usual health and metrics endpoints.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/incidentloop/incidentloop/internal/audit"
	"github.com/incidentloop/incidentloop/internal/config"
	"github.com/incidentloop/incidentloop/internal/db"
	"github.com/incidentloop/incidentloop/internal/evidence"
	"github.com/incidentloop/incidentloop/internal/harness"
	"github.com/incidentloop/incidentloop/internal/middleware"
	"github.com/incidentloop/incidentloop/internal/reasoner"
	"github.com/incidentloop/incidentloop/internal/reasoner/provider/anthropic"
	"github.com/incidentloop/incidentloop/internal/reasoner/provider/openai"
)

// Server hosts the investigation API.
type Server struct {
	cfg   *config.Config
	log   *zap.Logger
	store db.Store
	audit audit.Logger

	reasoner harness.Reasoner
	tools    *harness.Registry

	runs    *runManager
	limiter *middleware.RateLimiter

	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	running bool
}

// New builds a Server from loaded configuration. The store and audit logger
// may be nil; the API then runs without persistence.
func New(cfg *config.Config, log *zap.Logger, store db.Store, auditLog audit.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}

	client, err := buildReasonerClient(cfg)
	if err != nil {
		return nil, err
	}

	tools, err := evidence.NewDemoRegistry(300 * time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		cfg:      cfg,
		log:      log,
		store:    store,
		audit:    auditLog,
		reasoner: reasoner.NewAdapter(client, log),
		tools:    tools,
		ctx:      ctx,
		cancel:   cancel,
	}
	srv.runs = newRunManager(srv)
	srv.limiter = middleware.NewRateLimiter(60)
	return srv, nil
}

func buildReasonerClient(cfg *config.Config) (reasoner.Client, error) {
	switch cfg.Reasoner.Provider {
	case "anthropic":
		apiKey, _ := cfg.Reasoner.Anthropic["api_key"].(string)
		model, _ := cfg.Reasoner.Anthropic["model"].(string)
		return anthropic.NewClient(apiKey, model)
	case "openai":
		apiKey, _ := cfg.Reasoner.OpenAI["api_key"].(string)
		model, _ := cfg.Reasoner.OpenAI["model"].(string)
		return openai.NewClient(apiKey, model)
	case "demo", "":
		return reasoner.DemoClient{}, nil
	default:
		return nil, fmt.Errorf("unknown reasoner provider %q", cfg.Reasoner.Provider)
	}
}

// thresholds converts the config section into the harness type.
func (s *Server) thresholds() harness.Thresholds {
	return harness.Thresholds{
		AutoExecute:     s.cfg.Harness.AutoExecute,
		ExecuteReview:   s.cfg.Harness.ExecuteReview,
		RequireApproval: s.cfg.Harness.RequireApproval,
	}
}

// selectionPolicy builds the per-iteration tool selection policy from config.
func (s *Server) selectionPolicy() harness.SelectionPolicy {
	if s.cfg.Harness.SelectionStrategy == "reasoner" {
		return harness.ReasonerPolicy{Fallback: harness.DefaultTablePolicy()}
	}
	return harness.DefaultTablePolicy()
}

// Start begins serving HTTP.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	mux := http.NewServeMux()
	s.registerHandlers(mux)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info("http server listening", zap.Int("port", s.cfg.Server.Port))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server error", zap.Error(err))
		}
	}()

	if s.audit != nil {
		_ = s.audit.Log(s.ctx, audit.NewEvent(audit.EventServerStarted).WithResult(audit.ResultSuccess))
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is not running")
	}
	s.running = false
	s.mu.Unlock()

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("http shutdown error", zap.Error(err))
		}
	}

	s.cancel()
	s.wg.Wait()
	s.limiter.Stop()

	if s.audit != nil {
		_ = s.audit.Log(context.Background(), audit.NewEvent(audit.EventServerShutdown).WithResult(audit.ResultSuccess))
		_ = s.audit.Sync()
	}
	s.log.Info("server stopped")
	return nil
}

// Wait blocks until the server is stopped.
func (s *Server) Wait() {
	<-s.ctx.Done()
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// registerHandlers registers HTTP handlers.
func (s *Server) registerHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/v1/investigations", s.limiter.Middleware(s.handleInvestigations))
	mux.HandleFunc("/api/v1/investigations/", s.handleInvestigationByID)

	mux.HandleFunc("/api/v1/persistence", s.handlePersistenceDispatch)
	mux.HandleFunc("/api/v1/persistence/", s.handlePersistenceDispatch)

	mux.HandleFunc("/ws/investigations/", s.handleInvestigationStream)
}
