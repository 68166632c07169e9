// Package server assembles the service from configuration and owns its
// lifecycle: everything started in Run is stopped by it, in order.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/analytics"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/api"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/api/handlers"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/cache"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/circuitbreaker"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/config"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/db"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/logger"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/memory"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/metrics"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/middleware"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/secrets"
)

// Cleanup callback names registered with the memory manager.
const (
	CleanupAnalyticsQueue = "analytics-queue"
	CleanupResponseCache  = "response-cache"
	CleanupRateLimiter    = "rate-limiter"
)

// Server holds the long-lived services.
type Server struct {
	cfg *config.Config

	DB        *sql.DB // nil when running on the in-memory store
	Memory    *memory.Manager
	Analytics *analytics.Service
	Cache     *cache.Ristretto
	Limiter   *middleware.RateLimiter
	Hub       *handlers.Hub

	collector *metrics.Collector
	http      *http.Server
}

// New builds every service. It connects to Postgres and migrates the
// analytics schema when DATABASE_URL is set.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg}

	var store analytics.Store = analytics.NewMemoryStore()
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(ctx, cfg.DatabaseURL, db.Options{StatementTimeout: cfg.DBStatementTimeout})
		if err != nil {
			return nil, err
		}
		pg := analytics.NewPostgresStore(conn, cfg.AnalyticsBatchSize)
		if err := pg.Migrate(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate analytics schema: %w", err)
		}
		s.DB = conn
		store = pg
		logger.Info("analytics store ready", "store", "postgres", "database", secrets.MaskDSN(cfg.DatabaseURL))
	} else {
		logger.Warn("DATABASE_URL not set, analytics events are kept in memory only")
	}

	rc, err := cache.NewRistretto(cfg.CacheMaxSizeMB, cfg.CacheMaxEntries, cfg.CacheTTL)
	if err != nil {
		s.closeDB()
		return nil, fmt.Errorf("create response cache: %w", err)
	}
	s.Cache = rc

	s.Memory = memory.NewManager(memoryOptions(cfg))
	s.Analytics = analytics.NewService(store, analytics.Options{
		BatchSize: cfg.AnalyticsBatchSize,
		MaxQueue:  cfg.AnalyticsMaxQueue,
		Breaker:   circuitbreaker.New(circuitbreaker.Config{Name: "analytics_store"}),
	})
	if cfg.EnableRateLimit {
		s.Limiter = middleware.NewRateLimiter(cfg.RateLimitGlobal, cfg.RateLimitGlobalBurst, cfg.RateLimitPerIP, cfg.RateLimitPerIPBurst)
	}
	s.Hub = handlers.NewHub(s.Memory.Stats, cfg.StatsStreamPeriod)
	s.Hub.AllowOrigins(cfg.CORSAllowedOrigins)

	s.registerCleanups()
	s.collector = metrics.NewCollector(cfg.MetricsInterval,
		metrics.Source{Name: "memory", Collect: s.Memory.PublishMetrics},
		metrics.Source{Name: "api_cache", Collect: cache.Publisher(s.Cache)},
	)

	s.http = &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// memoryOptions maps configuration onto the manager. A zero heap threshold
// turns the heap poll off.
func memoryOptions(cfg *config.Config) memory.Options {
	ages := map[string]time.Duration{
		memory.CategoryTab:       cfg.TabMaxAge,
		memory.CategoryCalc:      cfg.CalcMaxAge,
		memory.CategoryComponent: cfg.ComponentMaxAge,
		memory.CategoryList:      cfg.ListMaxAge,
	}
	cats := memory.DefaultCategories()
	for i := range cats {
		if age := ages[cats[i].Name]; age > 0 {
			cats[i].MaxAge = age
		}
	}

	opts := memory.Options{
		SweepInterval:    cfg.SweepInterval,
		HeapPollInterval: cfg.HeapPollInterval,
		Categories:       cats,
	}
	if threshold := cfg.HeapThresholdBytes(); threshold > 0 {
		opts.HeapThresholdBytes = threshold
		opts.HeapProbe = memory.RuntimeHeapProbe
	}
	return opts
}

// registerCleanups hooks the services' own housekeeping into every sweep.
func (s *Server) registerCleanups() {
	s.Memory.RegisterCleanup(CleanupAnalyticsQueue, s.Analytics.TrimQueue)
	s.Memory.RegisterCleanup(CleanupResponseCache, cache.Invalidator(s.Cache))
	if s.Limiter != nil {
		s.Memory.RegisterCleanup(CleanupRateLimiter, s.Limiter.Prune)
	}
}

// Handler returns the HTTP handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	deps := api.Deps{
		Memory:             s.Memory,
		Analytics:          s.Analytics,
		Cache:              s.Cache,
		Hub:                s.Hub,
		RateLimiter:        s.Limiter,
		CORS:               middleware.NewCORSConfig(s.cfg.CORSAllowedOrigins),
		WorkingSetCapacity: s.cfg.WorkingSetCapacity,
	}
	if s.DB != nil {
		deps.DB = s.DB
	}
	return api.NewHandler(deps)
}

// Run starts the reaper, background loops and the HTTP listener, and blocks
// until ctx is cancelled or the listener fails. It always shuts everything
// down before returning.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Memory.Init(ctx); err != nil {
		return fmt.Errorf("start memory manager: %w", err)
	}

	bg, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go s.collector.Start(bg)
	go s.Hub.Run(bg)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		runErr = fmt.Errorf("http server: %w", err)
	}

	s.shutdown(stopBackground)
	return runErr
}

// shutdown stops the HTTP server first so no request races the teardown,
// then flushes analytics and releases memory.
func (s *Server) shutdown(stopBackground context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	stopBackground()
	s.collector.Stop()

	if err := s.Analytics.Shutdown(ctx); err != nil {
		logger.Error("analytics shutdown lost queued events", "error", err)
	}
	s.Memory.Shutdown()
	s.Cache.Close()
	s.closeDB()
	logger.Info("server stopped")
}

func (s *Server) closeDB() {
	if s.DB == nil {
		return
	}
	if err := s.DB.Close(); err != nil {
		logger.Warn("failed to close database", "error", err)
	}
}
