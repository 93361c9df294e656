package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/liamcoop/visaintake/catalog"
	"github.com/liamcoop/visaintake/internal/config"
	"github.com/liamcoop/visaintake/internal/logger"
	"github.com/liamcoop/visaintake/interview"
	"github.com/liamcoop/visaintake/recommend"
	"github.com/liamcoop/visaintake/rules"
	"github.com/liamcoop/visaintake/session"
)

// visaAdmin toggles visa types in the backing catalog.
type visaAdmin func(ctx context.Context, code string, active bool) error

type Server struct {
	db          *sql.DB
	catalog     catalog.Catalog
	cached      *catalog.CachedCatalog
	setActive   visaAdmin
	rules       *rules.Engine
	sessions    *session.Service
	limiter     *clientLimiter
	slowRequest time.Duration
	now         func() time.Time
	router      *chi.Mux
}

// Options holds the collaborators a Server is built from. DB may be nil
// when the service runs in memory.
type Options struct {
	DB          *sql.DB
	Catalog     *catalog.CachedCatalog
	SetActive   visaAdmin
	Rules       *rules.Engine
	Sessions    *session.Service
	Limiter     *clientLimiter
	SlowRequest time.Duration
}

func NewServer(opts Options) *Server {
	s := &Server{
		db:          opts.DB,
		catalog:     opts.Catalog,
		cached:      opts.Catalog,
		setActive:   opts.SetActive,
		rules:       opts.Rules,
		sessions:    opts.Sessions,
		limiter:     opts.Limiter,
		slowRequest: opts.SlowRequest,
		now:         time.Now,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/api/v1/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Interview sessions
	r.Route("/v1/interview", func(r chi.Router) {
		r.Use(s.limiter.limit("interview"))

		r.Post("/start", s.handleStart)
		r.Post("/answer", s.handleAnswer)
		r.Get("/{sessionId}/next", s.handleNext)
		r.Post("/complete", s.handleComplete)
		r.Post("/rerun", s.handleRerun)
		r.Post("/lock", s.handleLock)
		r.Get("/history", s.handleHistory)
	})

	// Visa catalog
	r.Get("/api/v1/visa-types", s.handleListVisaTypes)
	r.Put("/api/v1/visa-types/{code}/active", s.handleSetVisaActive)

	// Eligibility rule management
	r.Route("/api/v1/eligibility-rules", func(r chi.Router) {
		r.Get("/", s.handleListRules)
		r.Post("/", s.handleCreateRule)

		r.Route("/{ruleId}", func(r chi.Router) {
			r.Get("/", s.handleGetRule)
			r.Put("/", s.handleUpdateRule)
			r.Delete("/", s.handleDeleteRule)
			r.Post("/evaluate", s.handleEvaluateRule)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	visas, err := s.catalog.ListActive(r.Context())
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"activeVisaTypes": len(visas),
		"counters":        logger.Snapshot(),
	})
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}

// respondFailure maps a domain error onto a status code.
func respondFailure(w http.ResponseWriter, message string, err error) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr), errors.Is(err, rules.ErrInvalidRule):
		respondError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, session.ErrNotFound), errors.Is(err, rules.ErrRuleNotFound), errors.Is(err, catalog.ErrNotFound):
		respondError(w, http.StatusNotFound, message, err)
	case errors.Is(err, session.ErrNotActive), errors.Is(err, session.ErrLocked),
		errors.Is(err, session.ErrExpired), errors.Is(err, rules.ErrRuleExists):
		respondError(w, http.StatusConflict, message, err)
	default:
		logger.Error(message, "error", err)
		respondError(w, http.StatusInternalServerError, message, err)
	}
}

// openDatabase connects to the configured database, or returns nil when no
// URL is set.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	db, err := sql.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// buildServer wires storage, cache, rules, engine and sessions from cfg.
// The returned cleanup closes the database and Redis connections.
func buildServer(ctx context.Context, cfg *config.Config) (*Server, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("cleanup failed", "error", err)
			}
		}
	}

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, cleanup, err
	}
	if db != nil {
		closers = append(closers, db.Close)
	}

	seed := catalog.DefaultVisaTypes()
	if cfg.Catalog.SeedFile != "" {
		if seed, err = catalog.LoadSeedFile(cfg.Catalog.SeedFile); err != nil {
			return nil, cleanup, err
		}
	}

	var (
		source    catalog.Catalog
		setActive visaAdmin
		ruleStore rules.RuleStore
		sessStore session.Store
	)
	if db != nil {
		sc := catalog.NewSQLCatalog(db, cfg.Database.Driver)
		if cfg.Database.Driver == "sqlite" {
			if err := sc.EnsureSchema(ctx); err != nil {
				return nil, cleanup, err
			}
		}
		existing, err := sc.ListActive(ctx)
		if err != nil {
			return nil, cleanup, err
		}
		if len(existing) == 0 || cfg.Catalog.SeedFile != "" {
			if err := sc.Seed(ctx, seed); err != nil {
				return nil, cleanup, err
			}
			logger.Info("visa catalog seeded", "visaTypes", len(seed))
		}
		source, setActive = sc, sc.SetActive
	} else {
		mc := catalog.NewInMemoryCatalog(seed...)
		source = mc
		setActive = func(_ context.Context, code string, active bool) error {
			return mc.SetActive(code, active)
		}
	}

	if db != nil && cfg.Database.Driver == "postgres" {
		ruleStore = rules.NewPostgresRuleStore(db)
		sessStore = session.NewPostgresStore(db)
	} else {
		ruleStore = rules.NewInMemoryRuleStore()
		sessStore = session.NewInMemoryStore()
		logger.Warn("eligibility rules and sessions are held in memory")
	}

	cacheCfg := catalog.CacheConfig{TTL: cfg.Cache.TTL, KeyPrefix: cfg.Cache.KeyPrefix}
	var cache catalog.Cache = catalog.NewInMemoryCache(cacheCfg)
	if cfg.Redis.Address != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, catalog reads will fall through", "address", cfg.Redis.Address, "error", err)
		}
		cache = catalog.NewRedisCache(client, cacheCfg)
	}
	cached := catalog.NewCachedCatalog(source, cache)

	ruleEngine, err := rules.NewEngine(ctx, ruleStore)
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to load eligibility rules: %w", err)
	}

	engine := interview.NewEngine(cached, recommend.NewRuleBasedRecommender(cached),
		interview.WithEligibilityRules(ruleEngine))

	server := NewServer(Options{
		DB:          db,
		Catalog:     cached,
		SetActive:   setActive,
		Rules:       ruleEngine,
		Sessions:    session.NewService(sessStore, engine),
		Limiter:     newClientLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		SlowRequest: cfg.Server.SlowRequest,
	})
	return server, cleanup, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}
	if level, err := logger.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Logging.SampleRate > 0 {
		logger.SetSampleRate(cfg.Logging.SampleRate)
	}

	ctx := context.Background()
	server, cleanup, err := buildServer(ctx, cfg)
	if err != nil {
		cleanup()
		logger.Fatal("failed to create server", "error", err)
	}
	defer cleanup()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "driver", cfg.Database.Driver, "inMemory", server.db == nil, "logLevel", logger.GetLevel().String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := logger.Shutdown(shutdownCtx); err != nil {
		logger.Error("logger shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
