package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/SJPMusic/soloheart-sub001/internal/api/handlers"
	mw "github.com/SJPMusic/soloheart-sub001/internal/api/middleware"
	"github.com/SJPMusic/soloheart-sub001/internal/buildconfig"
	"github.com/SJPMusic/soloheart-sub001/internal/config"
	"github.com/SJPMusic/soloheart-sub001/internal/domain"
	"github.com/SJPMusic/soloheart-sub001/internal/embedding"
	"github.com/SJPMusic/soloheart-sub001/internal/extract"
	"github.com/SJPMusic/soloheart-sub001/internal/rules"
	"github.com/SJPMusic/soloheart-sub001/internal/service"
	"github.com/SJPMusic/soloheart-sub001/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router plus the metrics counters the middleware feeds.
type App struct {
	Router       *chi.Mux
	Sessions     *service.SessionService
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// NewApp wires the full engine. db may be nil; the engine then runs on the
// in-process store.
func NewApp(db *pgxpool.Pool, cfg *rules.Config, logger *zap.Logger) *App {
	var sessionStore domain.SessionStore
	if db != nil {
		sessionStore = store.NewSessionStore(db)
	} else {
		sessionStore = store.NewMemoryStore()
		logger.Warn("no database configured, sessions will not survive restart")
	}

	assisted, err := extract.NewAssistedExtractor(config.AssistedProvider(), config.OpenAIAPIKey())
	if err != nil {
		logger.Warn("assisted extractor initialization failed, running pattern-only",
			zap.String("provider", config.AssistedProvider()), zap.Error(err))
	} else if assisted != nil {
		logger.Info("assisted extractor initialized", zap.String("provider", config.AssistedProvider()))
	}

	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), config.OpenAIAPIKey())
	if err != nil {
		logger.Warn("embedding client initialization failed, recall degrades to lexical",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
	} else if embeddingClient != nil {
		logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))
	}

	coordinator := extract.NewCoordinator(assisted, config.AssistedTimeout(), logger)
	sessionSvc := service.NewSessionService(sessionStore, coordinator, embeddingClient, cfg, logger)

	sessionHandler := handlers.NewSessionHandler(sessionSvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Sessions:  sessionSvc,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", sessionHandler.Create)
		r.Get("/", sessionHandler.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", sessionHandler.Delete)
			r.Get("/state", sessionHandler.GetState)
			r.Post("/turn", sessionHandler.ProcessTurn)
			r.Post("/confirm", sessionHandler.Confirm)
			r.Post("/undo", sessionHandler.Undo)
			r.Get("/context", sessionHandler.GetContext)
			r.Get("/memories", sessionHandler.Memories)
			r.Get("/recall", sessionHandler.Recall)
		})
	})

	return app
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.SessionStore      = (*store.SessionStore)(nil)
	_ domain.SessionStore      = (*store.MemoryStore)(nil)
	_ domain.EmbeddingClient   = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient   = (*embedding.MockClient)(nil)
	_ domain.AssistedExtractor = (*extract.OpenAIExtractor)(nil)
	_ domain.AssistedExtractor = (*extract.MockExtractor)(nil)
)
