package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/bisongoscar/apple-sales-dashboard/internal/config"
	"github.com/bisongoscar/apple-sales-dashboard/internal/middleware"
	"github.com/bisongoscar/apple-sales-dashboard/internal/observability"
	"github.com/bisongoscar/apple-sales-dashboard/internal/server"
	"github.com/bisongoscar/apple-sales-dashboard/internal/services"
	"github.com/bisongoscar/apple-sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout   = 10 * time.Second
	dataLoadTimeout = 30 * time.Second
	cacheMaxAge     = "public, max-age=300"
	dashboardTitle  = "Apple Sales Dashboard"
)

// dashboardHandler renders the page shell with the filter options of the
// currently loaded dataset.
func dashboardHandler(analytics *services.Analytics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		page := templates.Dashboard(templates.DashboardData{
			Title:   dashboardTitle,
			Options: analytics.Options(),
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := page.Render(ctx, w); err != nil {
			logger.Error("render dashboard", "error", err)
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

// newHandler wires routes and the middleware chain. The first middleware
// listed sees the request first.
func newHandler(cfg *config.Config, analytics *services.Analytics, limiter *middleware.RateLimiter, logger *slog.Logger) (http.Handler, error) {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(analytics, logger),
	}
	srv := server.NewServer(analytics, logger, cfg.Charts, templateHandlers)

	compression, err := middleware.Compression()
	if err != nil {
		return nil, err
	}

	chain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(limiter, logger),
		compression,
	)
	return chain(srv), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"config", cfg,
	)

	analytics := services.NewAnalytics(cfg, nil, logger)
	ctx, cancel := context.WithTimeout(context.Background(), dataLoadTimeout)
	defer cancel()

	start := time.Now()
	if err := analytics.LoadFromFile(ctx, cfg.Data.File); err != nil {
		logger.Error("failed to load sales data", "file", cfg.Data.File, "error", err)
		os.Exit(1)
	}
	logger.Info("sales data loaded successfully", "duration", time.Since(start))

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go rateLimiter.Run(sweepCtx, time.Minute)

	handler, err := newHandler(cfg, analytics, rateLimiter, logger)
	if err != nil {
		logger.Error("failed to build HTTP handler", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		stopSweep()
		return nil
	})
	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down analytics service", "stats", analytics.Stats())
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
