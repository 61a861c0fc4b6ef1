package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"pharma-dashboard/internal/config"
	"pharma-dashboard/internal/dataset"
	"pharma-dashboard/internal/handlers"
	"pharma-dashboard/internal/middleware"
	"pharma-dashboard/internal/observability"
	"pharma-dashboard/internal/server"
	"pharma-dashboard/internal/services"
	"pharma-dashboard/internal/ui/templates"
)

const renderTimeout = 10 * time.Second

// dashboardHandler renders the page shell. Panels fill in over SSE once the
// browser connects, so the shell itself is never cached.
func dashboardHandler(promoProduct string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		props := templates.DashboardProps{
			PromoProduct: promoProduct,
			UploadError:  r.URL.Query().Get("upload_error"),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if err := templates.Dashboard(props).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func newAnalytics(cfg *config.Config, logger *slog.Logger) *services.Analytics {
	store := services.NewStore(cfg.Session.Capacity, cfg.Session.TTL, logger)
	return services.NewAnalytics(store, services.Settings{
		PromoProduct: cfg.Sales.PromoProduct,
		DetailLimit:  cfg.Sales.DetailLimit,
		Ingest: dataset.Options{
			Workers:   cfg.Upload.Workers,
			BatchSize: cfg.Upload.BatchSize,
			Logger:    logger,
		},
	})
}

func newHandler(cfg *config.Config, analytics *services.Analytics, logger *slog.Logger) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(cfg.Sales.PromoProduct),
	}

	srv := server.NewServer(analytics, logger, templateHandlers, server.Options{
		UploadLimit:  cfg.Upload.MaxBytes,
		ParseTimeout: cfg.Upload.ParseTimeout,
	})

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Session(cfg.Session),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return middlewareChain(srv)
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
		"version", handlers.Version,
		"addr", cfg.Address(),
		"promo_product", cfg.Sales.PromoProduct,
		"session_capacity", cfg.Session.Capacity,
		"session_ttl", cfg.Session.TTL,
	)

	analytics := newAnalytics(cfg, logger)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)
	gracefulServer.RegisterShutdownHook("analytics", analytics.Shutdown)

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
