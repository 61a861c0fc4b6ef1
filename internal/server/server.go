package server

import (
	"log/slog"
	"net/http"
	"time"

	"pharma-dashboard/internal/handlers"
	"pharma-dashboard/internal/middleware"
	"pharma-dashboard/internal/services"
)

type Server struct {
	analytics      *services.Analytics
	mux            *http.ServeMux
	logger         *slog.Logger
	apiHandlers    *handlers.APIHandlers
	sseHandlers    *handlers.SSEHandlers
	uploadHandlers *handlers.UploadHandlers
	exportHandlers *handlers.ExportHandlers
	uploadLimit    int64
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

type Options struct {
	UploadLimit  int64
	ParseTimeout time.Duration
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, templateHandlers *TemplateHandlers, opts Options) *Server {
	s := &Server{
		analytics:      analytics,
		mux:            http.NewServeMux(),
		logger:         logger,
		apiHandlers:    handlers.NewAPIHandlers(analytics, logger),
		sseHandlers:    handlers.NewSSEHandlers(analytics, logger),
		uploadHandlers: handlers.NewUploadHandlers(analytics, logger, opts.ParseTimeout),
		exportHandlers: handlers.NewExportHandlers(analytics, logger),
		uploadLimit:    opts.UploadLimit,
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// Uploads and downloads
	upload := middleware.MaxBodySize(s.uploadLimit)(http.HandlerFunc(s.uploadHandlers.HandleUpload))
	s.mux.Handle("POST /upload", upload)
	s.mux.Handle("POST /api/upload", upload)
	s.mux.HandleFunc("DELETE /api/dataset", s.apiHandlers.HandleClearDataset)
	s.mux.HandleFunc("GET /download", s.exportHandlers.HandleDownload)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/overview", s.apiHandlers.HandleOverview)
	s.mux.HandleFunc("GET /api/monthly-totals", s.apiHandlers.HandleMonthlyTotals)
	s.mux.HandleFunc("GET /api/client-totals", s.apiHandlers.HandleClientTotals)
	s.mux.HandleFunc("GET /api/bands", s.apiHandlers.HandleBands)
	s.mux.HandleFunc("GET /api/promo", s.apiHandlers.HandlePromo)
	s.mux.HandleFunc("GET /api/details", s.apiHandlers.HandleDetails)
	s.mux.HandleFunc("GET /api/trend", s.apiHandlers.HandleTrend)
	s.mux.HandleFunc("GET /api/filters", s.apiHandlers.HandleFilters)
	s.mux.HandleFunc("GET /api/ask", s.apiHandlers.HandleAsk)
	s.mux.HandleFunc("GET /api/snapshot", s.apiHandlers.HandleSnapshot)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/overview", s.sseHandlers.HandleOverview)
	s.mux.HandleFunc("GET /sse/client-totals", s.sseHandlers.HandleClientTotals)
	s.mux.HandleFunc("GET /sse/bands", s.sseHandlers.HandleBands)
	s.mux.HandleFunc("GET /sse/promo", s.sseHandlers.HandlePromo)
	s.mux.HandleFunc("GET /sse/details", s.sseHandlers.HandleDetails)
	s.mux.HandleFunc("GET /sse/trend", s.sseHandlers.HandleTrend)
	s.mux.HandleFunc("GET /sse/ask", s.sseHandlers.HandleAsk)
	s.mux.HandleFunc("GET /sse/filters", s.sseHandlers.HandleFilters)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
