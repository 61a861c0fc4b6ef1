package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"pharma-dashboard/internal/analytics"
	"pharma-dashboard/internal/errors"
	"pharma-dashboard/internal/observability"
	"pharma-dashboard/internal/services"
)

const noStore = "no-store"

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// dashboard resolves the caller's dataset or writes NO_DATASET.
func (h *APIHandlers) dashboard(w http.ResponseWriter, r *http.Request) (*services.Dashboard, bool) {
	d, ok := h.analytics.Dashboard(observability.GetSessionID(r.Context()))
	if !ok {
		errors.WriteError(w, h.logger, errors.NoDataset(), observability.GetRequestID(r.Context()))
		return nil, false
	}
	return d, true
}

func (h *APIHandlers) writeData(w http.ResponseWriter, data any) {
	// Results depend on the session's upload and must not be shared.
	errors.WriteSuccessWithHeaders(w, data, map[string]string{
		"Cache-Control": noStore,
	})
}

func (h *APIHandlers) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	if stderrors.Is(err, services.ErrInvalidArgument) {
		err = errors.BadRequestWrap(err, err.Error())
	}
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	h.writeData(w, d.Overview())
}

func (h *APIHandlers) HandleMonthlyTotals(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	h.writeData(w, d.MonthlyTotals())
}

func (h *APIHandlers) HandleClientTotals(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	h.writeData(w, d.ClientTotals(analytics.ParseFilterSet(r.URL.Query())))
}

func (h *APIHandlers) HandleBands(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	bands, err := d.BandAnalysis(q.Get("unit"), q.Get("period"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeData(w, bands)
}

func (h *APIHandlers) HandlePromo(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	h.writeData(w, d.PromoSummary(analytics.ParseFilterSet(r.URL.Query())))
}

func (h *APIHandlers) HandleDetails(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}

	limit := h.analytics.DetailLimit()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeErr(w, r, errors.BadRequest("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	h.writeData(w, d.DetailTable(analytics.ParseFilterSet(r.URL.Query()), limit))
}

func (h *APIHandlers) HandleTrend(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}

	dim := analytics.ColumnProduct
	if raw := r.URL.Query().Get("dimension"); raw != "" {
		col, err := analytics.ParseColumn(raw)
		if err != nil {
			h.writeErr(w, r, errors.BadRequestWrap(err, "unknown trend dimension"))
			return
		}
		dim = col
	}

	trend, err := d.Trend(dim, analytics.ParseFilterSet(r.URL.Query()))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeData(w, trend)
}

func (h *APIHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	h.writeData(w, d.FilterOptions())
}

func (h *APIHandlers) HandleAsk(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	h.writeData(w, d.Ask(r.URL.Query().Get("q")))
}

func (h *APIHandlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	req := services.SnapshotRequest{
		Filters:     analytics.ParseFilterSet(q),
		Unit:        q.Get("unit"),
		Period:      q.Get("period"),
		DetailLimit: h.analytics.DetailLimit(),
	}
	if raw := q.Get("dimension"); raw != "" {
		col, err := analytics.ParseColumn(raw)
		if err != nil {
			h.writeErr(w, r, errors.BadRequestWrap(err, "unknown trend dimension"))
			return
		}
		req.TrendDimension = col
	}

	snap, err := d.Snapshot(r.Context(), req)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeData(w, snap)
}

// HandleClearDataset forgets the session's upload.
func (h *APIHandlers) HandleClearDataset(w http.ResponseWriter, r *http.Request) {
	h.analytics.Clear(observability.GetSessionID(r.Context()))
	h.writeData(w, map[string]bool{"cleared": true})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   Version,
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}
