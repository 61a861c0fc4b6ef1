package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/starfederation/datastar-go/datastar"

	"pharma-dashboard/internal/analytics"
	"pharma-dashboard/internal/observability"
	"pharma-dashboard/internal/services"
)

const uploadPrompt = "매출 데이터 CSV 파일을 업로드하면 분석이 표시됩니다."

// panelFilters is the multiselect state of one dashboard section. Each
// section keeps its own, so a choice in one never narrows another.
type panelFilters struct {
	Rep     []string `json:"rep"`
	Client  []string `json:"client"`
	Group   []string `json:"group"`
	Product []string `json:"product"`
	Month   []string `json:"month"`
}

func (p panelFilters) set() analytics.FilterSet {
	return analytics.FilterSet{
		analytics.ColumnRepresentative: p.Rep,
		analytics.ColumnClient:         p.Client,
		analytics.ColumnProductGroup:   p.Group,
		analytics.ColumnProduct:        p.Product,
		analytics.ColumnMonth:          p.Month,
	}
}

type trendSignals struct {
	panelFilters
	Dimension string `json:"dimension"`
}

func (s trendSignals) dimension() analytics.Column {
	if col, err := analytics.ParseColumn(s.Dimension); err == nil {
		return col
	}
	return analytics.ColumnProduct
}

// dashboardSignals mirrors the widget state kept in the browser.
type dashboardSignals struct {
	Clients  panelFilters `json:"clients"`
	Promo    panelFilters `json:"promo"`
	Details  panelFilters `json:"details"`
	Trend    trendSignals `json:"trend"`
	Unit     string       `json:"unit"`
	Period   string       `json:"period"`
	Question string       `json:"question"`
}

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// stream is one SSE response: the generator plus the caller's dashboard and
// widget state.
type stream struct {
	sse     *datastar.ServerSentEventGenerator
	dash    *services.Dashboard
	signals dashboardSignals
	limit   int
	logger  *slog.Logger
}

// open starts the event stream. When the session has no upload it patches the
// upload prompt and returns false.
func (h *SSEHandlers) open(w http.ResponseWriter, r *http.Request) (*stream, bool) {
	logger := observability.LoggerFrom(r.Context(), h.logger)

	var signals dashboardSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		logger.Debug("ignoring unreadable signals", "error", err)
		signals = dashboardSignals{}
	}

	st := &stream{
		sse:     datastar.NewSSE(w, r),
		signals: signals,
		limit:   h.analytics.DetailLimit(),
		logger:  logger,
	}

	dash, ok := h.analytics.Dashboard(observability.GetSessionID(r.Context()))
	if !ok {
		st.patch("status", statusMessage{Kind: "info", Text: uploadPrompt})
		return st, false
	}
	st.dash = dash
	return st, true
}

func (st *stream) patch(name string, data any) {
	html, err := render(name, data)
	if err != nil {
		st.logger.Error("render fragment", "fragment", name, "error", err)
		return
	}
	if err := st.sse.PatchElements(html); err != nil {
		st.logger.Debug("patch elements", "fragment", name, "error", err)
	}
}

func (st *stream) signalsPatch(values map[string]any) {
	data, err := json.Marshal(values)
	if err != nil {
		st.logger.Error("marshal signals", "error", err)
		return
	}
	if err := st.sse.PatchSignals(data); err != nil {
		st.logger.Debug("patch signals", "error", err)
	}
}

func (st *stream) overview() {
	st.patch("overview", st.dash.Overview())
	st.signalsPatch(map[string]any{"monthlyData": st.dash.MonthlyTotals()})
}

func (st *stream) clients() {
	st.patch("clients", st.dash.ClientTotals(st.signals.Clients.set()))
}

func (st *stream) bands() {
	bands, err := st.dash.BandAnalysis(st.signals.Unit, st.signals.Period)
	if err != nil {
		st.patch("status", statusMessage{Kind: "warning", Text: err.Error()})
		return
	}
	st.patch("bands", bands)
	st.signalsPatch(map[string]any{
		"period":    bands.Period,
		"bandsData": bands,
	})
}

func (st *stream) promo() {
	st.patch("promo", st.dash.PromoSummary(st.signals.Promo.set()))
}

func (st *stream) details() {
	st.patch("details", st.dash.DetailTable(st.signals.Details.set(), st.limit))
}

func (st *stream) trend() {
	trend, err := st.dash.Trend(st.signals.Trend.dimension(), st.signals.Trend.set())
	if err != nil {
		st.patch("status", statusMessage{Kind: "warning", Text: err.Error()})
		return
	}
	st.patch("trend", trend)
	st.signalsPatch(map[string]any{"trendData": trend})
}

func (h *SSEHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	if st, ok := h.open(w, r); ok {
		st.overview()
	}
}

func (h *SSEHandlers) HandleClientTotals(w http.ResponseWriter, r *http.Request) {
	if st, ok := h.open(w, r); ok {
		st.clients()
	}
}

func (h *SSEHandlers) HandleBands(w http.ResponseWriter, r *http.Request) {
	if st, ok := h.open(w, r); ok {
		st.bands()
	}
}

func (h *SSEHandlers) HandlePromo(w http.ResponseWriter, r *http.Request) {
	if st, ok := h.open(w, r); ok {
		st.promo()
	}
}

func (h *SSEHandlers) HandleDetails(w http.ResponseWriter, r *http.Request) {
	if st, ok := h.open(w, r); ok {
		st.details()
	}
}

func (h *SSEHandlers) HandleTrend(w http.ResponseWriter, r *http.Request) {
	if st, ok := h.open(w, r); ok {
		st.trend()
	}
}

func (h *SSEHandlers) HandleAsk(w http.ResponseWriter, r *http.Request) {
	st, ok := h.open(w, r)
	if !ok {
		return
	}
	st.patch("answer", st.dash.Ask(st.signals.Question))
}

// HandleFilters re-renders every panel that has filter widgets.
func (h *SSEHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	st, ok := h.open(w, r)
	if !ok {
		return
	}
	st.clients()
	st.promo()
	st.details()
	st.trend()
}

// HandleRefreshAll computes every panel at once and patches them in one stream.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	st, ok := h.open(w, r)
	if !ok {
		return
	}

	snap, err := st.dash.Snapshot(r.Context(), services.SnapshotRequest{
		ClientFilters:  st.signals.Clients.set(),
		PromoFilters:   st.signals.Promo.set(),
		DetailFilters:  st.signals.Details.set(),
		TrendFilters:   st.signals.Trend.set(),
		Unit:           st.signals.Unit,
		Period:         st.signals.Period,
		TrendDimension: st.signals.Trend.dimension(),
		DetailLimit:    st.limit,
	})
	if err != nil {
		st.patch("status", statusMessage{Kind: "warning", Text: err.Error()})
		return
	}

	ds := st.dash.Dataset()
	st.patch("status", statusMessage{Kind: "success", Text: fmt.Sprintf("%s · %s행", ds.Name, humanize.Comma(int64(len(ds.Rows))))})
	st.patch("overview", snap.Overview)
	st.patch("clients", snap.ClientTotals)
	st.patch("bands", snap.Bands)
	st.patch("promo", snap.Promo)
	st.patch("details", snap.Details)
	st.patch("trend", snap.Trend)

	st.signalsPatch(map[string]any{
		"options":     snap.Options,
		"monthlyData": snap.MonthlyTotals,
		"period":      snap.Bands.Period,
		"bandsData":   snap.Bands,
		"trendData":   snap.Trend,
	})
}
