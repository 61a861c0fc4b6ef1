package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"pharma-dashboard/internal/dataset"
)

// ErrInvalidArgument marks a request the caller can fix.
var ErrInvalidArgument = errors.New("invalid argument")

// Settings are the tunables of the analytics service.
type Settings struct {
	PromoProduct string
	DetailLimit  int
	Ingest       dataset.Options
}

// Analytics owns the per-session uploads and hands out dashboards over them.
type Analytics struct {
	store        *Store
	promoProduct string
	detailLimit  int
	ingest       dataset.Options
	logger       *slog.Logger

	uploads      atomic.Int64
	rowsLoaded   atomic.Int64
	lastUploadAt atomic.Int64
}

func NewAnalytics(store *Store, settings Settings) *Analytics {
	if settings.Ingest.Logger == nil {
		settings.Ingest.Logger = slog.Default()
	}
	logger := settings.Ingest.Logger
	return &Analytics{
		store:        store,
		promoProduct: settings.PromoProduct,
		detailLimit:  settings.DetailLimit,
		ingest:       settings.Ingest,
		logger:       logger,
	}
}

// Load parses an upload and makes it the session's dataset. An empty upload
// clears the session and returns dataset.ErrEmpty.
func (a *Analytics) Load(ctx context.Context, sessionID string, r io.Reader, name string) (*dataset.Dataset, error) {
	start := time.Now()

	ds, err := dataset.Parse(ctx, r, name, a.ingest)
	if errors.Is(err, dataset.ErrEmpty) {
		a.store.Delete(sessionID)
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	a.store.Put(sessionID, ds)
	a.uploads.Add(1)
	a.rowsLoaded.Add(int64(len(ds.Rows)))
	a.lastUploadAt.Store(time.Now().Unix())

	a.logger.Info("dataset loaded",
		"session_id", sessionID,
		"name", name,
		"rows", len(ds.Rows),
		"duration", time.Since(start),
	)
	return ds, nil
}

// Dashboard returns the session's dashboard, or false when nothing was uploaded.
func (a *Analytics) Dashboard(sessionID string) (*Dashboard, bool) {
	ds, ok := a.store.Get(sessionID)
	if !ok {
		return nil, false
	}
	return NewDashboard(ds, a.promoProduct), true
}

// Clear forgets the session's dataset.
func (a *Analytics) Clear(sessionID string) {
	a.store.Delete(sessionID)
}

// DetailLimit caps detail rows sent to the browser. Exports are not capped.
func (a *Analytics) DetailLimit() int {
	return a.detailLimit
}

// Stats is for monitoring.
func (a *Analytics) Stats() map[string]any {
	var last any
	if ts := a.lastUploadAt.Load(); ts > 0 {
		last = time.Unix(ts, 0).UTC()
	}
	return map[string]any{
		"active_sessions": a.store.Len(),
		"uploads":         a.uploads.Load(),
		"rows_loaded":     a.rowsLoaded.Load(),
		"last_upload":     last,
		"promo_product":   a.promoProduct,
	}
}

// Shutdown drops all in-memory datasets.
func (a *Analytics) Shutdown(ctx context.Context) error {
	a.logger.Info("dropping session datasets", "sessions", a.store.Len())
	a.store.Purge()
	return nil
}
