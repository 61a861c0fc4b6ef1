package services

import (
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"pharma-dashboard/internal/dataset"
)

// Store keeps each session's uploaded dataset in memory until it expires or
// is pushed out by newer sessions. Nothing is written to disk.
type Store struct {
	datasets *expirable.LRU[string, *dataset.Dataset]
	logger   *slog.Logger
}

func NewStore(capacity int, ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{logger: logger}
	s.datasets = expirable.NewLRU[string, *dataset.Dataset](capacity, func(id string, ds *dataset.Dataset) {
		s.logger.Debug("session dataset evicted", "session_id", id, "rows", len(ds.Rows))
	}, ttl)
	return s
}

func (s *Store) Put(id string, ds *dataset.Dataset) {
	s.datasets.Add(id, ds)
}

func (s *Store) Get(id string) (*dataset.Dataset, bool) {
	if id == "" {
		return nil, false
	}
	return s.datasets.Get(id)
}

func (s *Store) Delete(id string) {
	s.datasets.Remove(id)
}

func (s *Store) Len() int {
	return s.datasets.Len()
}

// Purge drops every dataset. Used on shutdown.
func (s *Store) Purge() {
	s.datasets.Purge()
}
