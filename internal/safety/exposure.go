package safety

import (
	"context"
	"sync"
)

// Snapshot is a point-in-time view of committed capital.
type Snapshot struct {
	TotalUSD  float64            `json:"total_usd"`
	PerMarket map[string]float64 `json:"per_market"`
}

// ExposureStore tracks capital committed per market and in aggregate.
// Commit is called only after the upstream platform confirms an order,
// never speculatively.
type ExposureStore interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	Commit(ctx context.Context, tokenID string, sizeUSD float64) error
}

// MemoryExposureStore is the in-process fallback used when Redis is not
// configured.
type MemoryExposureStore struct {
	mu        sync.RWMutex
	total     float64
	perMarket map[string]float64
}

func NewMemoryExposureStore() *MemoryExposureStore {
	return &MemoryExposureStore{
		perMarket: make(map[string]float64),
	}
}

func (s *MemoryExposureStore) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	per := make(map[string]float64, len(s.perMarket))
	for k, v := range s.perMarket {
		per[k] = v
	}
	return Snapshot{TotalUSD: s.total, PerMarket: per}, nil
}

func (s *MemoryExposureStore) Commit(ctx context.Context, tokenID string, sizeUSD float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total += sizeUSD
	s.perMarket[tokenID] += sizeUSD
	return nil
}
