package application

import (
	"context"
	"time"

	"lspquotes-service/internal/domain"
)

// CacheStore persists current snapshots per channel size plus a bounded history.
type CacheStore interface {
	WriteSnapshot(ctx context.Context, channelSizeSat int64, quotes []domain.Quote) error
	ReadCurrent(ctx context.Context, channelSizeSat int64) ([]domain.Quote, error)
	ReadHistory(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
	AvailableChannelSizes(ctx context.Context) ([]int64, error)
	Ping(ctx context.Context) error
}

// RateLimiter blocks until the provider may be called again.
type RateLimiter interface {
	Wait(ctx context.Context, p domain.Provider) error
}

// Metrics receives per-provider outcomes and store writes.
type Metrics interface {
	ObserveFetch(providerID string, provenance domain.Provenance, kind domain.ErrorKind, took time.Duration)
	ObserveStoreWrite(channelSizeSat int64, err error)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ObserveFetch(string, domain.Provenance, domain.ErrorKind, time.Duration) {}
func (NopMetrics) ObserveStoreWrite(int64, error) {}

// RefreshGate throttles background refreshes across processes.
type RefreshGate interface {
	// TryReserve returns true if key was free and is now held until it expires.
	TryReserve(ctx context.Context, key string) (bool, error)
}

// NoopGate always lets the refresh through.
type NoopGate struct{}

func (NoopGate) TryReserve(context.Context, string) (bool, error) { return true, nil }

// SnapshotPublisher announces snapshots that were just persisted.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, s domain.Snapshot) error
}

type NopPublisher struct{}

func (NopPublisher) PublishSnapshot(context.Context, domain.Snapshot) error { return nil }
