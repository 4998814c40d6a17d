package redisstore

import (
	"context"

	"lspquotes-service/internal/application"
	"lspquotes-service/internal/domain"
)

// Unconfigured stands in when no backend is set up: reads are empty and
// every call reports application.ErrStoreNotConfigured.
type Unconfigured struct{}

var _ application.CacheStore = Unconfigured{}

func (Unconfigured) WriteSnapshot(context.Context, int64, []domain.Quote) error {
	return application.ErrStoreNotConfigured
}

func (Unconfigured) ReadCurrent(context.Context, int64) ([]domain.Quote, error) {
	return []domain.Quote{}, application.ErrStoreNotConfigured
}

func (Unconfigured) ReadHistory(context.Context, int) ([]domain.HistoryEntry, error) {
	return []domain.HistoryEntry{}, application.ErrStoreNotConfigured
}

func (Unconfigured) AvailableChannelSizes(context.Context) ([]int64, error) {
	return []int64{}, application.ErrStoreNotConfigured
}

func (Unconfigured) Ping(context.Context) error { return application.ErrStoreNotConfigured }
