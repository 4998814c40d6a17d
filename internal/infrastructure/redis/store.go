package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"lspquotes-service/internal/application"
	"lspquotes-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "lspquotes:"
	sizesKey   = keyPrefix + "sizes"
	historyKey = keyPrefix + "history"

	DefaultHistoryLimit = 500
)

func currentKey(channelSizeSat int64) string {
	return keyPrefix + "current:" + strconv.FormatInt(channelSizeSat, 10)
}

// Store keeps one JSON snapshot per channel size and a capped history list,
// newest first.
type Store struct {
	Client       *redis.Client
	HistoryLimit int
	Now          func() time.Time
}

var _ application.CacheStore = (*Store)(nil)

func New(client *redis.Client, historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Store{Client: client, HistoryLimit: historyLimit, Now: func() time.Time { return time.Now().UTC() }}
}

// WriteSnapshot replaces the current record and appends history in one
// MULTI/EXEC, so neither is visible without the other.
func (s *Store) WriteSnapshot(ctx context.Context, channelSizeSat int64, quotes []domain.Quote) error {
	now := s.Now()
	cur, err := json.Marshal(domain.NewSnapshot(channelSizeSat, quotes, now))
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	hist, err := json.Marshal(domain.HistoryEntry{Timestamp: now, ChannelSizeSat: channelSizeSat, Quotes: quotes})
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	_, err = s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, currentKey(channelSizeSat), cur, 0)
		pipe.SAdd(ctx, sizesKey, channelSizeSat)
		pipe.LPush(ctx, historyKey, hist)
		pipe.LTrim(ctx, historyKey, 0, int64(s.HistoryLimit-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: write snapshot %d: %w", application.ErrStoreUnavailable, channelSizeSat, err)
	}
	return nil
}

// ReadCurrent returns the stored quotes, or an empty slice when nothing was written yet.
func (s *Store) ReadCurrent(ctx context.Context, channelSizeSat int64) ([]domain.Quote, error) {
	raw, err := s.Client.Get(ctx, currentKey(channelSizeSat)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []domain.Quote{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read current %d: %w", application.ErrStoreUnavailable, channelSizeSat, err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %d: %w", channelSizeSat, err)
	}
	if snap.Quotes == nil {
		return []domain.Quote{}, nil
	}
	return snap.Quotes, nil
}

// ReadHistory returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) ReadHistory(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	raws, err := s.Client.LRange(ctx, historyKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read history: %w", application.ErrStoreUnavailable, err)
	}
	out := make([]domain.HistoryEntry, 0, len(raws))
	for _, raw := range raws {
		var e domain.HistoryEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) AvailableChannelSizes(ctx context.Context) ([]int64, error) {
	members, err := s.Client.SMembers(ctx, sizesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read channel sizes: %w", application.ErrStoreUnavailable, err)
	}
	out := make([]int64, 0, len(members))
	for _, m := range members {
		n, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", application.ErrStoreUnavailable, err)
	}
	return nil
}
