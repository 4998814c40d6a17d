package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"lspquotes-service/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultFreshness         = time.Hour
	defaultFallbackTTL       = 24 * time.Hour
	defaultBackgroundTimeout = 30 * time.Second
)

// PriceService is the entry point for quote reads and refreshes.
type PriceService struct {
	orch     *Orchestrator
	store    CacheStore
	fallback *FallbackCache
	clock    Clock
	log      *zap.Logger
	metrics  Metrics
	gate     RefreshGate
	pub      SnapshotPublisher

	freshness         time.Duration
	fallbackTTL       time.Duration
	backgroundTimeout time.Duration

	group singleflight.Group
	// background runs detached work; tests swap it for a synchronous runner.
	background func(fn func())
}

type Option func(*PriceService)

func WithClock(c Clock) Option { return func(s *PriceService) { s.clock = c } }
func WithLogger(l *zap.Logger) Option { return func(s *PriceService) { s.log = l } }
func WithFreshness(d time.Duration) Option { return func(s *PriceService) { s.freshness = d } }
func WithFallbackTTL(d time.Duration) Option { return func(s *PriceService) { s.fallbackTTL = d } }
func WithServiceMetrics(m Metrics) Option { return func(s *PriceService) { s.metrics = m } }
func WithRefreshGate(g RefreshGate) Option { return func(s *PriceService) { s.gate = g } }
func WithPublisher(p SnapshotPublisher) Option { return func(s *PriceService) { s.pub = p } }
func WithBackgroundTimeout(d time.Duration) Option {
	return func(s *PriceService) { s.backgroundTimeout = d }
}

// NewPriceService wires the orchestrator against the store. The orchestrator
// is built here so both share the same clock, logger and fallback cache.
func NewPriceService(providers []domain.Provider, client LSPClient, limiter RateLimiter, store CacheStore, cfg FetchConfig, opts ...Option) *PriceService {
	s := &PriceService{
		store:             store,
		freshness:         defaultFreshness,
		fallbackTTL:       defaultFallbackTTL,
		backgroundTimeout: defaultBackgroundTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = NopMetrics{}
	}
	if s.gate == nil {
		s.gate = NoopGate{}
	}
	if s.pub == nil {
		s.pub = NopPublisher{}
	}
	if s.background == nil {
		s.background = func(fn func()) { go fn() }
	}
	s.fallback = NewFallbackCache(s.fallbackTTL, s.clock)
	s.orch = NewOrchestrator(providers, client, limiter, store, cfg,
		WithOrchestratorClock(s.clock),
		WithOrchestratorLogger(s.log.Named("orchestrator")),
		WithMetrics(s.metrics),
		WithFallbackCache(s.fallback),
	)
	return s
}

// Providers returns every configured provider, active or not.
func (s *PriceService) Providers() []domain.Provider {
	return append([]domain.Provider(nil), s.orch.providers...)
}

// GetCachedOnly never touches the network. Every active provider gets one
// entry; providers without cached data are reported as CacheUnavailable.
func (s *PriceService) GetCachedOnly(ctx context.Context, channelSizeSat int64) ([]domain.Quote, error) {
	if err := domain.ValidateChannelSize(channelSizeSat); err != nil {
		return nil, err
	}
	return s.fillActive(channelSizeSat, s.readCurrent(ctx, channelSizeSat), ""), nil
}

// GetSmart returns cached data immediately and refreshes in the background.
// Entries younger than the freshness threshold are shown as live.
func (s *PriceService) GetSmart(ctx context.Context, channelSizeSat int64) ([]domain.Quote, error) {
	quotes, err := s.GetCachedOnly(ctx, channelSizeSat)
	if err != nil {
		return nil, err
	}
	s.refreshInBackground(ctx, channelSizeSat)

	now := s.clock.Now()
	for i, q := range quotes {
		if q.Provenance == domain.ProvenanceCached && q.Age(now) < s.freshness {
			quotes[i] = q.AsLive()
		}
	}
	return quotes, nil
}

// ForceRefresh runs a full round synchronously and persists the merged result.
func (s *PriceService) ForceRefresh(ctx context.Context, channelSizeSat int64, bypassRateLimit bool) ([]domain.Quote, error) {
	if err := domain.ValidateChannelSize(channelSizeSat); err != nil {
		return nil, err
	}
	return s.refresh(ctx, channelSizeSat, bypassRateLimit), nil
}

// ForceRefreshSingleProvider refreshes one provider, bypassing its rate limit,
// and merges the result into the existing snapshot.
func (s *PriceService) ForceRefreshSingleProvider(ctx context.Context, providerID string, channelSizeSat int64) ([]domain.Quote, error) {
	if err := domain.ValidateChannelSize(channelSizeSat); err != nil {
		return nil, err
	}
	p, ok := domain.FindProvider(s.orch.providers, providerID)
	if !ok || !p.Active {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}
	prior := s.orch.Prior(ctx, channelSizeSat)
	q := s.orch.FetchOne(ctx, p, channelSizeSat, true, prior)
	merged := MergeQuotes(s.orch.Active(), prior, []domain.Quote{q}, s.clock.Now())
	s.persist(ctx, channelSizeSat, merged)
	return s.fillActive(channelSizeSat, merged, p.ID), nil
}

// History returns up to limit entries, newest first; limit <= 0 means all
// retained. A missing or unreachable store reads as no history.
func (s *PriceService) History(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	h, err := s.store.ReadHistory(ctx, limit)
	if err != nil {
		s.logReadFailure("history", err)
		return []domain.HistoryEntry{}, nil
	}
	return h, nil
}

// ChannelSizes lists the channel sizes that have a stored snapshot.
func (s *PriceService) ChannelSizes(ctx context.Context) ([]int64, error) {
	sizes, err := s.store.AvailableChannelSizes(ctx)
	if err != nil {
		s.logReadFailure("channel_sizes", err)
		return []int64{}, nil
	}
	return sizes, nil
}

func (s *PriceService) logReadFailure(what string, err error) {
	if errors.Is(err, ErrStoreNotConfigured) {
		return
	}
	s.log.Warn("service.store_read_failed", zap.String("read", what), zap.Error(err))
}

// Ready reports whether the store answers. Running without a store is ready.
func (s *PriceService) Ready(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil && !errors.Is(err, ErrStoreNotConfigured) {
		return err
	}
	return nil
}

func (s *PriceService) refresh(ctx context.Context, channelSizeSat int64, bypassRateLimit bool) []domain.Quote {
	prior := s.orch.Prior(ctx, channelSizeSat)
	fresh := s.orch.FetchAll(ctx, channelSizeSat, bypassRateLimit)
	merged := MergeQuotes(s.orch.Active(), prior, fresh, s.clock.Now())
	s.persist(ctx, channelSizeSat, merged)
	return merged
}

// persist writes only rounds holding at least one usable quote, so a
// failed round never replaces good data with errors.
func (s *PriceService) persist(ctx context.Context, channelSizeSat int64, quotes []domain.Quote) {
	s.fallback.Put(channelSizeSat, quotes)
	if !hasValid(quotes) {
		s.log.Info("service.persist_skipped", zap.Int64("channel_size_sat", channelSizeSat))
		return
	}
	err := s.store.WriteSnapshot(ctx, channelSizeSat, quotes)
	s.metrics.ObserveStoreWrite(channelSizeSat, err)
	if err != nil && !errors.Is(err, ErrStoreNotConfigured) {
		s.log.Warn("service.persist_failed", zap.Int64("channel_size_sat", channelSizeSat), zap.Error(err))
		return
	}
	snap := domain.NewSnapshot(channelSizeSat, quotes, s.clock.Now())
	if err := s.pub.PublishSnapshot(ctx, snap); err != nil {
		s.log.Warn("service.publish_failed", zap.Int64("channel_size_sat", channelSizeSat), zap.Error(err))
	}
}

func (s *PriceService) refreshInBackground(ctx context.Context, channelSizeSat int64) {
	detached := context.WithoutCancel(ctx)
	key := strconv.FormatInt(channelSizeSat, 10)
	s.background(func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("service.background_panic", zap.Int64("channel_size_sat", channelSizeSat), zap.Any("panic", r))
			}
		}()
		_, _, shared := s.group.Do(key, func() (any, error) {
			ctx, cancel := context.WithTimeout(detached, s.backgroundTimeout)
			defer cancel()
			ok, err := s.gate.TryReserve(ctx, "refresh:"+key)
			if err != nil {
				s.log.Warn("service.refresh_gate_failed", zap.Int64("channel_size_sat", channelSizeSat), zap.Error(err))
			} else if !ok {
				return nil, nil
			}
			return s.refresh(ctx, channelSizeSat, false), nil
		})
		if shared {
			s.log.Debug("service.background_refresh_shared", zap.Int64("channel_size_sat", channelSizeSat))
		}
	})
}

// readCurrent prefers the store; the fallback cache is used only on store errors.
func (s *PriceService) readCurrent(ctx context.Context, channelSizeSat int64) []domain.Quote {
	quotes, err := s.store.ReadCurrent(ctx, channelSizeSat)
	if err == nil {
		return quotes
	}
	s.logReadFailure("current", err)
	if fb, ok := s.fallback.Get(channelSizeSat); ok {
		return fb
	}
	return nil
}

// fillActive orders quotes by configured provider order and synthesizes
// CacheUnavailable for gaps. Every usable entry except fetchedID's is served
// from cache, so it is tagged cached with staleness relative to now.
func (s *PriceService) fillActive(channelSizeSat int64, quotes []domain.Quote, fetchedID string) []domain.Quote {
	now := s.clock.Now()
	byID := domain.IndexByProvider(quotes)
	active := s.orch.Active()
	out := make([]domain.Quote, 0, len(active))
	for _, p := range active {
		q, ok := byID[p.ID]
		switch {
		case !ok:
			out = append(out, domain.NewUnavailableQuote(p, channelSizeSat, domain.KindCacheUnavailable, "", "", now))
		case q.Valid() && p.ID != fetchedID:
			out = append(out, q.AsCached(now))
		default:
			out = append(out, q)
		}
	}
	return out
}
