package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lspquotes-service/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

type FetchConfig struct {
	ProviderTimeout time.Duration
	BatchTimeout    time.Duration
	Attempts        int
	RetryDelay      time.Duration
}

func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		ProviderTimeout: 10 * time.Second,
		BatchTimeout:    15 * time.Second,
		Attempts:        2,
		RetryDelay:      500 * time.Millisecond,
	}
}

// fetchState is the per-provider progression inside one round.
type fetchState int

const (
	stateAttempting fetchState = iota
	stateSuccess
	stateFallbackToCache
	stateCacheHit
	stateCacheMiss
)

func (s fetchState) String() string {
	switch s {
	case stateAttempting:
		return "attempting"
	case stateSuccess:
		return "success"
	case stateFallbackToCache:
		return "fallback_to_cache"
	case stateCacheHit:
		return "cache_hit"
	case stateCacheMiss:
		return "cache_miss"
	default:
		return "unknown"
	}
}

// Orchestrator fans a quote request out to every active provider.
// It never fails: each provider yields exactly one Quote.
type Orchestrator struct {
	providers []domain.Provider
	client    LSPClient
	limiter   RateLimiter
	store     CacheStore
	fallback  *FallbackCache
	cfg       FetchConfig
	clock     Clock
	log       *zap.Logger
	metrics   Metrics
}

type OrchestratorOption func(*Orchestrator)

func WithOrchestratorClock(c Clock) OrchestratorOption {
	return func(o *Orchestrator) { o.clock = c }
}
func WithOrchestratorLogger(l *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = l }
}
func WithMetrics(m Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}
func WithFallbackCache(c *FallbackCache) OrchestratorOption {
	return func(o *Orchestrator) { o.fallback = c }
}

func NewOrchestrator(providers []domain.Provider, client LSPClient, limiter RateLimiter, store CacheStore, cfg FetchConfig, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		providers: providers,
		client:    client,
		limiter:   limiter,
		store:     store,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = realClock{}
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.metrics == nil {
		o.metrics = NopMetrics{}
	}
	if o.cfg.Attempts <= 0 {
		o.cfg.Attempts = 1
	}
	return o
}

// Active returns the active providers in configured order.
func (o *Orchestrator) Active() []domain.Provider {
	return domain.ActiveProviders(o.providers)
}

// FetchAll returns one quote per active provider, in configured order.
func (o *Orchestrator) FetchAll(ctx context.Context, channelSizeSat int64, bypassRateLimit bool) []domain.Quote {
	active := o.Active()
	if len(active) == 0 {
		return nil
	}
	prior := o.Prior(ctx, channelSizeSat)

	bctx := ctx
	if o.cfg.BatchTimeout > 0 {
		var cancel context.CancelFunc
		bctx, cancel = context.WithTimeout(ctx, o.cfg.BatchTimeout)
		defer cancel()
	}

	type result struct {
		idx int
		q   domain.Quote
	}
	// buffered so late finishers never block once the batch is abandoned
	results := make(chan result, len(active))
	for i, p := range active {
		go func(i int, p domain.Provider) {
			defer func() {
				if r := recover(); r != nil {
					o.log.Error("orchestrator.provider_panic", zap.String("provider", p.ID), zap.Any("panic", r))
					results <- result{i, o.fallbackQuote(p, channelSizeSat, prior,
						domain.NewQuoteError(domain.KindUnknown, fmt.Sprintf("panic: %v", r), nil))}
				}
			}()
			results <- result{i, o.FetchOne(bctx, p, channelSizeSat, bypassRateLimit, prior)}
		}(i, p)
	}

	out := make([]domain.Quote, len(active))
	done := make([]bool, len(active))
	for remaining := len(active); remaining > 0; {
		select {
		case r := <-results:
			out[r.idx], done[r.idx] = r.q, true
			remaining--
		case <-bctx.Done():
			for i, p := range active {
				if !done[i] {
					o.log.Warn("orchestrator.batch_deadline", zap.String("provider", p.ID), zap.Int64("channel_size_sat", channelSizeSat))
					out[i] = o.fallbackQuote(p, channelSizeSat, prior,
						domain.NewQuoteError(domain.KindTimeout, "batch deadline reached", bctx.Err()))
				}
			}
			remaining = 0
		}
	}

	o.log.Info("orchestrator.round_done",
		zap.Int64("channel_size_sat", channelSizeSat),
		zap.Int("providers", len(active)),
		zap.Int("live", countLive(out)),
		zap.Bool("bypass_rate_limit", bypassRateLimit))
	return out
}

// FetchOne runs the per-provider state machine. prior supplies the cache
// fallback; pass nil to look it up from the store.
func (o *Orchestrator) FetchOne(ctx context.Context, p domain.Provider, channelSizeSat int64, bypassRateLimit bool, prior []domain.Quote) domain.Quote {
	started := time.Now()
	var (
		order domain.OrderQuote
		err   error
		out   domain.Quote
	)
	state := stateAttempting
	for {
		switch state {
		case stateAttempting:
			order, err = o.attempt(ctx, p, channelSizeSat, bypassRateLimit)
			if err == nil && order.TotalFeeMsat > 0 {
				state = stateSuccess
			} else {
				if err == nil {
					err = domain.NewQuoteError(domain.KindSchemaMismatch, "non-positive fee", nil)
				}
				state = stateFallbackToCache
			}
		case stateSuccess:
			out = domain.NewLiveQuote(p, channelSizeSat, order, o.clock.Now())
			o.log.Debug("orchestrator.provider_live",
				zap.String("provider", p.ID), zap.Int64("channel_size_sat", channelSizeSat),
				zap.Int64("total_fee_msat", order.TotalFeeMsat), zap.String("strategy", order.Strategy))
			o.metrics.ObserveFetch(p.ID, out.Provenance, "", time.Since(started))
			return out
		case stateFallbackToCache:
			if prior == nil {
				prior = o.Prior(ctx, channelSizeSat)
			}
			out = o.fallbackQuote(p, channelSizeSat, prior, err)
			if out.Provenance == domain.ProvenanceCached {
				state = stateCacheHit
			} else {
				state = stateCacheMiss
			}
		case stateCacheHit, stateCacheMiss:
			o.log.Warn("orchestrator.provider_failed",
				zap.String("provider", p.ID), zap.Int64("channel_size_sat", channelSizeSat),
				zap.String("error_kind", string(domain.ClassifyError(err))),
				zap.String("outcome", state.String()), zap.Error(err))
			o.metrics.ObserveFetch(p.ID, out.Provenance, domain.ClassifyError(err), time.Since(started))
			return out
		}
	}
}

// attempt rate limits, then performs get_info + create_order under the
// per-provider deadline with a fixed number of retries for transient kinds.
func (o *Orchestrator) attempt(ctx context.Context, p domain.Provider, channelSizeSat int64, bypassRateLimit bool) (domain.OrderQuote, error) {
	if !bypassRateLimit && o.limiter != nil {
		if err := o.limiter.Wait(ctx, p); err != nil {
			return domain.OrderQuote{}, domain.NewQuoteError(domain.KindTimeout, "rate limiter wait aborted", err)
		}
	}

	pctx := ctx
	if o.cfg.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, o.cfg.ProviderTimeout)
		defer cancel()
	}

	var order domain.OrderQuote
	n := 0
	op := func() error {
		n++
		caps, err := o.client.GetInfo(pctx, p)
		if err == nil {
			order, err = o.client.CreateOrder(pctx, p, channelSizeSat, caps)
		}
		if err == nil {
			return nil
		}
		if pctx.Err() != nil || !domain.ClassifyError(err).Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(o.cfg.RetryDelay), uint64(o.cfg.Attempts-1)),
		pctx)
	err := backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		o.log.Debug("orchestrator.retry", zap.String("provider", p.ID), zap.Int("attempt", n),
			zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil && domain.ClassifyError(err) == domain.KindTimeout {
		var qe *domain.QuoteError
		if !errors.As(err, &qe) {
			err = domain.NewQuoteError(domain.KindTimeout, fmt.Sprintf("no answer within %s", o.cfg.ProviderTimeout), err)
		}
	}
	return order, err
}

// fallbackQuote resolves a failed provider to its most recent usable cached
// quote, or to an unavailable quote carrying the classified error.
func (o *Orchestrator) fallbackQuote(p domain.Provider, channelSizeSat int64, prior []domain.Quote, cause error) domain.Quote {
	now := o.clock.Now()
	if q, ok := domain.IndexByProvider(prior)[p.ID]; ok && q.Valid() {
		return q.AsCached(now)
	}
	qe := domain.AsQuoteError(cause)
	if qe == nil {
		qe = domain.NewQuoteError(domain.KindUnknown, "", nil)
	}
	return domain.NewUnavailableQuote(p, channelSizeSat, qe.Kind, qe.Message, qe.Raw, now)
}

// Prior loads the current snapshot for the channel size, preferring the
// store and using the in-process fallback only when the store errors.
func (o *Orchestrator) Prior(ctx context.Context, channelSizeSat int64) []domain.Quote {
	if o.store != nil {
		quotes, err := o.store.ReadCurrent(ctx, channelSizeSat)
		if err == nil {
			return quotes
		}
		if !errors.Is(err, ErrStoreNotConfigured) {
			o.log.Warn("orchestrator.store_read_failed", zap.Int64("channel_size_sat", channelSizeSat), zap.Error(err))
		}
	}
	if o.fallback != nil {
		if quotes, ok := o.fallback.Get(channelSizeSat); ok {
			return quotes
		}
	}
	return nil
}
