package worker

import (
	"context"
	"time"

	"lspquotes-service/internal/application"
	"lspquotes-service/internal/domain"
	"lspquotes-service/internal/infrastructure/logx"

	"go.uber.org/zap"
)

// RefreshMsg asks for one refresh round. An empty ProviderID refreshes every
// active provider under normal rate limits.
type RefreshMsg struct {
	ChannelSizeSat int64
	ProviderID     string
	TraceID        string
}

// QuoteRefresher is the slice of PriceService the worker drives.
type QuoteRefresher interface {
	ForceRefresh(ctx context.Context, channelSizeSat int64, bypassRateLimit bool) ([]domain.Quote, error)
	ForceRefreshSingleProvider(ctx context.Context, providerID string, channelSizeSat int64) ([]domain.Quote, error)
}

var _ application.Worker = (*ChanWorker)(nil)

type ChanWorker struct {
	svc     QuoteRefresher
	jobs    <-chan RefreshMsg
	timeout time.Duration
}

func NewChanWorker(svc QuoteRefresher, jobs <-chan RefreshMsg, timeout time.Duration) *ChanWorker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChanWorker{svc: svc, jobs: jobs, timeout: timeout}
}

func (w *ChanWorker) Start(ctx context.Context) {
	log := logx.L().With(zap.String("worker", "chan"))
	for {
		select {
		case <-ctx.Done():
			log.Info("chan_worker.stop")
			return
		case m, ok := <-w.jobs:
			if !ok {
				log.Info("chan_worker.closed")
				return
			}
			w.processOne(ctx, m)
		}
	}
}

func (w *ChanWorker) processOne(ctx context.Context, m RefreshMsg) {
	if m.TraceID != "" {
		ctx = logx.WithTraceID(ctx, m.TraceID)
	}
	log := logx.WithFields(ctx).With(zap.Int64("channel_size_sat", m.ChannelSizeSat), zap.String("provider", m.ProviderID))
	defer func() {
		if r := recover(); r != nil {
			log.Warn("chan_worker.panic", zap.Any("r", r))
		}
	}()
	c, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	started := time.Now()
	var (
		quotes []domain.Quote
		err    error
	)
	if m.ProviderID != "" {
		quotes, err = w.svc.ForceRefreshSingleProvider(c, m.ProviderID, m.ChannelSizeSat)
	} else {
		quotes, err = w.svc.ForceRefresh(c, m.ChannelSizeSat, false)
	}
	if err != nil {
		log.Warn("chan_worker.refresh_failed", zap.Error(err))
		return
	}
	live := 0
	for _, q := range quotes {
		if q.Provenance == domain.ProvenanceLive {
			live++
		}
	}
	log.Info("chan_worker.refresh_done",
		zap.Int("quotes", len(quotes)),
		zap.Int("live", live),
		zap.Duration("took", time.Since(started)),
	)
}
