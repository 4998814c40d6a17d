package worker

import (
	"context"
	"time"

	"lspquotes-service/internal/application"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ application.Worker = (*Scheduler)(nil)

// Scheduler enqueues one refresh per channel size on every tick, starting
// with an immediate round.
type Scheduler struct {
	ChannelSizes []int64
	Jobs         chan<- RefreshMsg

	Every time.Duration
	Log   *zap.Logger
}

func (s *Scheduler) Start(ctx context.Context) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	if s.Every <= 0 {
		s.Every = 5 * time.Minute
	}

	t := time.NewTicker(s.Every)
	defer t.Stop()

	log.Info("scheduler_started", zap.Duration("every", s.Every), zap.Int64s("channel_sizes", s.ChannelSizes))
	s.tick(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler_stopped")
			return
		case <-t.C:
			s.tick(ctx, log)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, log *zap.Logger) {
	for _, size := range s.ChannelSizes {
		msg := RefreshMsg{ChannelSizeSat: size, TraceID: uuid.NewString()}
		select {
		case <-ctx.Done():
			return
		case s.Jobs <- msg:
		default:
			// previous round for this size has not drained yet
			log.Warn("scheduler.queue_full", zap.Int64("channel_size_sat", size))
		}
	}
}
