package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lspquotes-service/internal/application"
	"lspquotes-service/internal/domain"
	"lspquotes-service/internal/infrastructure/logx"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const defaultHistoryLimit = 500

// SnapshotStore keeps current snapshots and capped history in Postgres.
// Writes run inside one UnitOfWork transaction.
type SnapshotStore struct {
	db           *DB
	uow          application.UnitOfWork
	historyLimit int
	now          func() time.Time
}

var _ application.CacheStore = (*SnapshotStore)(nil)

func NewSnapshotStore(db *DB, historyLimit int) *SnapshotStore {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &SnapshotStore{
		db:           db,
		uow:          &UnitOfWork{Pool: db.Pool},
		historyLimit: historyLimit,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *SnapshotStore) WriteSnapshot(ctx context.Context, channelSizeSat int64, quotes []domain.Quote) error {
	if quotes == nil {
		quotes = []domain.Quote{}
	}
	payload, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("encode quotes: %w", err)
	}
	now := s.now()
	log := logx.L().With(
		zap.String("repo", "snapshot"),
		zap.String("operation", "WriteSnapshot"),
		zap.Int64("channel_size_sat", channelSizeSat),
		zap.Int("quotes", len(quotes)),
	)
	log.Debug("sql.tx_start")

	err = s.uow.Do(ctx, func(ctx context.Context) error {
		q := conn(ctx, s.db.Pool)
		const up = `
        INSERT INTO quote_snapshots(channel_size_sat, quotes, provider_count, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (channel_size_sat) DO UPDATE
          SET quotes=EXCLUDED.quotes, provider_count=EXCLUDED.provider_count, updated_at=EXCLUDED.updated_at`
		if _, err := q.Exec(ctx, up, channelSizeSat, payload, len(quotes), now); err != nil {
			return err
		}
		const ins = `INSERT INTO quote_history(channel_size_sat, quotes, recorded_at) VALUES ($1, $2, $3)`
		if _, err := q.Exec(ctx, ins, channelSizeSat, payload, now); err != nil {
			return err
		}
		const trim = `
        DELETE FROM quote_history
        WHERE id NOT IN (SELECT id FROM quote_history ORDER BY id DESC LIMIT $1)`
		tag, err := q.Exec(ctx, trim, s.historyLimit)
		if err != nil {
			return err
		}
		log.Debug("sql.history_trimmed", zap.Int64("rows_affected", tag.RowsAffected()))
		return nil
	})
	if err != nil {
		log.Error("sql.tx_failed", zap.Error(err))
		return fmt.Errorf("%w: write snapshot %d: %w", application.ErrStoreUnavailable, channelSizeSat, err)
	}
	log.Debug("sql.tx_success")
	return nil
}

func (s *SnapshotStore) ReadCurrent(ctx context.Context, channelSizeSat int64) ([]domain.Quote, error) {
	const q = `SELECT quotes FROM quote_snapshots WHERE channel_size_sat=$1`
	var raw []byte
	err := conn(ctx, s.db.Pool).QueryRow(ctx, q, channelSizeSat).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return []domain.Quote{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read current %d: %w", application.ErrStoreUnavailable, channelSizeSat, err)
	}
	out := []domain.Quote{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode snapshot %d: %w", channelSizeSat, err)
	}
	return out, nil
}

// ReadHistory returns up to limit entries, newest first. limit <= 0 returns all.
func (s *SnapshotStore) ReadHistory(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	const q = `
        SELECT channel_size_sat, quotes, recorded_at
        FROM quote_history ORDER BY id DESC LIMIT $1`
	rows, err := conn(ctx, s.db.Pool).Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: read history: %w", application.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	out := make([]domain.HistoryEntry, 0, limit)
	for rows.Next() {
		var (
			e   domain.HistoryEntry
			raw []byte
		)
		if err := rows.Scan(&e.ChannelSizeSat, &raw, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if err := json.Unmarshal(raw, &e.Quotes); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read history: %w", application.ErrStoreUnavailable, err)
	}
	return out, nil
}

func (s *SnapshotStore) AvailableChannelSizes(ctx context.Context) ([]int64, error) {
	const q = `SELECT channel_size_sat FROM quote_snapshots ORDER BY channel_size_sat`
	rows, err := conn(ctx, s.db.Pool).Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: read channel sizes: %w", application.ErrStoreUnavailable, err)
	}
	sizes, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("%w: read channel sizes: %w", application.ErrStoreUnavailable, err)
	}
	return sizes, nil
}

func (s *SnapshotStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", application.ErrStoreUnavailable, err)
	}
	return nil
}
