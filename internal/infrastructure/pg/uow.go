package pg

import (
	"context"

	"lspquotes-service/internal/application"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txKey struct{}

func txFromCtx(ctx context.Context) pgx.Tx {
	if v := ctx.Value(txKey{}); v != nil {
		if tx, ok := v.(pgx.Tx); ok {
			return tx
		}
	}
	return nil
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// conn returns the transaction bound to ctx, or the pool.
func conn(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx := txFromCtx(ctx); tx != nil {
		return tx
	}
	return pool
}

var _ application.UnitOfWork = (*UnitOfWork)(nil)

type UnitOfWork struct {
	Pool *pgxpool.Pool
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := u.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
