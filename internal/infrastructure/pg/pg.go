package pg

import (
	"context"
	"fmt"
	"time"

	infraconfig "lspquotes-service/internal/infrastructure/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct{ Pool *pgxpool.Pool }

func Connect(ctx context.Context, url string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns, cfg.MinConns = infraconfig.DefaultPGMaxConns, infraconfig.DefaultPGMinConns
	cfg.MaxConnIdleTime = 2 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Open connects and brings the schema up to date.
func Open(ctx context.Context, url string) (*DB, error) {
	db, err := Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close()                         { d.Pool.Close() }
func (d *DB) Ping(ctx context.Context) error { return d.Pool.Ping(ctx) }
