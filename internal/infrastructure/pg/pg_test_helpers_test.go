package pg_test

import (
	"context"
	"os"
	"testing"
	"time"

	"lspquotes-service/internal/infrastructure/pg"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// withPostgres starts a throwaway Postgres, migrated, torn down with the test.
func withPostgres(t *testing.T) *pg.DB {
	t.Helper()
	if os.Getenv("TESTCONTAINERS") == "" {
		t.Skip("set TESTCONTAINERS=1 to run containerized PG tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, err := postgres.RunContainer(ctx,
		postgres.WithDatabase("lspquotes"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := pg.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}
