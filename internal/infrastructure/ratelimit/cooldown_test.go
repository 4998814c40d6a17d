package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"lspquotes-service/internal/domain"
	"lspquotes-service/internal/infrastructure/ratelimit"

	"github.com/stretchr/testify/require"
)

func TestCooldown_FirstCallImmediate(t *testing.T) {
	c := ratelimit.NewCooldown(time.Second)
	p := domain.Provider{ID: "a"}

	st, _ := c.State("a")
	require.Equal(t, ratelimit.StateAvailable, st)

	start := time.Now()
	require.NoError(t, c.Wait(context.Background(), p))
	require.Less(t, time.Since(start), 50*time.Millisecond)

	st, remaining := c.State("a")
	require.Equal(t, ratelimit.StateCooling, st)
	require.Greater(t, remaining, 500*time.Millisecond)
	_, ok := c.LastRequest("a")
	require.True(t, ok)
}

func TestCooldown_SecondCallWaitsRemaining(t *testing.T) {
	c := ratelimit.NewCooldown(time.Hour)
	p := domain.Provider{ID: "a", Cooldown: 200 * time.Millisecond}

	require.NoError(t, c.Wait(context.Background(), p))
	start := time.Now()
	require.NoError(t, c.Wait(context.Background(), p))
	waited := time.Since(start)
	require.GreaterOrEqual(t, waited, 150*time.Millisecond)
	require.Less(t, waited, time.Second)
}

func TestCooldown_ProvidersIndependent(t *testing.T) {
	c := ratelimit.NewCooldown(time.Hour)
	require.NoError(t, c.Wait(context.Background(), domain.Provider{ID: "a"}))

	start := time.Now()
	require.NoError(t, c.Wait(context.Background(), domain.Provider{ID: "b"}))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestCooldown_WaitHonoursContext(t *testing.T) {
	c := ratelimit.NewCooldown(time.Hour)
	p := domain.Provider{ID: "a"}
	require.NoError(t, c.Wait(context.Background(), p))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, c.Wait(ctx, p))
}

func TestCooldown_ZeroCooldownNeverWaits(t *testing.T) {
	c := ratelimit.NewCooldown(0)
	p := domain.Provider{ID: "a"}
	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, c.Wait(context.Background(), p))
	}
	require.Less(t, time.Since(start), 50*time.Millisecond)
	st, _ := c.State("a")
	require.Equal(t, ratelimit.StateAvailable, st)
}
