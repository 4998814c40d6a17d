package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testProvider = Provider{ID: "olympus", Name: "Olympus", Active: true}

func TestQuoteInvariants(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	live := NewLiveQuote(testProvider, 1_000_000, OrderQuote{TotalFeeMsat: 12000}, at)
	require.Equal(t, ProvenanceLive, live.Provenance)
	require.True(t, live.Valid())
	require.Empty(t, live.ErrorKind)

	un := NewUnavailableQuote(testProvider, 1_000_000, "", "", "", at)
	require.Equal(t, ProvenanceUnavailable, un.Provenance)
	require.Equal(t, KindUnknown, un.ErrorKind)
	require.Equal(t, KindUnknown.Message(), un.ErrorMessage)
	require.Zero(t, un.TotalFeeMsat)
	require.False(t, un.Valid())
}

func TestAsCached_ComputesStaleness(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	q := NewLiveQuote(testProvider, 2_000_000, OrderQuote{TotalFeeMsat: 5000}, at)

	c := q.AsCached(at.Add(90 * time.Second))
	require.Equal(t, ProvenanceCached, c.Provenance)
	require.NotNil(t, c.StaleSeconds)
	require.Equal(t, int64(90), *c.StaleSeconds)
	require.Equal(t, at, c.ObservedAt)
	require.True(t, c.Valid())

	back := c.AsLive()
	require.Equal(t, ProvenanceLive, back.Provenance)
	require.Nil(t, back.StaleSeconds)
}

func TestValidateChannelSize(t *testing.T) {
	require.NoError(t, ValidateChannelSize(1_000_000))
	require.ErrorIs(t, ValidateChannelSize(0), ErrInvalidChannelSize)
	require.ErrorIs(t, ValidateChannelSize(-5), ErrInvalidChannelSize)
	require.ErrorIs(t, ValidateChannelSize(MaxChannelSizeSat+1), ErrInvalidChannelSize)
}

func TestChannelBounds_FallsBackToLSPBalance(t *testing.T) {
	min, max := Capabilities{MinInitialLSPBalanceSat: 10, MaxInitialLSPBalanceSat: 20}.ChannelBounds()
	require.Equal(t, int64(10), min)
	require.Equal(t, int64(20), max)

	min, max = Capabilities{MinChannelBalanceSat: 1, MaxChannelBalanceSat: 2, MinInitialLSPBalanceSat: 10}.ChannelBounds()
	require.Equal(t, int64(1), min)
	require.Equal(t, int64(2), max)
}
