package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"lspquotes-service/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

var at = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func snapshot() domain.Snapshot {
	a := domain.Provider{ID: "a", Name: "Alpha"}
	b := domain.Provider{ID: "b", Name: "Beta"}
	c := domain.Provider{ID: "c", Name: "Gamma"}
	quotes := []domain.Quote{
		domain.NewLiveQuote(a, 2_000_000, domain.OrderQuote{TotalFeeMsat: 12_000}, at),
		domain.NewLiveQuote(b, 2_000_000, domain.OrderQuote{TotalFeeMsat: 9_000}, at.Add(-time.Hour)).AsCached(at),
		domain.NewUnavailableQuote(c, 2_000_000, domain.KindTimeout, "", "", at),
	}
	return domain.NewSnapshot(2_000_000, quotes, at)
}

func TestNewSnapshotEvent(t *testing.T) {
	ev := NewSnapshotEvent(snapshot())
	require.Equal(t, 3, ev.ProviderCount)
	require.Equal(t, 1, ev.LiveCount)
	require.Equal(t, "b", ev.BestProviderID)
	require.Equal(t, int64(9_000), ev.BestFeeMsat)
}

func TestKafkaPublisher_KeyedByChannelSize(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w, timeout: time.Second, now: func() time.Time { return at }}

	require.NoError(t, p.PublishSnapshot(context.Background(), snapshot()))
	require.Len(t, w.msgs, 1)
	require.Equal(t, "2000000", string(w.msgs[0].Key))
	require.Equal(t, at, w.msgs[0].Time)

	var ev SnapshotEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	require.Equal(t, int64(2_000_000), ev.ChannelSizeSat)
	require.Len(t, ev.Quotes, 3)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{writer: &recordingWriter{err: boom}, timeout: time.Second, now: time.Now}
	require.ErrorIs(t, p.PublishSnapshot(context.Background(), snapshot()), boom)
}
