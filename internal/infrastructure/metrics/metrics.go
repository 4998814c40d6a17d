package metrics

import (
	"strconv"
	"time"

	"lspquotes-service/internal/application"
	"lspquotes-service/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// QuoteMetrics records per-provider fetch outcomes and snapshot writes.
type QuoteMetrics struct {
	FetchTotal    *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	StoreWrites   *prometheus.CounterVec
	LastWrite     *prometheus.GaugeVec
}

var _ application.Metrics = (*QuoteMetrics)(nil)

// NewQuoteMetrics registers the collectors on reg; nil means the default registerer.
func NewQuoteMetrics(reg prometheus.Registerer) *QuoteMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &QuoteMetrics{
		FetchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lspquotes_fetch_total",
				Help: "Provider quote fetches by outcome",
			},
			[]string{"provider", "provenance", "error_kind"},
		),
		FetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lspquotes_fetch_duration_seconds",
				Help:    "Time spent resolving one provider in a round",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"provider"},
		),
		StoreWrites: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lspquotes_store_writes_total",
				Help: "Snapshot writes by result",
			},
			[]string{"channel_size_sat", "result"},
		),
		LastWrite: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lspquotes_last_write_timestamp_seconds",
				Help: "Unix time of the last successful snapshot write",
			},
			[]string{"channel_size_sat"},
		),
	}
}

func (m *QuoteMetrics) ObserveFetch(providerID string, provenance domain.Provenance, kind domain.ErrorKind, took time.Duration) {
	m.FetchTotal.WithLabelValues(providerID, string(provenance), string(kind)).Inc()
	m.FetchDuration.WithLabelValues(providerID).Observe(took.Seconds())
}

func (m *QuoteMetrics) ObserveStoreWrite(channelSizeSat int64, err error) {
	size := strconv.FormatInt(channelSizeSat, 10)
	if err != nil {
		m.StoreWrites.WithLabelValues(size, "error").Inc()
		return
	}
	m.StoreWrites.WithLabelValues(size, "ok").Inc()
	m.LastWrite.WithLabelValues(size).SetToCurrentTime()
}
