package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultPGMaxConns      = 5
	DefaultPGMinConns      = 1

	DefaultProviderTimeout = 10 * time.Second
	DefaultBatchTimeout    = 15 * time.Second
	DefaultRequestTimeout  = 8 * time.Second
	DefaultFetchAttempts   = 2
	DefaultRetryDelay      = 500 * time.Millisecond
	DefaultCooldown        = 5 * time.Second
	DefaultHistoryLimit    = 500
	DefaultFreshness       = time.Hour
	DefaultFallbackTTL     = 24 * time.Hour
	DefaultRefreshEvery    = 5 * time.Minute
	DefaultRefreshGateTTL  = 30 * time.Second
)

// DefaultChannelSizes are the buckets refreshed by the worker.
var DefaultChannelSizes = []int64{1_000_000, 2_000_000, 5_000_000, 10_000_000}
