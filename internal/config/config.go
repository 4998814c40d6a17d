package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	infraconfig "lspquotes-service/internal/infrastructure/config"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port            string
	ShutdownTimeout time.Duration
	Storage         string
	DatabaseURL     string
	// Fetching
	ProviderTimeout time.Duration
	BatchTimeout    time.Duration
	RequestTimeout  time.Duration
	FetchAttempts   int
	RetryDelay      time.Duration
	DefaultCooldown time.Duration
	ClientPubkey    string
	ProvidersFile   string
	// Cache
	HistoryLimit   int
	Freshness      time.Duration
	FallbackTTL    time.Duration
	RefreshGateTTL time.Duration
	// Worker
	ChannelSizes []int64
	RefreshEvery time.Duration
	// Events
	KafkaBrokers []string
	KafkaTopic   string
	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func msDef(key string, def time.Duration) time.Duration {
	return time.Duration(atoiDef(getEnv(key, ""), int(def/time.Millisecond))) * time.Millisecond
}

// sizesDef parses a comma separated list of satoshi amounts, skipping junk.
func sizesDef(s string, def []int64) []int64 {
	if strings.TrimSpace(s) == "" {
		return def
	}
	var out []int64
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || n <= 0 {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// listDef splits a comma separated list, dropping blanks.
func listDef(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:             getEnv("ENV", "local"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnv("PORT", infraconfig.DefaultHTTPPort),
		ShutdownTimeout: msDef("SHUTDOWN_TIMEOUT_MS", infraconfig.DefaultShutdownTimeout),
		Storage:         getEnv("STORAGE", "redis"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		ProviderTimeout: msDef("PROVIDER_TIMEOUT_MS", infraconfig.DefaultProviderTimeout),
		BatchTimeout:    msDef("BATCH_TIMEOUT_MS", infraconfig.DefaultBatchTimeout),
		RequestTimeout:  msDef("REQUEST_TIMEOUT_MS", infraconfig.DefaultRequestTimeout),
		FetchAttempts:   atoiDef(getEnv("FETCH_ATTEMPTS", ""), infraconfig.DefaultFetchAttempts),
		RetryDelay:      msDef("RETRY_DELAY_MS", infraconfig.DefaultRetryDelay),
		DefaultCooldown: msDef("DEFAULT_COOLDOWN_MS", infraconfig.DefaultCooldown),
		ClientPubkey:    getEnv("CLIENT_PUBKEY", ""),
		ProvidersFile:   getEnv("LSP_PROVIDERS_FILE", ""),
		HistoryLimit:    atoiDef(getEnv("HISTORY_LIMIT", ""), infraconfig.DefaultHistoryLimit),
		Freshness:       msDef("FRESHNESS_MS", infraconfig.DefaultFreshness),
		FallbackTTL:     msDef("FALLBACK_TTL_MS", infraconfig.DefaultFallbackTTL),
		RefreshGateTTL:  msDef("REFRESH_GATE_TTL_MS", infraconfig.DefaultRefreshGateTTL),
		ChannelSizes:    sizesDef(getEnv("CHANNEL_SIZES", ""), infraconfig.DefaultChannelSizes),
		RefreshEvery:    msDef("REFRESH_EVERY_MS", infraconfig.DefaultRefreshEvery),
		KafkaBrokers:    listDef(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "lspquotes.snapshots"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         atoiDef(getEnv("REDIS_DB", "0"), 0),
	}
}
