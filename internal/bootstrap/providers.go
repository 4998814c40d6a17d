package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"lspquotes-service/internal/application"
	"lspquotes-service/internal/config"
	"lspquotes-service/internal/domain"
	"lspquotes-service/internal/infrastructure/events"
	"lspquotes-service/internal/infrastructure/httpx"
	"lspquotes-service/internal/infrastructure/logx"
	"lspquotes-service/internal/infrastructure/lsps1"
	"lspquotes-service/internal/infrastructure/metrics"
	"lspquotes-service/internal/infrastructure/pg"
	"lspquotes-service/internal/infrastructure/ratelimit"
	redisstore "lspquotes-service/internal/infrastructure/redis"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrMissingDBURL   = errors.New("DATABASE_URL is required for STORAGE=pg")
	ErrUnknownStorage = errors.New("unknown STORAGE")
)

// Storage holds the cache store and the matching refresh gate.
type Storage struct {
	Store application.CacheStore
	Gate  application.RefreshGate
}

func ProvideLogger(cfg config.Config) *zap.Logger {
	return logx.L().With(zap.String("env", cfg.Env))
}

func ProvideConfig() config.Config { return config.Load() }

func ProvideProviders(cfg config.Config) ([]domain.Provider, error) {
	return config.LoadProviders(cfg.ProvidersFile, cfg.DefaultCooldown)
}

func ProvideDB(ctx context.Context, log *zap.Logger, cfg config.Config) (*pg.DB, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, func() {}, ErrMissingDBURL
	}
	db, err := pg.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, err
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return db, cleanup, nil
}

func ProvideRedisClient(cfg config.Config) (*redis.Client, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return client, func() { _ = client.Close() }, nil
}

// ProvideStorage selects the backend from STORAGE: redis, pg or none.
func ProvideStorage(ctx context.Context, log *zap.Logger, cfg config.Config) (Storage, func(), error) {
	switch cfg.Storage {
	case "redis":
		client, cleanup, err := ProvideRedisClient(cfg)
		if err != nil {
			return Storage{}, func() {}, err
		}
		return Storage{
			Store: redisstore.New(client, cfg.HistoryLimit),
			Gate:  redisstore.NewRefreshGate(client, cfg.RefreshGateTTL),
		}, cleanup, nil
	case "pg":
		db, cleanup, err := ProvideDB(ctx, log, cfg)
		if err != nil {
			return Storage{}, func() {}, err
		}
		return Storage{Store: pg.NewSnapshotStore(db, cfg.HistoryLimit), Gate: application.NoopGate{}}, cleanup, nil
	case "none", "":
		log.Warn("storage disabled; serving from the in-process fallback cache only")
		return Storage{Store: redisstore.Unconfigured{}, Gate: application.NoopGate{}}, func() {}, nil
	default:
		return Storage{}, func() {}, fmt.Errorf("%w: %q", ErrUnknownStorage, cfg.Storage)
	}
}

func ProvideLSPClient(cfg config.Config, log *zap.Logger) *lsps1.Client {
	return lsps1.NewClient(httpx.New(cfg.RequestTimeout), cfg.ClientPubkey, cfg.RequestTimeout, log.Named("lsps1"))
}

func ProvideRateLimiter(cfg config.Config) *ratelimit.Cooldown {
	return ratelimit.NewCooldown(cfg.DefaultCooldown)
}

// ProvideRegistry returns a private registry carrying the Go and process
// collectors next to the service metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// ProvidePublisher returns a kafka publisher when KAFKA_BROKERS is set.
func ProvidePublisher(cfg config.Config, log *zap.Logger) (application.SnapshotPublisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return application.NopPublisher{}, func() {}
	}
	pub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	log.Info("snapshot events enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	return pub, func() { _ = pub.Close() }
}

func ProvideFetchConfig(cfg config.Config) application.FetchConfig {
	return application.FetchConfig{
		ProviderTimeout: cfg.ProviderTimeout,
		BatchTimeout:    cfg.BatchTimeout,
		Attempts:        cfg.FetchAttempts,
		RetryDelay:      cfg.RetryDelay,
	}
}

func ProvidePriceService(
	cfg config.Config,
	log *zap.Logger,
	providers []domain.Provider,
	client *lsps1.Client,
	limiter *ratelimit.Cooldown,
	storage Storage,
	pub application.SnapshotPublisher,
	reg prometheus.Registerer,
) *application.PriceService {
	return application.NewPriceService(providers, client, limiter, storage.Store, ProvideFetchConfig(cfg),
		application.WithLogger(log.Named("service")),
		application.WithFreshness(cfg.Freshness),
		application.WithFallbackTTL(cfg.FallbackTTL),
		application.WithRefreshGate(storage.Gate),
		application.WithPublisher(pub),
		application.WithBackgroundTimeout(cfg.BatchTimeout+cfg.ProviderTimeout),
		application.WithServiceMetrics(metrics.NewQuoteMetrics(reg)),
	)
}
