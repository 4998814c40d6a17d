package bootstrap

import (
	"context"
	"fmt"

	"lspquotes-service/internal/application"
	"lspquotes-service/internal/config"
	httpserver "lspquotes-service/internal/infrastructure/http"
	"lspquotes-service/internal/infrastructure/worker"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// App is the assembled core shared by the API and the worker.
type App struct {
	Config   config.Config
	Log      *zap.Logger
	Service  *application.PriceService
	Registry *prometheus.Registry
}

func InitApp(ctx context.Context) (*App, func(), error) {
	cfg := ProvideConfig()
	log := ProvideLogger(cfg)
	providers, err := ProvideProviders(cfg)
	if err != nil {
		return nil, func() {}, fmt.Errorf("load providers: %w", err)
	}
	storage, cleanup, err := ProvideStorage(ctx, log, cfg)
	if err != nil {
		return nil, func() {}, fmt.Errorf("init storage: %w", err)
	}
	pub, closePub := ProvidePublisher(cfg, log)
	reg := ProvideRegistry()
	svc := ProvidePriceService(cfg, log, providers, ProvideLSPClient(cfg, log), ProvideRateLimiter(cfg), storage, pub, reg)
	return &App{Config: cfg, Log: log, Service: svc, Registry: reg}, func() {
		closePub()
		cleanup()
	}, nil
}

// InitAPI builds the HTTP handler.
func InitAPI(ctx context.Context) (*App, *httpserver.Server, func(), error) {
	app, cleanup, err := InitApp(ctx)
	if err != nil {
		return nil, nil, func() {}, err
	}
	return app, httpserver.NewServer(app.Service), cleanup, nil
}

type WorkerApp func(ctx context.Context) error

// InitWorkerApp runs the scheduler and a chan worker until ctx is done.
func InitWorkerApp(ctx context.Context) (WorkerApp, func(), error) {
	app, cleanup, err := InitApp(ctx)
	if err != nil {
		return nil, func() {}, err
	}
	jobs := make(chan worker.RefreshMsg, len(app.Config.ChannelSizes))
	sched := &worker.Scheduler{
		ChannelSizes: app.Config.ChannelSizes,
		Jobs:         jobs,
		Every:        app.Config.RefreshEvery,
		Log:          app.Log.Named("scheduler"),
	}
	w := worker.NewChanWorker(app.Service, jobs, app.Config.BatchTimeout+app.Config.ProviderTimeout)

	run := func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { sched.Start(ctx); return nil })
		g.Go(func() error { w.Start(ctx); return nil })
		return g.Wait()
	}
	return run, cleanup, nil
}
