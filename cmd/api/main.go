package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lspquotes-service/internal/bootstrap"
	httpserver "lspquotes-service/internal/infrastructure/http"
	"lspquotes-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	logger := logx.L()
	ctx := context.Background()

	app, srv, cleanup, err := bootstrap.InitAPI(ctx)
	if err != nil {
		logger.Fatal("bootstrap api", zap.Error(err))
	}
	defer cleanup()

	addr := ":" + app.Config.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           httpserver.NewRouter(srv, app.Registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server started", zap.String("addr", addr), zap.Int("providers", len(app.Service.Providers())))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, shCancel := context.WithTimeout(context.Background(), app.Config.ShutdownTimeout)
	defer shCancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("server stopped")
}
