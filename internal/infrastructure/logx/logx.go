package logx

import (
	"context"
	"strings"

	"lspquotes-service/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
)

func init() {
	logger = New(config.Load().LogLevel)
}

// New builds the production logger at the given level ("debug", "info", ...).
func New(level string) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Sampling = nil
	zapCfg.DisableStacktrace = true
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if level != "" {
		_ = zapCfg.Level.UnmarshalText([]byte(strings.ToLower(level)))
	}
	l, err := zapCfg.Build(zap.AddCaller())
	if err != nil {
		panic(err)
	}
	return l
}

// L returns the package-level logger instance.
func L() *zap.Logger {
	return logger
}

type ctxKey int

const (
	requestIDKey ctxKey = iota
	traceIDKey
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}

// WithFields enriches logs with request IDs / trace IDs from context.
func WithFields(ctx context.Context) *zap.Logger {
	l := logger
	if rid := RequestID(ctx); rid != "" {
		l = l.With(zap.String("request_id", rid))
	}
	if tid := TraceID(ctx); tid != "" {
		l = l.With(zap.String("trace_id", tid))
	}
	return l
}
