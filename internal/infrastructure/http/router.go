package httpserver

import (
	"context"
	"net/http"
	"time"

	"lspquotes-service/internal/infrastructure/logx"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter wires the quote API. gatherer may be nil, in which case /metrics
// is not mounted.
func NewRouter(s *Server, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(
		correlation("X-Request-ID", logx.WithRequestID),
		correlation("X-Trace-Id", logx.WithTraceID),
		recoverer,
		accessLog,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.svc.Ready(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store not ready")
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/quotes", func(r chi.Router) {
		r.Get("/", s.GetQuotes)
		r.Get("/history", s.GetHistory)
		r.Get("/channel-sizes", s.GetChannelSizes)
		r.Post("/refresh", s.RefreshAll)
		r.Post("/refresh/{provider}", s.RefreshProvider)
	})
	r.Get("/providers", s.ListProviders)
	return r
}

// correlation echoes (or mints) an id header and stores it in the request
// context so every log line of the request carries it.
func correlation(header string, attach func(context.Context, string) context.Context) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(header)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(header, id)
			next.ServeHTTP(w, r.WithContext(attach(r.Context(), id)))
		})
	}
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logx.WithFields(r.Context()).Error("http.panic", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				internalError(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// accessLog logs one line per request, keyed by route pattern rather than the
// raw path so provider ids do not fan out the log cardinality.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(sr, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("route", routePattern(r)),
			zap.Int("status", sr.status),
			zap.Int("bytes", sr.bytes),
			zap.Duration("took", time.Since(start)),
		}
		if size := r.URL.Query().Get("channel_size"); size != "" {
			fields = append(fields, zap.String("channel_size", size))
		}
		if p := chi.URLParam(r, "provider"); p != "" {
			fields = append(fields, zap.String("provider", p))
		}
		log := logx.WithFields(r.Context())
		if sr.status >= http.StatusInternalServerError {
			log.Warn("http.request", fields...)
			return
		}
		log.Info("http.request", fields...)
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
