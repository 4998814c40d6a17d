package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"lspquotes-service/internal/application"
	"lspquotes-service/internal/domain"
	"lspquotes-service/internal/infrastructure/logx"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	modeCached = "cached"
	modeSmart  = "smart"
)

type Server struct {
	svc *application.PriceService
}

func NewServer(svc *application.PriceService) *Server { return &Server{svc: svc} }

type quotesResponse struct {
	ChannelSizeSat int64          `json:"channel_size_sat"`
	Mode           string         `json:"mode"`
	Quotes         []domain.Quote `json:"quotes"`
}

type providerView struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	URLs       []string `json:"urls"`
	Active     bool     `json:"active"`
	CooldownMS int64    `json:"cooldown_ms"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// GetQuotes serves GET /quotes?channel_size=&mode=cached|smart. Mode defaults
// to cached.
func (s *Server) GetQuotes(w http.ResponseWriter, r *http.Request) {
	size, ok := channelSize(w, r)
	if !ok {
		return
	}
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = modeCached
	}
	var (
		quotes []domain.Quote
		err    error
	)
	switch mode {
	case modeCached:
		quotes, err = s.svc.GetCachedOnly(r.Context(), size)
	case modeSmart:
		quotes, err = s.svc.GetSmart(r.Context(), size)
	default:
		badRequest(w, "mode must be cached or smart")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quotesResponse{ChannelSizeSat: size, Mode: mode, Quotes: quotes})
}

// RefreshAll serves POST /quotes/refresh?channel_size=&bypass_rate_limit=.
// Manual refreshes bypass cooldowns unless bypass_rate_limit=false.
func (s *Server) RefreshAll(w http.ResponseWriter, r *http.Request) {
	size, ok := channelSize(w, r)
	if !ok {
		return
	}
	bypass := true
	if v := r.URL.Query().Get("bypass_rate_limit"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(w, "bypass_rate_limit must be a boolean")
			return
		}
		bypass = b
	}
	quotes, err := s.svc.ForceRefresh(r.Context(), size, bypass)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quotesResponse{ChannelSizeSat: size, Mode: "refresh", Quotes: quotes})
}

func (s *Server) RefreshProvider(w http.ResponseWriter, r *http.Request) {
	size, ok := channelSize(w, r)
	if !ok {
		return
	}
	quotes, err := s.svc.ForceRefreshSingleProvider(r.Context(), chi.URLParam(r, "provider"), size)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quotesResponse{ChannelSizeSat: size, Mode: "refresh", Quotes: quotes})
}

func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := s.svc.History(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) GetChannelSizes(w http.ResponseWriter, r *http.Request) {
	sizes, err := s.svc.ChannelSizes(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sizes)
}

func (s *Server) ListProviders(w http.ResponseWriter, _ *http.Request) {
	ps := s.svc.Providers()
	out := make([]providerView, 0, len(ps))
	for _, p := range ps {
		out = append(out, providerView{
			ID:         p.ID,
			Name:       p.Name,
			URLs:       p.URLs,
			Active:     p.Active,
			CooldownMS: p.Cooldown.Milliseconds(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func channelSize(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("channel_size")
	if raw == "" {
		badRequest(w, "channel_size is required")
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		badRequest(w, "channel_size must be an integer")
		return 0, false
	}
	return n, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidChannelSize):
		badRequest(w, err.Error())
	case errors.Is(err, application.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		logx.WithFields(r.Context()).Error("http.handler_failed", zap.String("path", r.URL.Path), zap.Error(err))
		internalError(w)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
