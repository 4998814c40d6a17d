package lsps1_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lspquotes-service/internal/domain"
	"lspquotes-service/internal/infrastructure/httpx"
	"lspquotes-service/internal/infrastructure/lsps1"

	"github.com/stretchr/testify/require"
)

const infoOK = `{
  "uris": ["02abc@127.0.0.1:9735"],
  "min_required_channel_confirmations": 1,
  "min_funding_confirms_within_blocks": 6,
  "max_channel_expiry_blocks": 4320,
  "min_channel_balance_sat": "2000000",
  "max_channel_balance_sat": "10000000"
}`

type lspServer struct {
	info       string
	infoStatus int
	order      string
	orderCode  int
	orders     atomic.Int32

	mu        sync.Mutex
	lastOrder map[string]any
}

func (s *lspServer) last() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOrder
}

func (s *lspServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/get_info", func(w http.ResponseWriter, r *http.Request) {
		code := s.infoStatus
		if code == 0 {
			code = http.StatusOK
		}
		w.WriteHeader(code)
		_, _ = io.WriteString(w, s.info)
	})
	mux.HandleFunc("/create_order", func(w http.ResponseWriter, r *http.Request) {
		s.orders.Add(1)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.lastOrder = body
		s.mu.Unlock()
		code := s.orderCode
		if code == 0 {
			code = http.StatusOK
		}
		w.WriteHeader(code)
		_, _ = io.WriteString(w, s.order)
	})
	return mux
}

func newClient() *lsps1.Client {
	return lsps1.NewClient(&httpx.Client{HTTP: &http.Client{Timeout: 2 * time.Second}}, "03defaultkey", time.Second, nil)
}

func TestGetInfo_ParsesStringAndNumberFields(t *testing.T) {
	s := &lspServer{info: infoOK}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	c := newClient()
	caps, err := c.GetInfo(context.Background(), domain.Provider{ID: "a", URLs: []string{srv.URL}})
	require.NoError(t, err)
	require.Equal(t, []string{"02abc@127.0.0.1:9735"}, caps.URIs)
	require.Equal(t, int64(2_000_000), caps.MinChannelBalanceSat)
	require.Equal(t, int64(10_000_000), caps.MaxChannelBalanceSat)
	require.Equal(t, int64(4320), caps.MaxChannelExpiryBlocks)
}

func TestGetInfo_OptionsEnvelope(t *testing.T) {
	s := &lspServer{info: `{"uris":["x@y:1"],"options":{"min_initial_lsp_balance_sat":"100000","max_initial_lsp_balance_sat":"500000"}}`}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	caps, err := newClient().GetInfo(context.Background(), domain.Provider{ID: "a", URLs: []string{srv.URL}})
	require.NoError(t, err)
	min, max := caps.ChannelBounds()
	require.Equal(t, int64(100_000), min)
	require.Equal(t, int64(500_000), max)
}

func TestGetInfo_MissingURIsIsSchemaMismatch(t *testing.T) {
	s := &lspServer{info: `{"min_channel_balance_sat":"1"}`}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	_, err := newClient().GetInfo(context.Background(), domain.Provider{ID: "a", URLs: []string{srv.URL}})
	require.Error(t, err)
	require.Equal(t, domain.KindSchemaMismatch, domain.ClassifyError(err))
}

func TestGetInfo_InvalidJSON(t *testing.T) {
	s := &lspServer{info: `<html>maintenance</html>`}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	_, err := newClient().GetInfo(context.Background(), domain.Provider{ID: "a", URLs: []string{srv.URL}})
	require.Equal(t, domain.KindInvalidJSON, domain.ClassifyError(err))
}

func TestGetInfo_AutodiscoveryRemembersFirstWorkingCandidate(t *testing.T) {
	bad := httptest.NewServer(http.NotFoundHandler())
	defer bad.Close()
	s := &lspServer{info: infoOK}
	good := httptest.NewServer(s.handler())
	defer good.Close()

	c := newClient()
	p := domain.Provider{ID: "auto", URLs: []string{bad.URL + "/api/v1", good.URL}}
	_, err := c.GetInfo(context.Background(), p)
	require.NoError(t, err)

	resolved, ok := c.Resolved("auto")
	require.True(t, ok)
	require.Equal(t, good.URL, resolved)
}

func TestCreateOrder_TooSmallWithoutNetworkCall(t *testing.T) {
	s := &lspServer{info: infoOK, order: `{"fee_total_sat":"12"}`}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	c := newClient()
	p := domain.Provider{ID: "a", URLs: []string{srv.URL}}
	caps, err := c.GetInfo(context.Background(), p)
	require.NoError(t, err)

	_, err = c.CreateOrder(context.Background(), p, 1_000_000, caps)
	require.Equal(t, domain.KindChannelSizeTooSmall, domain.ClassifyError(err))
	require.Zero(t, s.orders.Load())

	_, err = c.CreateOrder(context.Background(), p, 20_000_000, caps)
	require.Equal(t, domain.KindChannelSizeTooLarge, domain.ClassifyError(err))
	require.Zero(t, s.orders.Load())
}

func TestCreateOrder_ShapesRequestAndExtractsFee(t *testing.T) {
	s := &lspServer{info: infoOK, order: `{"order_id":"o-1","payment":{"bolt11":{"fee_total_sat":"15","order_total_sat":"15"}}}`}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	c := newClient()
	p := domain.Provider{ID: "a", URLs: []string{srv.URL}, PublicKey: "02providerkey"}
	caps, err := c.GetInfo(context.Background(), p)
	require.NoError(t, err)

	order, err := c.CreateOrder(context.Background(), p, 3_000_000, caps)
	require.NoError(t, err)
	require.Equal(t, int64(15_000), order.TotalFeeMsat)
	require.Equal(t, "o-1", order.OrderID)
	require.Equal(t, "payment.bolt11.fee_total_sat", order.Strategy)

	require.Equal(t, "02providerkey", s.last()["public_key"])
	require.Equal(t, "3000000", s.last()["channel_size_sat"])
	require.Equal(t, "3000000", s.last()["lsp_balance_sat"])
	require.Equal(t, "0", s.last()["client_balance_sat"])
	require.Equal(t, false, s.last()["announce_channel"])
	require.EqualValues(t, 1, s.last()["required_channel_confirmations"])
	require.EqualValues(t, 6, s.last()["funding_confirms_within_blocks"])
	require.EqualValues(t, 4320, s.last()["channel_expiry_blocks"])
	require.NotContains(t, s.last(), "token")
}

func TestCreateOrder_DefaultPublicKey(t *testing.T) {
	s := &lspServer{info: infoOK, order: `{"total_fee_msat":"11000"}`}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	c := newClient()
	p := domain.Provider{ID: "a", URLs: []string{srv.URL}}
	caps, err := c.GetInfo(context.Background(), p)
	require.NoError(t, err)
	order, err := c.CreateOrder(context.Background(), p, 2_000_000, caps)
	require.NoError(t, err)
	require.Equal(t, int64(11_000), order.TotalFeeMsat)
	require.Equal(t, "03defaultkey", s.last()["public_key"])
}

func TestCreateOrder_ErrorBodyPreserved(t *testing.T) {
	body := `{"code":1,"message":"Client peer not connected"}`
	s := &lspServer{info: infoOK, order: body, orderCode: http.StatusBadRequest}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	c := newClient()
	p := domain.Provider{ID: "a", URLs: []string{srv.URL}}
	caps, err := c.GetInfo(context.Background(), p)
	require.NoError(t, err)

	_, err = c.CreateOrder(context.Background(), p, 2_000_000, caps)
	var qe *domain.QuoteError
	require.True(t, errors.As(err, &qe))
	require.Equal(t, domain.KindPeerNotConnected, qe.Kind)
	require.Equal(t, http.StatusBadRequest, qe.Status)
	require.Equal(t, body, qe.Raw)
}

func TestCreateOrder_NoFeeIsSchemaMismatch(t *testing.T) {
	s := &lspServer{info: infoOK, order: `{"order_id":"x","payment":{"bolt11":{"fee_total_sat":"0"}}}`}
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	c := newClient()
	p := domain.Provider{ID: "a", URLs: []string{srv.URL}}
	caps, _ := c.GetInfo(context.Background(), p)
	_, err := c.CreateOrder(context.Background(), p, 2_000_000, caps)
	require.Equal(t, domain.KindSchemaMismatch, domain.ClassifyError(err))
}

func TestGetInfo_TimeoutIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := lsps1.NewClient(&httpx.Client{HTTP: &http.Client{}}, "k", 50*time.Millisecond, nil)
	_, err := c.GetInfo(context.Background(), domain.Provider{ID: "slow", URLs: []string{srv.URL}})
	require.Equal(t, domain.KindTimeout, domain.ClassifyError(err))
}

func TestGetInfo_NoURL(t *testing.T) {
	_, err := newClient().GetInfo(context.Background(), domain.Provider{ID: "none"})
	require.Equal(t, domain.KindURLNotFound, domain.ClassifyError(err))
	require.True(t, strings.Contains(err.Error(), "no base url"))
}
