package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyText(t *testing.T) {
	cases := []struct {
		in   string
		want ErrorKind
	}{
		{"Post \"https://lsp/create_order\": context deadline exceeded", KindTimeout},
		{"The operation was ABORTED", KindTimeout},
		{"peer is not connected", KindPeerNotConnected},
		{"Node not connected to LSP", KindPeerNotConnected},
		{"your node id is not whitelisted", KindWhitelistRequired},
		{"x509: certificate signed by unknown authority", KindTLSError},
		{"blocked by CORS policy", KindCORSBlocked},
		{"dial tcp: lookup lsp.invalid: no such host", KindURLNotFound},
		{"invalid character '<' looking for beginning of value", KindInvalidJSON},
		{"channel size too small", KindChannelSizeTooSmall},
		{"lsp_balance_sat exceeds maximum", KindChannelSizeTooLarge},
		{"Too Many Requests", KindRateLimited},
		{"something odd happened", KindUnknown},
		{"", KindUnknown},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ClassifyText(c.in), c.in)
	}
}

func TestClassifyResponse(t *testing.T) {
	require.Equal(t, KindRateLimited, ClassifyResponse(429, ""))
	require.Equal(t, KindURLNotFound, ClassifyResponse(404, "<html>nope</html>"))
	require.Equal(t, KindBadStatus, ClassifyResponse(500, "internal error"))
	require.Equal(t, KindPeerNotConnected, ClassifyResponse(400, `{"error":"client peer not connected"}`))
	require.Equal(t, KindWhitelistRequired, ClassifyResponse(500, `{"message":"whitelist required"}`))
	require.Equal(t, KindWhitelistRequired, ClassifyResponse(403, ""))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyError(t *testing.T) {
	require.Equal(t, ErrorKind(""), ClassifyError(nil))
	require.Equal(t, KindTimeout, ClassifyError(fmt.Errorf("get_info: %w", context.DeadlineExceeded)))

	var ne net.Error = timeoutErr{}
	require.Equal(t, KindTimeout, ClassifyError(ne))

	dns := &net.DNSError{Err: "no such host", Name: "lsp.invalid", IsNotFound: true}
	require.Equal(t, KindURLNotFound, ClassifyError(fmt.Errorf("dial: %w", dns)))

	qe := &QuoteError{Kind: KindSchemaMismatch, Message: "uris missing"}
	require.Equal(t, KindSchemaMismatch, ClassifyError(fmt.Errorf("wrapped: %w", qe)))

	require.Equal(t, KindUnknown, ClassifyError(errors.New("boom")))
}

func TestAsQuoteError_KeepsTyped(t *testing.T) {
	qe := &QuoteError{Kind: KindBadStatus, Status: 502, Raw: "bad gateway"}
	got := AsQuoteError(fmt.Errorf("create_order: %w", qe))
	require.Same(t, qe, got)

	got = AsQuoteError(errors.New("request timed out"))
	require.Equal(t, KindTimeout, got.Kind)
	require.Contains(t, got.Error(), "Timeout")
}
