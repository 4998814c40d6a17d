package domain

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"strings"
)

// Upstream LSPs share no error schema, so classification is keyword based.
// Order matters: the first matching rule wins.
var textRules = []struct {
	kind     ErrorKind
	keywords []string
}{
	{KindChannelSizeTooSmall, []string{"too small", "below minimum", "below the minimum", "less than min"}},
	{KindChannelSizeTooLarge, []string{"too large", "too big", "above maximum", "exceeds maximum", "greater than max"}},
	{KindWhitelistRequired, []string{"whitelist", "allowlist", "not allowed", "not authorized", "unauthorized", "forbidden"}},
	{KindPeerNotConnected, []string{"peer", "not connected"}},
	{KindRateLimited, []string{"rate limit", "ratelimit", "too many requests"}},
	{KindTimeout, []string{"timeout", "timed out", "aborted", "deadline exceeded"}},
	{KindTLSError, []string{"x509", "certificate", "tls"}},
	{KindCORSBlocked, []string{"cors", "access-control-allow-origin"}},
	{KindURLNotFound, []string{"no such host", "not found", "404", "connection refused", "unsupported protocol scheme"}},
	{KindInvalidJSON, []string{"invalid character", "unexpected end of json", "cannot unmarshal", "invalid json"}},
	{KindSchemaMismatch, []string{"missing field", "schema"}},
}

// ClassifyText maps free text (error message or response body) to a kind.
func ClassifyText(text string) ErrorKind {
	t := strings.ToLower(text)
	if t == "" {
		return KindUnknown
	}
	for _, r := range textRules {
		for _, kw := range r.keywords {
			if strings.Contains(t, kw) {
				return r.kind
			}
		}
	}
	return KindUnknown
}

// ClassifyResponse classifies a non-2xx response. Body keywords take
// precedence over the status code since providers report peer and
// whitelist problems behind generic statuses.
func ClassifyResponse(status int, body string) ErrorKind {
	switch k := ClassifyText(body); k {
	case KindPeerNotConnected, KindWhitelistRequired, KindRateLimited,
		KindChannelSizeTooSmall, KindChannelSizeTooLarge:
		return k
	}
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusNotFound:
		return KindURLNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindWhitelistRequired
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status < 200 || status >= 300:
		return KindBadStatus
	default:
		return KindUnknown
	}
}

// ClassifyError maps any error to a kind. Already classified errors keep their kind.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var qe *QuoteError
	if errors.As(err, &qe) && qe.Kind != "" {
		return qe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return KindURLNotFound
	}
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &unknownAuth) || errors.As(err, &hostErr) || errors.As(err, &certInvalid) {
		return KindTLSError
	}
	return ClassifyText(err.Error())
}

// AsQuoteError converts any error into a *QuoteError, classifying it if needed.
func AsQuoteError(err error) *QuoteError {
	if err == nil {
		return nil
	}
	var qe *QuoteError
	if errors.As(err, &qe) {
		return qe
	}
	return &QuoteError{Kind: ClassifyError(err), Err: err}
}
