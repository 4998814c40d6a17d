package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidChannelSize = errors.New("invalid channel size")
)

// ErrorKind is the closed taxonomy every layer reports failures in.
type ErrorKind string

const (
	KindURLNotFound         ErrorKind = "UrlNotFound"
	KindTimeout             ErrorKind = "Timeout"
	KindBadStatus           ErrorKind = "BadStatus"
	KindInvalidJSON         ErrorKind = "InvalidJson"
	KindSchemaMismatch      ErrorKind = "SchemaMismatch"
	KindChannelSizeTooSmall ErrorKind = "ChannelSizeTooSmall"
	KindChannelSizeTooLarge ErrorKind = "ChannelSizeTooLarge"
	KindRateLimited         ErrorKind = "RateLimited"
	KindTLSError            ErrorKind = "TlsError"
	KindCORSBlocked         ErrorKind = "CorsBlocked"
	KindPeerNotConnected    ErrorKind = "PeerNotConnected"
	KindWhitelistRequired   ErrorKind = "WhitelistRequired"
	KindLiveDataUnavailable ErrorKind = "LiveDataUnavailable"
	KindCacheUnavailable    ErrorKind = "CacheUnavailable"
	KindUnknown             ErrorKind = "Unknown"
)

var kindMessages = map[ErrorKind]string{
	KindURLNotFound:         "provider endpoint not found",
	KindTimeout:             "provider did not answer in time",
	KindBadStatus:           "provider returned an error status",
	KindInvalidJSON:         "provider returned malformed JSON",
	KindSchemaMismatch:      "provider response is missing required fields",
	KindChannelSizeTooSmall: "channel size is below the provider minimum",
	KindChannelSizeTooLarge: "channel size is above the provider maximum",
	KindRateLimited:         "provider rate limit reached",
	KindTLSError:            "TLS handshake with provider failed",
	KindCORSBlocked:         "provider blocked the request origin",
	KindPeerNotConnected:    "provider requires a connected peer",
	KindWhitelistRequired:   "provider requires whitelisting",
	KindLiveDataUnavailable: "live data unavailable",
	KindCacheUnavailable:    "no cached quote available",
	KindUnknown:             "unknown provider error",
}

// Message is the human readable text shown alongside an unavailable quote.
func (k ErrorKind) Message() string {
	if m, ok := kindMessages[k]; ok {
		return m
	}
	return kindMessages[KindUnknown]
}

// Retryable reports whether an immediate retry in the same round can help.
// Timeouts are excluded: a provider that timed out is done for the round.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindBadStatus, KindInvalidJSON, KindUnknown:
		return true
	default:
		return false
	}
}

// QuoteError is a classified failure crossing from the protocol client upward.
type QuoteError struct {
	Kind    ErrorKind
	Message string
	Status  int
	Raw     string // upstream body, diagnostic only
	Err     error
}

func (e *QuoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Message()
	}
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *QuoteError) Unwrap() error { return e.Err }

func NewQuoteError(kind ErrorKind, msg string, err error) *QuoteError {
	return &QuoteError{Kind: kind, Message: msg, Err: err}
}
