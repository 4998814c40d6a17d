package lsps1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"lspquotes-service/internal/application"
	"lspquotes-service/internal/domain"
	"lspquotes-service/internal/infrastructure/httpx"

	"go.uber.org/zap"
)

const (
	getInfoPath     = "/get_info"
	createOrderPath = "/create_order"
)

// OrderDefaults are the conservative values sent in create_order before
// being bounded by what the provider advertises.
type OrderDefaults struct {
	RequiredChannelConfirmations int64
	FundingConfirmsWithinBlocks  int64
	ChannelExpiryBlocks          int64
}

var DefaultOrderDefaults = OrderDefaults{
	RequiredChannelConfirmations: 0,
	FundingConfirmsWithinBlocks:  6,
	ChannelExpiryBlocks:          12960,
}

// Client speaks the LSPS1 get_info / create_order handshake.
type Client struct {
	HTTP             *httpx.Client
	RequestTimeout   time.Duration
	DefaultPublicKey string
	Defaults         OrderDefaults
	Log              *zap.Logger

	mu       sync.RWMutex
	resolved map[string]string
}

var _ application.LSPClient = (*Client)(nil)

func NewClient(http *httpx.Client, defaultPublicKey string, requestTimeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		HTTP:             http,
		RequestTimeout:   requestTimeout,
		DefaultPublicKey: defaultPublicKey,
		Defaults:         DefaultOrderDefaults,
		Log:              log,
	}
}

// GetInfo resolves the provider base URL and returns its validated capabilities.
// The first candidate answering with a valid get_info is remembered.
func (c *Client) GetInfo(ctx context.Context, p domain.Provider) (domain.Capabilities, error) {
	candidates := c.candidates(p)
	if len(candidates) == 0 {
		return domain.Capabilities{}, &domain.QuoteError{Kind: domain.KindURLNotFound, Message: "no base url configured"}
	}
	var lastErr error
	for _, base := range candidates {
		caps, err := c.getInfo(ctx, base)
		if err == nil {
			c.remember(p.ID, base)
			return caps, nil
		}
		lastErr = err
		c.logger().Debug("lsps1.get_info_candidate_failed",
			zap.String("provider", p.ID), zap.String("base", base), zap.Error(err))
		c.forget(p.ID, base)
		if ctx.Err() != nil {
			break
		}
	}
	return domain.Capabilities{}, lastErr
}

// CreateOrder validates the size locally, then asks the provider for a priced order.
func (c *Client) CreateOrder(ctx context.Context, p domain.Provider, channelSizeSat int64, caps domain.Capabilities) (domain.OrderQuote, error) {
	min, max := caps.ChannelBounds()
	if min > 0 && channelSizeSat < min {
		return domain.OrderQuote{}, &domain.QuoteError{
			Kind:    domain.KindChannelSizeTooSmall,
			Message: fmt.Sprintf("channel size %d sat below provider minimum %d sat", channelSizeSat, min),
		}
	}
	if max > 0 && channelSizeSat > max {
		return domain.OrderQuote{}, &domain.QuoteError{
			Kind:    domain.KindChannelSizeTooLarge,
			Message: fmt.Sprintf("channel size %d sat above provider maximum %d sat", channelSizeSat, max),
		}
	}
	base := c.baseFor(p)
	if base == "" {
		return domain.OrderQuote{}, &domain.QuoteError{Kind: domain.KindURLNotFound, Message: "no base url configured"}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	resp, err := c.HTTP.PostJSON(ctx, joinURL(base, createOrderPath), c.orderRequest(p, channelSizeSat, caps))
	if err != nil {
		return domain.OrderQuote{}, transportError("create_order", err, resp)
	}
	raw := string(resp.Body)
	if !resp.OK() {
		return domain.OrderQuote{}, &domain.QuoteError{
			Kind:    domain.ClassifyResponse(resp.Status, raw),
			Message: "create_order rejected",
			Status:  resp.Status,
			Raw:     raw,
		}
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return domain.OrderQuote{}, &domain.QuoteError{Kind: domain.KindInvalidJSON, Message: "create_order response is not JSON", Raw: raw, Err: err}
	}
	order, ok := ExtractFee(body, StrategiesFor(p.FeeFields))
	if !ok {
		return domain.OrderQuote{}, &domain.QuoteError{Kind: domain.KindSchemaMismatch, Message: "no positive fee in create_order response", Raw: raw}
	}
	return order, nil
}

func (c *Client) getInfo(ctx context.Context, base string) (domain.Capabilities, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	resp, err := c.HTTP.GetJSON(ctx, joinURL(base, getInfoPath))
	if err != nil {
		return domain.Capabilities{}, transportError("get_info", err, resp)
	}
	raw := string(resp.Body)
	if !resp.OK() {
		return domain.Capabilities{}, &domain.QuoteError{
			Kind:    domain.ClassifyResponse(resp.Status, raw),
			Message: "get_info rejected",
			Status:  resp.Status,
			Raw:     raw,
		}
	}
	var info infoResponse
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		kind := domain.KindSchemaMismatch
		var syn *json.SyntaxError
		if errors.As(err, &syn) || !json.Valid(resp.Body) {
			kind = domain.KindInvalidJSON
		}
		return domain.Capabilities{}, &domain.QuoteError{Kind: kind, Message: "get_info response could not be decoded", Raw: raw, Err: err}
	}
	if len(info.URIs) == 0 {
		return domain.Capabilities{}, &domain.QuoteError{Kind: domain.KindSchemaMismatch, Message: "get_info response has no uris", Raw: raw}
	}
	o := info.effectiveOptions()
	return domain.Capabilities{
		URIs:                            info.URIs,
		MinChannelBalanceSat:            int64(o.MinChannelBalanceSat),
		MaxChannelBalanceSat:            int64(o.MaxChannelBalanceSat),
		MinInitialLSPBalanceSat:         int64(o.MinInitialLSPBalanceSat),
		MaxInitialLSPBalanceSat:         int64(o.MaxInitialLSPBalanceSat),
		MinRequiredChannelConfirmations: int64(o.MinRequiredChannelConfirmations),
		MinFundingConfirmsWithinBlocks:  int64(o.MinFundingConfirmsWithinBlocks),
		MaxChannelExpiryBlocks:          int64(o.MaxChannelExpiryBlocks),
		SupportsZeroChannelReserve:      o.SupportsZeroChannelReserve,
	}, nil
}

func (c *Client) orderRequest(p domain.Provider, channelSizeSat int64, caps domain.Capabilities) orderRequest {
	pub := p.PublicKey
	if pub == "" {
		pub = c.DefaultPublicKey
	}
	d := c.Defaults
	confs := d.RequiredChannelConfirmations
	if caps.MinRequiredChannelConfirmations > confs {
		confs = caps.MinRequiredChannelConfirmations
	}
	funding := d.FundingConfirmsWithinBlocks
	if caps.MinFundingConfirmsWithinBlocks > funding {
		funding = caps.MinFundingConfirmsWithinBlocks
	}
	expiry := d.ChannelExpiryBlocks
	if caps.MaxChannelExpiryBlocks > 0 && caps.MaxChannelExpiryBlocks < expiry {
		expiry = caps.MaxChannelExpiryBlocks
	}
	size := strconv.FormatInt(channelSizeSat, 10)
	return orderRequest{
		PublicKey:                    pub,
		ChannelSizeSat:               size,
		LSPBalanceSat:                size,
		ClientBalanceSat:             "0",
		RequiredChannelConfirmations: confs,
		FundingConfirmsWithinBlocks:  funding,
		ChannelExpiryBlocks:          expiry,
		AnnounceChannel:              false,
	}
}

// candidates lists base URLs to try: the remembered URL first, followed by
// the configured ones.
func (c *Client) candidates(p domain.Provider) []string {
	c.mu.RLock()
	known := c.resolved[p.ID]
	c.mu.RUnlock()
	out := make([]string, 0, len(p.URLs)+1)
	if known != "" {
		out = append(out, known)
	}
	for _, u := range p.URLs {
		if u != "" && u != known {
			out = append(out, u)
		}
	}
	return out
}

func (c *Client) baseFor(p domain.Provider) string {
	if cs := c.candidates(p); len(cs) > 0 {
		return cs[0]
	}
	return ""
}

// Resolved returns the remembered base URL for a provider, if any.
func (c *Client) Resolved(providerID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.resolved[providerID]
	return u, ok
}

func (c *Client) remember(providerID, base string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved == nil {
		c.resolved = make(map[string]string)
	}
	c.resolved[providerID] = base
}

func (c *Client) forget(providerID, base string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved[providerID] == base {
		delete(c.resolved, providerID)
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.RequestTimeout > 0 {
		return context.WithTimeout(ctx, c.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

func (c *Client) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

func transportError(op string, err error, resp httpx.Response) *domain.QuoteError {
	return &domain.QuoteError{
		Kind:    domain.ClassifyError(err),
		Message: op + " request failed",
		Status:  resp.Status,
		Raw:     string(resp.Body),
		Err:     err,
	}
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
