package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// maxBody caps how much of an upstream body is kept for diagnostics.
const maxBody = 1 << 20

// Response is a fully read upstream response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

type Client struct {
	HTTP      *http.Client
	UserAgent string
}

// New builds a client whose transport is tuned for a handful of slow upstreams.
func New(timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   4,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Client{HTTP: &http.Client{Timeout: timeout, Transport: transport}, UserAgent: "lspquotes-service/1.0"}
}

// Do sends req and always reads the body, even on non-2xx statuses.
// Only transport failures are returned as errors.
func (c *Client) Do(ctx context.Context, req *http.Request) (Response, error) {
	if c.HTTP == nil {
		c.HTTP = http.DefaultClient
	}
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	resp, err := c.HTTP.Do(req.WithContext(ctx))
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Response{Status: resp.StatusCode, Header: resp.Header}, fmt.Errorf("read body: %w", err)
	}
	return Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// GetJSON issues a GET and returns the raw response.
func (c *Client) GetJSON(ctx context.Context, url string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	return c.Do(ctx, req)
}

// PostJSON encodes in as the request body and returns the raw response.
func (c *Client) PostJSON(ctx context.Context, url string, in any) (Response, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return Response{}, fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(ctx, req)
}
