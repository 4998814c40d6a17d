package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"lspquotes-service/internal/domain"
)

var errStoreDown = errors.New("store down")

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeStore is an in-memory CacheStore with a history cap.
type fakeStore struct {
	mu      sync.Mutex
	current map[int64][]domain.Quote
	history []domain.HistoryEntry
	limit   int
	err     error
	writes  int
	clock   Clock
}

func newFakeStore() *fakeStore {
	return &fakeStore{current: map[int64][]domain.Quote{}, limit: 10, clock: fakeClock{t0}}
}

func (f *fakeStore) WriteSnapshot(_ context.Context, size int64, quotes []domain.Quote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.writes++
	cp := append([]domain.Quote(nil), quotes...)
	f.current[size] = cp
	f.history = append([]domain.HistoryEntry{{Timestamp: f.clock.Now(), ChannelSizeSat: size, Quotes: cp}}, f.history...)
	if len(f.history) > f.limit {
		f.history = f.history[:f.limit]
	}
	return nil
}

func (f *fakeStore) ReadCurrent(_ context.Context, size int64) ([]domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Quote(nil), f.current[size]...), nil
}

func (f *fakeStore) ReadHistory(_ context.Context, limit int) ([]domain.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if limit <= 0 || limit > len(f.history) {
		limit = len(f.history)
	}
	return append([]domain.HistoryEntry(nil), f.history[:limit]...), nil
}

func (f *fakeStore) AvailableChannelSizes(context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]int64, 0, len(f.current))
	for k := range f.current {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.err }

func (f *fakeStore) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

type fakeLimiter struct {
	mu    sync.Mutex
	calls []string
}

func (l *fakeLimiter) Wait(_ context.Context, p domain.Provider) error {
	l.mu.Lock()
	l.calls = append(l.calls, p.ID)
	l.mu.Unlock()
	return nil
}

func (l *fakeLimiter) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

// scriptedClient answers per provider id. A provider whose fee is zero and
// err is nil blocks until the context ends.
type scriptedClient struct {
	mu      sync.Mutex
	fees    map[string]int64
	errs    map[string]error
	minSize map[string]int64
	orders  map[string]int
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{
		fees:    map[string]int64{},
		errs:    map[string]error{},
		minSize: map[string]int64{},
		orders:  map[string]int{},
	}
}

func (c *scriptedClient) set(id string, fee int64, err error) {
	c.mu.Lock()
	c.fees[id], c.errs[id] = fee, err
	c.mu.Unlock()
}

func (c *scriptedClient) GetInfo(ctx context.Context, p domain.Provider) (domain.Capabilities, error) {
	c.mu.Lock()
	fee, err, min := c.fees[p.ID], c.errs[p.ID], c.minSize[p.ID]
	c.mu.Unlock()
	if err != nil {
		return domain.Capabilities{}, err
	}
	if fee == 0 {
		<-ctx.Done()
		return domain.Capabilities{}, ctx.Err()
	}
	return domain.Capabilities{URIs: []string{"x@y:1"}, MinChannelBalanceSat: min}, nil
}

func (c *scriptedClient) CreateOrder(_ context.Context, p domain.Provider, size int64, caps domain.Capabilities) (domain.OrderQuote, error) {
	if caps.MinChannelBalanceSat > 0 && size < caps.MinChannelBalanceSat {
		return domain.OrderQuote{}, domain.NewQuoteError(domain.KindChannelSizeTooSmall, "", nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[p.ID]++
	return domain.OrderQuote{TotalFeeMsat: c.fees[p.ID], Strategy: "total_fee_msat"}, nil
}

func (c *scriptedClient) orderCount(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orders[id]
}

func providers(ids ...string) []domain.Provider {
	out := make([]domain.Provider, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Provider{ID: id, Name: "LSP " + id, URLs: []string{"https://" + id}, Active: true})
	}
	return out
}

func fastConfig() FetchConfig {
	return FetchConfig{
		ProviderTimeout: 100 * time.Millisecond,
		BatchTimeout:    time.Second,
		Attempts:        2,
		RetryDelay:      time.Millisecond,
	}
}

func liveQuote(id string, size, fee int64, at time.Time) domain.Quote {
	return domain.NewLiveQuote(domain.Provider{ID: id, Name: "LSP " + id}, size, domain.OrderQuote{TotalFeeMsat: fee}, at)
}
