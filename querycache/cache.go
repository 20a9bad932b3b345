// Package querycache caches server-fetched data by query key and applies the
// portal's staleness, garbage collection and retry policy. Every failed
// attempt is reported to the registered failure observers, which is how the
// auth teardown learns about expired credentials.
package querycache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"
	"github.com/jrsteele09/go-contest-portal/autherror"
	"github.com/jrsteele09/go-contest-portal/contesterr"
	"github.com/jrsteele09/go-contest-portal/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultStaleTime       = 30 * time.Second
	DefaultGCTime          = 30 * time.Minute
	DefaultQueryRetries    = 3
	DefaultMutationRetries = 1
)

// FetchFunc loads the data for a query.
type FetchFunc func(ctx context.Context) (any, error)

// MutateFunc performs a write against the backend.
type MutateFunc = FetchFunc

// FailureObserver is told about every failed read or write attempt.
type FailureObserver func(err error)

// Entry is a cached query result.
type Entry struct {
	Key          string
	Resource     string
	Data         any
	StaleTime    time.Duration
	LastFetched  time.Time
	LastAccessed time.Time
	RetryCount   int // failed attempts since the last successful fetch

	query       Key
	invalidated bool
	fetch       FetchFunc
}

type Cache struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	generation uint64 // bumped by Clear so in-flight fetches can't repopulate

	group singleflight.Group
	clock clockwork.Clock

	staleTime            time.Duration
	gcTime               time.Duration
	queryRetries         int
	mutationRetries      int
	refetchOnWindowFocus bool
	newBackOff           func() backoff.BackOff

	observersMu sync.RWMutex
	observers   []FailureObserver
}

type Option func(*Cache)

func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) {
		c.clock = clock
	}
}

func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) {
		c.staleTime = d
	}
}

func WithGCTime(d time.Duration) Option {
	return func(c *Cache) {
		c.gcTime = d
	}
}

// WithRetries sets how many additional attempts reads and writes get.
func WithRetries(queries, mutations int) Option {
	return func(c *Cache) {
		c.queryRetries = queries
		c.mutationRetries = mutations
	}
}

func WithRefetchOnWindowFocus(enabled bool) Option {
	return func(c *Cache) {
		c.refetchOnWindowFocus = enabled
	}
}

// WithBackOff replaces the retry delay schedule. A new BackOff is created for each operation.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Cache) {
		c.newBackOff = newBackOff
	}
}

func WithFailureObserver(observer FailureObserver) Option {
	return func(c *Cache) {
		c.observers = append(c.observers, observer)
	}
}

// DefaultBackOff doubles from one second up to thirty seconds.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.MaxInterval = 30 * time.Second
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

func New(options ...Option) *Cache {
	c := &Cache{
		entries:         make(map[string]*Entry),
		clock:           clockwork.NewRealClock(),
		staleTime:       DefaultStaleTime,
		gcTime:          DefaultGCTime,
		queryRetries:    DefaultQueryRetries,
		mutationRetries: DefaultMutationRetries,
		newBackOff:      DefaultBackOff,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Subscribe registers an observer for failed attempts.
func (c *Cache) Subscribe(observer FailureObserver) {
	c.observersMu.Lock()
	defer c.observersMu.Unlock()
	c.observers = append(c.observers, observer)
}

// Fetch returns fresh cached data for key or loads it with fetch.
// Concurrent fetches of the same key share a single load.
func (c *Cache) Fetch(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	k := key.String()

	c.mu.Lock()
	now := c.clock.Now()
	if e, ok := c.entries[k]; ok {
		e.LastAccessed = now
		if !e.invalidated && now.Sub(e.LastFetched) < e.StaleTime {
			data := e.Data
			c.mu.Unlock()
			return data, nil
		}
	}
	gen := c.generation
	c.mu.Unlock()

	v, err, _ := c.group.Do(k, func() (any, error) {
		return c.load(ctx, key, k, fetch, gen)
	})
	return v, err
}

// Query is a typed Fetch.
func Query[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, errors.Wrapf(errors.ErrInternal, "[querycache.Query] %s holds %T", key, v)
	}
	return t, nil
}

func (c *Cache) load(ctx context.Context, key Key, k string, fetch FetchFunc, gen uint64) (any, error) {
	data, err := c.attempt(ctx, c.queryRetries, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}, func() {
		c.recordFailure(k)
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// Cleared while loading, hand the data to the caller but don't keep it
		return data, nil
	}
	now := c.clock.Now()
	c.entries[k] = &Entry{
		Key:          k,
		Resource:     key.Resource,
		Data:         data,
		StaleTime:    c.staleTime,
		LastFetched:  now,
		LastAccessed: now,
		query:        key,
		fetch:        fetch,
	}
	return data, nil
}

// Mutate runs a write with the mutation retry policy. On success every
// cached query of the given resources is invalidated.
func (c *Cache) Mutate(ctx context.Context, mutate MutateFunc, invalidates ...string) (any, error) {
	v, err := c.attempt(ctx, c.mutationRetries, mutate, nil)
	if err != nil {
		return nil, err
	}
	for _, resource := range invalidates {
		c.InvalidateResource(resource)
	}
	return v, nil
}

// attempt runs op until it succeeds, retries are used up or the failure is
// not retryable. Observers hear about every failure before the retry decision.
func (c *Cache) attempt(ctx context.Context, retries int, op func(ctx context.Context) (any, error), onFailure func()) (any, error) {
	b := c.newBackOff()
	for attempt := 0; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if onFailure != nil {
			onFailure()
		}
		c.notify(err)

		if attempt >= retries || !retryable(err) {
			return nil, err
		}
		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return nil, err
		}
		log.Debug().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("retrying backend call")
		if delay > 0 {
			select {
			case <-ctx.Done():
				return nil, err
			case <-c.clock.After(delay):
			}
		}
	}
}

func retryable(err error) bool {
	if autherror.IsAuthenticationError(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if _, ok := contesterr.CodeOf(err); ok {
		return false
	}
	return true
}

func (c *Cache) notify(err error) {
	c.observersMu.RLock()
	observers := make([]FailureObserver, len(c.observers))
	copy(observers, c.observers)
	c.observersMu.RUnlock()

	for _, observe := range observers {
		observe(err)
	}
}

func (c *Cache) recordFailure(k string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[k]; ok {
		e.RetryCount++
	}
}

// Invalidate marks key stale so the next Fetch goes to the backend.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key.String()]; ok {
		e.invalidated = true
	}
}

// InvalidateResource marks every query of resource stale.
func (c *Cache) InvalidateResource(resource string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.Resource == resource {
			e.invalidated = true
		}
	}
}

// Clear drops every entry. Loads already in flight will not repopulate the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
	c.generation++
}

// CollectGarbage evicts entries not accessed within the GC time and returns how many went.
func (c *Cache) CollectGarbage() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	evicted := 0
	for k, e := range c.entries {
		if now.Sub(e.LastAccessed) > c.gcTime {
			delete(c.entries, k)
			evicted++
		}
	}
	return evicted
}

// WindowFocused refetches stale entries when refetch-on-focus is enabled.
// It is a no-op by default. Returns the number of entries refetched.
func (c *Cache) WindowFocused(ctx context.Context) int {
	if !c.refetchOnWindowFocus {
		return 0
	}

	type pending struct {
		key   Key
		fetch FetchFunc
	}
	var stale []pending
	c.mu.Lock()
	now := c.clock.Now()
	for _, e := range c.entries {
		if e.invalidated || now.Sub(e.LastFetched) >= e.StaleTime {
			stale = append(stale, pending{key: e.query, fetch: e.fetch})
			e.invalidated = true
		}
	}
	c.mu.Unlock()

	for _, p := range stale {
		if _, err := c.Fetch(ctx, p.key, p.fetch); err != nil {
			log.Debug().Err(err).Str("key", p.key.String()).Msg("refetch on focus failed")
		}
	}
	return len(stale)
}

// Run collects garbage periodically until ctx is done.
func (c *Cache) Run(ctx context.Context) {
	interval := c.gcTime / 6
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := c.CollectGarbage(); n > 0 {
				log.Debug().Int("evicted", n).Msg("query cache garbage collected")
			}
		}
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Entries returns a snapshot of the cached entries sorted by key.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		cp := *e
		cp.fetch = nil
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
