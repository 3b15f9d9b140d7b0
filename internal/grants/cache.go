// Package grants implements the per-principal grants cache:
// lookup/creation of cache entries, single-flight upstream fetch with
// retry, a bounded-pool background refresher, and debounced garbage
// collection against the host's session registry (spec.md §4.4).
package grants

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/juanfont/grantsauth/internal/principal"
	"github.com/juanfont/grantsauth/internal/session"
	sf "github.com/juanfont/grantsauth/internal/singleflight"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

// Options configures the cache's background behavior. All durations
// map 1:1 onto the "*Seconds" configuration fields in spec.md §6.
type Options struct {
	// RefreshPeriod is the background-refresh cadence. Zero disables
	// background refresh entirely.
	RefreshPeriod time.Duration
	// RefreshPoolSize bounds the number of concurrent refresh fetches.
	RefreshPoolSize int
	// MaxIdle is the idleness threshold past which an entry is
	// skipped by refresh and eligible for eviction.
	MaxIdle time.Duration
	// HTTPRetries is the number of retries (beyond the first attempt)
	// fetchGrants gets on connection errors or non-401/403 statuses.
	HTTPRetries int
	// GCPeriod is the garbage-collection cadence.
	GCPeriod time.Duration
}

// Cache is the per-principal grants cache described in spec.md §4.4.
// The entry map is a lock-free concurrent map (xsync.Map); the
// occasional multi-key structural mutation GC performs (retain-all)
// is serialized by a dedicated mutex so it observes a consistent view
// of the key set.
type Cache struct {
	entries *xsync.Map[string, *Info]

	barrier  *sf.Barrier
	fetcher  Fetcher
	registry session.Registry
	clock    Clock
	opts     Options

	// gcMu guards the GC retain-pass, the one operation that mutates
	// the map's key set as a whole rather than a single entry.
	gcMu   deadlock.Mutex
	lastGC int64 // ms instant of the last completed GC pass

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Cache and starts its background refresh and GC
// loops (refresh is skipped entirely when opts.RefreshPeriod is zero,
// per spec.md §4.4).
func New(opts Options, fetcher Fetcher, registry session.Registry, clock Clock) *Cache {
	if clock == nil {
		clock = SystemClock{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		entries:  xsync.NewMap[string, *Info](),
		barrier:  sf.New(),
		fetcher:  fetcher,
		registry: registry,
		clock:    clock,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}

	if opts.RefreshPeriod > 0 {
		c.wg.Add(1)
		go c.refreshLoop()
	}
	if opts.GCPeriod > 0 {
		c.wg.Add(1)
		go c.gcLoop()
	}

	return c
}

// InfoFor looks up (creating if absent) the cache entry for
// token.PrincipalName(), applies the monotonic accessToken/expiresAt
// update rule, and stamps lastUsed to now.
func (c *Cache) InfoFor(token *principal.TokenPayload) *Info {
	now := c.clock.NowMillis()
	principalName := token.PrincipalName()

	info, _ := c.entries.LoadOrStore(principalName, newInfo(token.RawToken, token.ExpiresAtMillis, now))
	info.touch(token.RawToken, token.ExpiresAtMillis, now)

	return info
}

// FetchOrWait ensures info.grants is populated, either by winning the
// single-flight race and performing the upstream fetch, or by waiting
// for and sharing the result of a fetch already in flight for this
// principal. Once grants have been fetched at least once, this never
// blocks on I/O again (spec.md §5 "hot-path ... never block on I/O
// after the first successful fetch") — callers only need FetchOrWait
// while info.Grants() is still nil.
func (c *Cache) FetchOrWait(ctx context.Context, principalName string, info *Info) (json.RawMessage, error) {
	if g := info.Grants(); g != nil {
		return g, nil
	}

	result, acquired, err := c.barrier.Do(ctx, principalName, func(ctx context.Context) (any, error) {
		grants, ferr := fetchWithRetry(ctx, c.fetcher, info.AccessToken(), c.opts.HTTPRetries)
		if ferr != nil {
			return nil, ferr
		}
		info.setGrants(grants)
		return grants, nil
	})
	if err != nil {
		log.Debug().Str("principal", principalName).Bool("acquired", acquired).Err(err).
			Msg("grants: fetch failed")
		return nil, err
	}

	return result.(json.RawMessage), nil
}

// Close interrupts the background loops and waits, best-effort, for
// them to observe cancellation.
func (c *Cache) Close() {
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("grants: background loops did not stop within grace period")
	}
}

// removeIfIdleOrExpired drops principalName's entry iff it is idle or
// past its stored expiry (spec.md §4.4 "Eviction on idle-or-expired").
// Reports whether the entry was dropped.
func (c *Cache) removeIfIdleOrExpired(principalName string, info *Info, now int64) bool {
	if !info.idleOrExpired(now, c.opts.MaxIdle.Milliseconds()) {
		return false
	}
	c.entries.Delete(principalName)
	return true
}
