package grants

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// refreshLoop runs every opts.RefreshPeriod, submitting a bounded pool
// of fetch jobs across a snapshot of the cache (spec.md §4.4
// "Background refresh"). It never terminates on job failure; every
// per-job error is logged and contained.
func (c *Cache) refreshLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.RefreshPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runRefreshPass()
		case <-c.ctx.Done():
			return
		}
	}
}

// runRefreshPass snapshots the cache, fans refresh jobs out across a
// bounded worker pool, and joins them before logging any 401s
// observed during the pass. Jobs share c.ctx directly rather than a
// group-derived context, so one job's terminal error (a 401) never
// cancels its siblings' still-in-flight retries — each job applies
// the retry policy and runs to completion independently, per spec.md
// §4.4 step 4.
func (c *Cache) runRefreshPass() {
	type principalEntry struct {
		name string
		info *Info
	}

	snapshot := make([]principalEntry, 0)
	c.entries.Range(func(name string, info *Info) bool {
		snapshot = append(snapshot, principalEntry{name: name, info: info})
		return true
	})

	var g errgroup.Group
	g.SetLimit(max(1, c.opts.RefreshPoolSize))

	now := c.clock.NowMillis()

	for _, entry := range snapshot {
		entry := entry
		g.Go(func() error {
			return c.refreshOne(c.ctx, entry.name, entry.info, now)
		})
	}

	if err := g.Wait(); err != nil {
		var unauthorized *HTTPStatusError
		if errors.As(err, &unauthorized) && unauthorized.Status == 401 {
			log.Warn().Err(err).Msg("grants: refresh observed 401, sessions purged")
		} else {
			log.Error().Err(err).Msg("grants: refresh pass completed with errors")
		}
	}
}

// refreshOne is a single refresh job. A 401 cause purges every session
// carrying the stale access token and is reported back to the join so
// the pass-level log line fires; every other error is swallowed here
// (logged, contained) so one bad principal never blocks the others.
func (c *Cache) refreshOne(ctx context.Context, principalName string, info *Info, now int64) error {
	if c.removeIfIdleOrExpired(principalName, info, now) {
		return nil
	}

	correlationID, _ := uuid.NewV4()
	log.Debug().Str("principal", principalName).Str("refresh.id", correlationID.String()).
		Msg("grants: refreshing")

	grants, err := fetchWithRetry(ctx, c.fetcher, info.AccessToken(), c.opts.HTTPRetries)
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.Status == 401 {
			c.registry.RemoveAllWithMatchingAccessToken(info.AccessToken())
			return err
		}

		log.Error().Str("principal", principalName).Err(err).Msg("grants: refresh job failed")
		return nil
	}

	info.setGrants(grants)
	return nil
}
