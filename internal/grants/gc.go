package grants

import (
	"time"

	"github.com/rs/zerolog/log"
)

// gcDebounceSlack is the tolerance subtracted from GCPeriod before a
// pass is allowed to run, so a delivery jitter on the ticker doesn't
// skip a legitimate pass (spec.md §4.4 "Debounce: skip if less than
// gcPeriod - 1s has elapsed since last run").
const gcDebounceSlack = time.Second

// gcLoop runs every opts.GCPeriod, retaining only cache entries whose
// principal still has a live session in the registry.
func (c *Cache) gcLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.GCPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runGCPass()
		case <-c.ctx.Done():
			return
		}
	}
}

// runGCPass retains only the principals with a live session,
// debounced against a too-recent prior pass.
func (c *Cache) runGCPass() {
	c.gcMu.Lock()
	defer c.gcMu.Unlock()

	now := c.clock.NowMillis()
	minGap := (c.opts.GCPeriod - gcDebounceSlack).Milliseconds()
	if c.lastGC != 0 && now-c.lastGC < minGap {
		log.Debug().Msg("grants: gc pass debounced")
		return
	}

	live := make(map[string]struct{})
	for _, token := range c.registry.Sessions() {
		live[token.PrincipalName()] = struct{}{}
	}

	dropped := 0
	c.entries.Range(func(name string, info *Info) bool {
		if _, ok := live[name]; !ok {
			c.entries.Delete(name)
			dropped++
		}
		return true
	})

	c.lastGC = now
	log.Debug().Int("dropped", dropped).Msg("grants: gc pass complete")
}
