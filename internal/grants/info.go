package grants

import (
	"encoding/json"
	"sync"
)

// Info is the per-principal grants-cache entry (spec.md §3 "Grants
// info"). accessToken, grants and expiresAt are mutable and published
// under mu so readers never observe a torn composite; lastUsed is an
// independent atomic-under-mu touch counter updated on every consult.
type Info struct {
	mu sync.RWMutex

	accessToken string
	grants      json.RawMessage // nil until the first successful fetch
	expiresAt   int64           // absolute ms instant, monotonically non-decreasing
	lastUsed    int64           // absolute ms instant of most recent consult
}

// newInfo creates a fresh entry for a first-seen principal.
func newInfo(accessToken string, expiresAt, now int64) *Info {
	return &Info{
		accessToken: accessToken,
		expiresAt:   expiresAt,
		lastUsed:    now,
	}
}

// touch applies the monotonic update rule from spec.md §3: expiresAt
// never decreases, accessToken is replaced only by a token whose
// expiresAt exceeds the stored value (ties keep the current token),
// and lastUsed always advances to now.
func (i *Info) touch(accessToken string, expiresAt, now int64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if expiresAt > i.expiresAt {
		i.expiresAt = expiresAt
		i.accessToken = accessToken
	}
	i.lastUsed = now
}

// AccessToken returns the most recently observed raw token for this
// principal.
func (i *Info) AccessToken() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.accessToken
}

// Grants returns the last successfully fetched grants document, or
// nil if no fetch has yet succeeded.
func (i *Info) Grants() json.RawMessage {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.grants
}

// ExpiresAt returns the stored absolute expiry instant in ms.
func (i *Info) ExpiresAt() int64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.expiresAt
}

// LastUsed returns the absolute instant, in ms, of the most recent
// consult.
func (i *Info) LastUsed() int64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.lastUsed
}

// setGrants publishes a freshly fetched grants document.
func (i *Info) setGrants(grants json.RawMessage) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.grants = grants
}

// idleOrExpired reports whether the entry should be evicted:
// lastUsed older than maxIdle, or the stored expiry has passed.
func (i *Info) idleOrExpired(now, maxIdleMillis int64) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.lastUsed < now-maxIdleMillis || i.expiresAt < now
}
