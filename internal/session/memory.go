package session

import (
	"sync"

	"github.com/juanfont/grantsauth/internal/principal"
)

// Memory is a map-backed Registry guarded by a sync.RWMutex, tracking live sessions
// keyed by the token payload's own pointer identity (a payload has no
// other handle, per spec.md §3). It is the reference implementation
// used by package tests and by `cmd/grantsauth serve` when the host
// doesn't supply its own broker-backed registry.
type Memory struct {
	mu       sync.RWMutex
	sessions map[*principal.TokenPayload]struct{}
}

// NewMemory returns an empty in-memory session registry.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[*principal.TokenPayload]struct{}),
	}
}

// Add registers token as a live session. Re-adding an already-live
// token is a no-op.
func (m *Memory) Add(token *principal.TokenPayload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = struct{}{}
}

// Remove marks token's session as no longer live.
func (m *Memory) Remove(token *principal.TokenPayload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

// Sessions returns a snapshot of the currently live token payloads.
func (m *Memory) Sessions() []*principal.TokenPayload {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*principal.TokenPayload, 0, len(m.sessions))
	for token := range m.sessions {
		out = append(out, token)
	}
	return out
}

// RemoveAllWithMatchingAccessToken evicts every live session whose
// raw token equals rawToken.
func (m *Memory) RemoveAllWithMatchingAccessToken(rawToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for token := range m.sessions {
		if token.RawToken == rawToken {
			delete(m.sessions, token)
		}
	}
}

var _ Registry = (*Memory)(nil)
