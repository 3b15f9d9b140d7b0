// Package session defines the session-registry contract the grants
// cache consumes (spec.md §4.5), plus an in-memory reference
// implementation used by tests and by `cmd/grantsauth serve` when no
// broker-supplied registry is wired in.
package session

import "github.com/juanfont/grantsauth/internal/principal"

// Registry is the external contract the grants cache's GC and refresh
// passes need: a snapshot of live sessions' token payloads (GC), and a
// way to force out
// every session carrying a given raw token (used when an upstream
// fetch reports the token itself is no longer valid).
//
// Implementations are owned by the host broker; the core only ever
// reaches the registry through this interface.
type Registry interface {
	// Sessions returns a point-in-time snapshot of the token payloads
	// for every currently live session. One element per live session.
	Sessions() []*principal.TokenPayload

	// RemoveAllWithMatchingAccessToken evicts every live session whose
	// stored raw token equals rawToken.
	RemoveAllWithMatchingAccessToken(rawToken string)
}
