package principal

import (
	"encoding/json"
	"sync"
)

// Payload is the typed handle a host attaches to an authenticated
// session to pin per-session auxiliary data without keeping a
// separate session table. This replaces the reflection/identity-hash
// trick the original source used: session identity is the handle
// itself (its pointer identity), and the value slot is single-writer
// under the owning cache's locking discipline.
//
// Design Note (a): re-architected as a capability interface rather
// than a concrete struct so the authentication subsystem can return
// whatever underlying type it likes, as long as it exposes this
// surface.
type Payload interface {
	// PrincipalName is the name of the principal this payload was
	// issued for.
	PrincipalName() string
	// LifetimeMillis is the absolute expiry instant, in milliseconds
	// since epoch, of the token this payload wraps.
	LifetimeMillis() int64
	// Value returns the last value attached via SetValue, or nil if
	// none has been set yet.
	Value() any
	// SetValue attaches a value to this payload's slot. Callers must
	// only call this under the locking discipline of whichever
	// component owns the slot (the grants cache, in this module).
	SetValue(v any)
}

// TokenPayload is an immutable record carrying everything a session
// needs to re-derive its authorization context, plus a mutable
// payload slot for per-session computed data (e.g. the last-seen
// grants cache entry). The raw token, principal name, and lifetime
// never change after construction; only the slot is mutable.
type TokenPayload struct {
	// RawToken is the opaque bearer token string as presented by the
	// client. Never logged in full.
	RawToken string
	// Principal is the name of the principal this token authenticates.
	Principal string
	// ExpiresAtMillis is the token's absolute expiry instant.
	ExpiresAtMillis int64
	// Claims is the parsed JSON claims of the token, if the caller
	// chose to attach them; nil otherwise. Signature validation of
	// the token that produced these claims is an out-of-scope
	// external collaborator.
	Claims json.RawMessage

	mu    sync.Mutex
	value any
}

var _ Payload = (*TokenPayload)(nil)

// NewTokenPayload constructs an immutable token payload with an empty
// value slot.
func NewTokenPayload(rawToken, principal string, expiresAtMillis int64, claims json.RawMessage) *TokenPayload {
	return &TokenPayload{
		RawToken:        rawToken,
		Principal:       principal,
		ExpiresAtMillis: expiresAtMillis,
		Claims:          claims,
	}
}

// PrincipalName implements Payload.
func (t *TokenPayload) PrincipalName() string {
	return t.Principal
}

// LifetimeMillis implements Payload.
func (t *TokenPayload) LifetimeMillis() int64 {
	return t.ExpiresAtMillis
}

// Value implements Payload.
func (t *TokenPayload) Value() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// SetValue implements Payload.
func (t *TokenPayload) SetValue(v any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.value = v
}
