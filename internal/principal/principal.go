// Package principal holds the value objects that thread authorization
// context through the rest of grantsauth: the broker principal, the
// bearer-token payload attached to a session, and the factory
// interface a host uses to build a principal out of its own
// authentication context.
package principal

// Type is the kind of principal a broker recognizes.
type Type string

const (
	// TypeUser identifies a principal authenticated as an end user.
	TypeUser Type = "User"
	// TypeSASLUser identifies a principal authenticated over
	// SASL/OAUTHBEARER, i.e. one that carries a TokenPayload.
	TypeSASLUser Type = "SASLUser"
)

// Principal is the (type, name) identity the broker uses for
// authorization decisions. Two principals are equal iff their Type
// and Name are equal; the presence or absence of an attached
// TokenPayload never affects equality, so a principal with a token
// is interchangeable with a same-name principal without one for
// map-key and set-member purposes.
type Principal struct {
	Type Type
	Name string

	// Token is the attached bearer-token payload, if this principal
	// was authenticated over SASL/OAUTHBEARER. It is deliberately
	// excluded from equality and hashing.
	Token *TokenPayload
}

// New returns a principal with no attached token.
func New(typ Type, name string) Principal {
	return Principal{Type: typ, Name: name}
}

// WithToken returns a copy of p carrying the given token payload.
func (p Principal) WithToken(token *TokenPayload) Principal {
	p.Token = token
	return p
}

// Key is the comparable (type, name) pair used for map keys and set
// membership, satisfying the equality contract above without
// depending on whether a Principal carries a token.
type Key struct {
	Type Type
	Name string
}

// Key returns p's equality key.
func (p Principal) Key() Key {
	return Key{Type: p.Type, Name: p.Name}
}

// Equal reports whether p and other share the same (type, name),
// regardless of attached token payloads.
func (p Principal) Equal(other Principal) bool {
	return p.Key() == other.Key()
}

// String renders the principal for logging.
func (p Principal) String() string {
	return string(p.Type) + ":" + p.Name
}
