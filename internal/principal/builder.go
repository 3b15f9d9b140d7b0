package principal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Mechanism identifies the SASL mechanism a connection authenticated
// with. Only OAUTHBEARER sessions carry a TokenPayload.
type Mechanism string

const (
	MechanismOAuthBearer Mechanism = "OAUTHBEARER"
	MechanismPlain       Mechanism = "PLAIN"
	MechanismGSSAPI      Mechanism = "GSSAPI"
)

// AuthenticationContext is the information the broker's authentication
// subsystem hands to a Builder once a connection has authenticated.
// It is deliberately narrow: everything about how the mechanism
// verified the credential (signature checks, claim validation) is the
// out-of-scope external collaborator described in spec.md §1.
type AuthenticationContext struct {
	Mechanism Mechanism
	// RawToken is the bearer token string, present when Mechanism is
	// MechanismOAuthBearer.
	RawToken string
	// VerifiedToken is the already-signature-verified ID token, if
	// the host's JWT validator has run. Builder never re-verifies it.
	VerifiedToken *oidc.IDToken
	// FallbackName is used for mechanisms that don't carry a token
	// (e.g. GSSAPI), where the host derives a principal name some
	// other way.
	FallbackName string
}

// ErrUnsupportedMechanism is returned when a Builder is asked to
// build a principal for a mechanism it doesn't know how to handle.
var ErrUnsupportedMechanism = errors.New("principal: unsupported authentication mechanism")

// Builder produces a Principal from a host's AuthenticationContext.
//
// Design Note (b): the original source reached into a host class via
// reflection to set a private field, solely because the host exposed
// no constructor for the mapper. This interface is the re-architected
// replacement: a thin factory the host supplies (or that this module
// provides a default implementation of), with no reflection.
type Builder interface {
	Build(ctx context.Context, authCtx AuthenticationContext) (Principal, error)
}

// OIDCClaimsBuilder is the default Builder: it names the principal
// after the verified token's "sub" claim and, for OAUTHBEARER
// sessions, attaches a TokenPayload carrying the raw token and
// expiry so the grants cache can key off it. The verifier itself is
// only referenced for its method-set shape (AuthenticationContext
// already carries an already-verified token); OIDCClaimsBuilder never
// calls Verify itself, keeping signature validation out of scope.
type OIDCClaimsBuilder struct {
	// Verifier is retained so callers can construct an
	// OIDCClaimsBuilder alongside the same verifier their transport
	// layer uses, but Build never invokes it.
	Verifier *oidc.IDTokenVerifier
}

var _ Builder = (*OIDCClaimsBuilder)(nil)

// Build implements Builder.
func (b *OIDCClaimsBuilder) Build(_ context.Context, authCtx AuthenticationContext) (Principal, error) {
	switch authCtx.Mechanism {
	case MechanismOAuthBearer:
		if authCtx.VerifiedToken == nil {
			return Principal{}, fmt.Errorf("principal: OAUTHBEARER context missing verified token")
		}

		var rawClaims json.RawMessage
		if err := authCtx.VerifiedToken.Claims(&rawClaims); err != nil {
			return Principal{}, fmt.Errorf("principal: reading claims: %w", err)
		}

		payload := NewTokenPayload(
			authCtx.RawToken,
			authCtx.VerifiedToken.Subject,
			authCtx.VerifiedToken.Expiry.UnixMilli(),
			rawClaims,
		)

		return New(TypeSASLUser, authCtx.VerifiedToken.Subject).WithToken(payload), nil
	case MechanismPlain, MechanismGSSAPI:
		if authCtx.FallbackName == "" {
			return Principal{}, fmt.Errorf("principal: %s context missing fallback name", authCtx.Mechanism)
		}

		return New(TypeUser, authCtx.FallbackName), nil
	default:
		return Principal{}, fmt.Errorf("%w: %s", ErrUnsupportedMechanism, authCtx.Mechanism)
	}
}
