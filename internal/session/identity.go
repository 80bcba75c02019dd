// Package session models the signed-in user as established by the external
// identity provider, and the two ways the rest of the client looks at it:
// a cheap presence indicator for routing, and authoritative resolution.
package session

import (
	"context"
	"errors"
	"strings"
)

// Identity is the signed-in user. It is produced upstream by the identity
// provider and treated as already validated.
type Identity struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Valid reports whether the identity carries a user id.
func (i Identity) Valid() bool {
	return strings.TrimSpace(i.UserID) != ""
}

// ErrNoSession is returned by resolvers when no session exists.
var ErrNoSession = errors.New("not logged in")

// Indicator is the guard-time capability: is there any sign of a session?
// It must not perform network access or validate anything.
type Indicator interface {
	HasIndicator() bool
}

// Resolver is the authoritative capability: return the full session
// identity, or ErrNoSession.
type Resolver interface {
	Resolve(ctx context.Context) (Identity, error)
}

// Source offers both capabilities. Callers ask the Indicator first and only
// Resolve when a session is actually needed.
type Source interface {
	Indicator
	Resolver
}
