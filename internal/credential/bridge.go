// Package credential mints the short-lived signed token that the
// task-storage service accepts in place of the front-end session.
package credential

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"tasklink/internal/session"
)

const (
	// TTL is the validity window of a minted token.
	TTL = 2 * time.Hour

	// DevSecret is the well-known development signing secret. It is only
	// used when the configuration explicitly allows it and must never be
	// used in a real deployment.
	DevSecret = "tasklink-development-secret-do-not-use"
)

// signingMethod is shared with the storage service by configuration.
var signingMethod = jwt.SigningMethodHS256

// ConfigurationError reports a missing or unusable signing secret.
// It is fatal to the caller and not retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "credential configuration: " + e.Reason
}

// ErrInvalidToken is returned by Verify for any rejected token.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the payload of a bridged credential.
type Claims struct {
	Email  string `json:"email"`
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Bridge converts a session identity into a signed token.
type Bridge struct {
	secret []byte
	now    func() time.Time
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) { b.now = now }
}

// New creates a Bridge signing with secret. An empty secret is a
// ConfigurationError unless allowDev is set, in which case DevSecret is used.
func New(secret string, allowDev bool, opts ...Option) (*Bridge, error) {
	if secret == "" {
		if !allowDev {
			return nil, &ConfigurationError{Reason: "signing secret not set (TASKLINK_AUTH_SECRET)"}
		}
		secret = DevSecret
	}
	b := &Bridge{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Mint returns a signed token for id, valid for TTL from now.
// The caller must already have confirmed the session exists.
func (b *Bridge) Mint(id session.Identity) (string, error) {
	tok, _, err := b.mint(id)
	return tok, err
}

func (b *Bridge) mint(id session.Identity) (string, time.Time, error) {
	if !id.Valid() {
		return "", time.Time{}, fmt.Errorf("mint credential: identity has no user id")
	}
	iat := b.now().Truncate(time.Second)
	exp := iat.Add(TTL)
	claims := Claims{
		Email:  id.Email,
		UserID: id.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(b.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign credential: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature, algorithm and expiry the way the storage service
// does, and returns the claims.
func (b *Bridge) Verify(token string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return b.secret, nil
	},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(b.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &claims, nil
}

// TokenSource returns an oauth2.TokenSource that mints a fresh credential
// for id whenever the previous one is about to expire.
func (b *Bridge) TokenSource(id session.Identity) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &mintSource{bridge: b, id: id})
}

type mintSource struct {
	bridge *Bridge
	id     session.Identity
}

func (s *mintSource) Token() (*oauth2.Token, error) {
	tok, exp, err := s.bridge.mint(s.id)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: tok,
		TokenType:   "Bearer",
		Expiry:      exp,
	}, nil
}
