// Package auth issues and verifies stateless session tokens.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the session lifetime used when none is configured.
const DefaultTTL = 24 * time.Hour

// Verification reasons.
const (
	ReasonExpired = "expired"
	ReasonInvalid = "invalid"
)

// Claims carries the authenticated flag on top of the registered claims.
// IssuedAt and ExpiresAt are always set by Issue.
type Claims struct {
	jwt.RegisteredClaims
	Authenticated bool `json:"authenticated"`
}

// Verification is the outcome of Verify. Reason is empty when Valid.
type Verification struct {
	Valid  bool
	Reason string
}

// Issuer mints HS256 tokens. The zero value is not usable.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer signing with secret. A non-positive ttl falls
// back to DefaultTTL.
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}
}

// TTL returns the configured token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a new token valid from now until now+TTL.
func (i *Issuer) Issue() (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Authenticated: true,
	})

	return token.SignedString(i.secret)
}

// Verify checks the signature and expiry of tokenString. Expired tokens
// report ReasonExpired; every other failure, including a bad signature,
// a foreign algorithm or a missing authenticated flag, reports ReasonInvalid.
func (i *Issuer) Verify(tokenString string) Verification {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		// expiry is only reported once the signature has checked out
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Verification{Reason: ReasonExpired}
		}
		return Verification{Reason: ReasonInvalid}
	}

	if !token.Valid || !claims.Authenticated {
		return Verification{Reason: ReasonInvalid}
	}

	return Verification{Valid: true}
}
