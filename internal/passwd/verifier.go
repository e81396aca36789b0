// Package passwd verifies the shared access password against its stored
// form. Three stored forms are recognised by their leading prefix:
//
//	$2a$ / $2b$ / $2y$   bcrypt hash (preferred)
//	$argon2id$           argon2id hash in PHC string format
//	anything else        legacy plaintext, accepted with a warning
//
// Hash verification is deliberately slow. Callers should bound how many
// run at once and must never call Verify in a batch path.
package passwd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when the config leaves it unset.
const DefaultCost = 10

// Prefixes used to classify a stored secret. A plaintext password that
// happens to begin with one of these is treated as a hash and fails closed.
var (
	BcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}
	Argon2Prefix   = "$argon2id$"
)

// ErrMalformedSecret is returned for a stored secret that claims to be a hash
// but cannot be parsed, or for an empty stored secret.
var ErrMalformedSecret = errors.New("malformed stored secret")

// Form tells how a stored secret is represented.
type Form int

const (
	FormPlaintext Form = iota
	FormBcrypt
	FormArgon2
)

func (f Form) String() string {
	switch f {
	case FormBcrypt:
		return "bcrypt"
	case FormArgon2:
		return "argon2id"
	default:
		return "plaintext"
	}
}

// Classify inspects the structural prefix of stored.
func Classify(stored string) Form {
	for _, p := range BcryptPrefixes {
		if strings.HasPrefix(stored, p) {
			return FormBcrypt
		}
	}
	if strings.HasPrefix(stored, Argon2Prefix) {
		return FormArgon2
	}
	return FormPlaintext
}

// Verifier compares candidate credentials with a stored secret.
type Verifier struct {
	logger logging.Logger
}

func NewVerifier(l logging.Logger) *Verifier {
	return &Verifier{logger: l.With("module", "passwd")}
}

// Verify reports whether plaintext matches stored. A non-matching credential
// is (false, nil); an error means the stored secret itself is unusable.
func (v *Verifier) Verify(ctx context.Context, plaintext, stored string) (bool, error) {
	if stored == "" {
		return false, fmt.Errorf("%w: empty", ErrMalformedSecret)
	}

	switch Classify(stored) {
	case FormBcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, fmt.Errorf("%w: %v", ErrMalformedSecret, err)
		}

	case FormArgon2:
		return verifyArgon2(plaintext, stored)

	default:
		v.logger.Warn(ctx, "stored access password is plaintext; replace it with the output of the passwd tool",
			"form", FormPlaintext.String())
		return plaintext == stored, nil
	}
}

// HashBcrypt produces a bcrypt stored secret. Each call uses a fresh salt.
func HashBcrypt(plaintext string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(h), nil
}

// WeakBcrypt returns the cost of a bcrypt stored secret and whether it is
// below minCost. Other forms and unparsable hashes report (0, false).
func WeakBcrypt(stored string, minCost int) (int, bool) {
	if Classify(stored) != FormBcrypt {
		return 0, false
	}
	cost, err := bcrypt.Cost([]byte(stored))
	if err != nil {
		return 0, false
	}
	return cost, cost < minCost
}
