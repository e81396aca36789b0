package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/cryptox"
	"github.com/dmitrijs2005/gophchat/internal/keys"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"golang.org/x/sync/semaphore"
)

// AuthFailureKind is the machine-readable reason a login was refused.
type AuthFailureKind string

const (
	// KindDecryptionFailed: the encrypted credential could not be opened.
	// Err tells a stale key (cryptox.ErrKeyMismatch) from garbage input
	// (cryptox.ErrMalformedCiphertext).
	KindDecryptionFailed AuthFailureKind = "decryption-failed"
	// KindInvalidCredential: the credential does not match the stored secret.
	KindInvalidCredential AuthFailureKind = "invalid-credential"
	// KindExpiredCredentialPolicy: the credential was sent in a form the
	// server no longer accepts (plaintext while plaintext login is off).
	KindExpiredCredentialPolicy AuthFailureKind = "expired-credential-policy"
)

// AuthError is an expected login refusal.
type AuthError struct {
	Kind AuthFailureKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("authentication failed (%s)", e.Kind)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// AuthKind extracts the failure kind from err, if it carries one.
func AuthKind(err error) (AuthFailureKind, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}

// Credential is what a device sends to log in. Exactly one field is set;
// Encrypted is the base64 output of cryptox.EncryptCredential.
type Credential struct {
	Encrypted string
	Plaintext string
}

// PublicKey is the credential key handed to clients.
type PublicKey struct {
	PEM         string
	Fingerprint string
}

// Session is a freshly minted token.
type Session struct {
	Token     string
	TTL       time.Duration
	ExpiresAt time.Time
}

// KeySource yields the process key pair.
type KeySource interface {
	Current() *keys.KeyPair
}

// SecretVerifier checks a candidate against the stored secret.
type SecretVerifier interface {
	Verify(ctx context.Context, plaintext, stored string) (bool, error)
}

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	Issue() (string, error)
	TTL() time.Duration
}

// AuthOptions configures an AuthService.
type AuthOptions struct {
	StoredSecret        string
	AllowPlaintextLogin bool
	// MaxConcurrent bounds parallel hash verifications; 0 means GOMAXPROCS.
	MaxConcurrent int
}

// AuthService turns a credential into a session token.
type AuthService struct {
	keys     KeySource
	verifier SecretVerifier
	issuer   TokenIssuer
	opts     AuthOptions
	sem      *semaphore.Weighted
	logger   logging.Logger
	now      func() time.Time
}

func NewAuthService(k KeySource, v SecretVerifier, i TokenIssuer, opts AuthOptions, l logging.Logger) *AuthService {
	n := opts.MaxConcurrent
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return &AuthService{
		keys:     k,
		verifier: v,
		issuer:   i,
		opts:     opts,
		sem:      semaphore.NewWeighted(int64(n)),
		logger:   l.With("module", "auth_service"),
		now:      time.Now,
	}
}

// GetPublicKey returns the current credential key.
func (s *AuthService) GetPublicKey(ctx context.Context) (*PublicKey, error) {
	kp := s.keys.Current()
	if kp == nil {
		return nil, fmt.Errorf("%w: key pair not initialised", common.ErrorInternal)
	}
	return &PublicKey{PEM: kp.PublicKeyPEM, Fingerprint: kp.Fingerprint}, nil
}

// Authenticate verifies cred and issues a session. Expected refusals come
// back as *AuthError; any other error is an internal failure.
func (s *AuthService) Authenticate(ctx context.Context, cred Credential) (*Session, error) {
	plaintext, err := s.open(ctx, cred)
	if err != nil {
		return nil, err
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	ok, err := s.verifier.Verify(ctx, plaintext, s.opts.StoredSecret)
	s.sem.Release(1)

	if err != nil {
		s.logger.Error(ctx, "stored secret is unusable", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if !ok {
		s.logger.Info(ctx, "login rejected", "kind", KindInvalidCredential)
		return nil, &AuthError{Kind: KindInvalidCredential}
	}

	token, err := s.issuer.Issue()
	if err != nil {
		return nil, fmt.Errorf("%w: issue token: %v", common.ErrorInternal, err)
	}

	ttl := s.issuer.TTL()
	return &Session{Token: token, TTL: ttl, ExpiresAt: s.now().Add(ttl)}, nil
}

func (s *AuthService) open(ctx context.Context, cred Credential) (string, error) {
	switch {
	case cred.Encrypted != "":
		kp := s.keys.Current()
		if kp == nil {
			return "", fmt.Errorf("%w: key pair not initialised", common.ErrorInternal)
		}
		plaintext, err := cryptox.DecryptCredential(cred.Encrypted, kp.PrivateKey())
		if err != nil {
			s.logger.Warn(ctx, "credential decryption failed",
				"fingerprint", kp.Fingerprint, "stale_key", errors.Is(err, cryptox.ErrKeyMismatch))
			return "", &AuthError{Kind: KindDecryptionFailed, Err: err}
		}
		return plaintext, nil

	case cred.Plaintext != "":
		if !s.opts.AllowPlaintextLogin {
			s.logger.Info(ctx, "plaintext login refused by policy")
			return "", &AuthError{Kind: KindExpiredCredentialPolicy}
		}
		return cred.Plaintext, nil

	default:
		return "", &AuthError{Kind: KindInvalidCredential, Err: fmt.Errorf("%w: empty credential", common.ErrorValidation)}
	}
}
