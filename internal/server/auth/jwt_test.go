package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestIssuer(secret string, ttl time.Duration, now time.Time) *Issuer {
	i := NewIssuer([]byte(secret), ttl)
	i.now = func() time.Time { return now }
	return i
}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	i := newTestIssuer("super-secret", time.Hour, epoch)

	tok, err := i.Issue()
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if v := i.Verify(tok); !v.Valid || v.Reason != "" {
		t.Fatalf("expected valid token, got %+v", v)
	}
}

func TestIssue_Claims(t *testing.T) {
	t.Parallel()

	i := newTestIssuer("k", 2*time.Hour, epoch)
	tok, err := i.Issue()
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	if !claims.Authenticated {
		t.Fatal("authenticated flag not set")
	}
	if !claims.IssuedAt.Time.Equal(epoch) {
		t.Fatalf("iat = %v, want %v", claims.IssuedAt.Time, epoch)
	}
	if !claims.ExpiresAt.Time.Equal(epoch.Add(2 * time.Hour)) {
		t.Fatalf("exp = %v", claims.ExpiresAt.Time)
	}
}

func TestVerify_Lifecycle(t *testing.T) {
	t.Parallel()

	ttl := 24 * time.Hour
	tok, err := newTestIssuer("secret", ttl, epoch).Issue()
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	tests := []struct {
		name   string
		at     time.Time
		valid  bool
		reason string
	}{
		{name: "just issued", at: epoch, valid: true},
		{name: "one second before expiry", at: epoch.Add(ttl - time.Second), valid: true},
		{name: "at expiry", at: epoch.Add(ttl), reason: ReasonExpired},
		{name: "ttl plus one second", at: epoch.Add(ttl + time.Second), reason: ReasonExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestIssuer("secret", ttl, tt.at).Verify(tok)
			if v.Valid != tt.valid || v.Reason != tt.reason {
				t.Fatalf("got %+v, want valid=%v reason=%q", v, tt.valid, tt.reason)
			}
		})
	}
}

func TestVerify_FlippedSignatureByte(t *testing.T) {
	t.Parallel()

	i := newTestIssuer("secret", time.Hour, epoch)
	tok, err := i.Issue()
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape %q", tok)
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	sig[0] ^= 0x01
	parts[2] = base64.RawURLEncoding.EncodeToString(sig)

	v := i.Verify(strings.Join(parts, "."))
	if v.Valid || v.Reason != ReasonInvalid {
		t.Fatalf("expected invalid, got %+v", v)
	}
}

func TestVerify_ExpiredWithBadSignatureIsInvalid(t *testing.T) {
	t.Parallel()

	tok, err := newTestIssuer("right", time.Minute, epoch).Issue()
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	v := newTestIssuer("wrong", time.Minute, epoch.Add(time.Hour)).Verify(tok)
	if v.Reason != ReasonInvalid {
		t.Fatalf("expected invalid, got %+v", v)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := newTestIssuer("right-secret", time.Hour, epoch).Issue()
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	v := newTestIssuer("wrong-secret", time.Hour, epoch).Verify(tok)
	if v.Valid || v.Reason != ReasonInvalid {
		t.Fatalf("expected invalid, got %+v", v)
	}
}

func TestVerify_MalformedString(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "not.a.jwt", "abc"} {
		if v := NewIssuer([]byte("k"), time.Hour).Verify(s); v.Reason != ReasonInvalid {
			t.Fatalf("%q: expected invalid, got %+v", s, v)
		}
	}
}

func TestVerify_RejectsUnauthenticatedAndForeignAlg(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	i := newTestIssuer("secret", time.Hour, epoch)

	noFlag := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(epoch),
			ExpiresAt: jwt.NewNumericDate(epoch.Add(time.Hour)),
		},
	})
	s, err := noFlag.SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	if v := i.Verify(s); v.Reason != ReasonInvalid {
		t.Fatalf("unauthenticated claims: got %+v", v)
	}

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(epoch),
			ExpiresAt: jwt.NewNumericDate(epoch.Add(time.Hour)),
		},
		Authenticated: true,
	})
	s, err = hs512.SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	if v := i.Verify(s); v.Reason != ReasonInvalid {
		t.Fatalf("foreign alg: got %+v", v)
	}

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Authenticated: true})
	s, err = noExp.SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	if v := i.Verify(s); v.Reason != ReasonInvalid {
		t.Fatalf("missing exp: got %+v", v)
	}
}

func TestNewIssuer_DefaultTTL(t *testing.T) {
	t.Parallel()

	if got := NewIssuer([]byte("k"), 0).TTL(); got != DefaultTTL {
		t.Fatalf("TTL = %v, want %v", got, DefaultTTL)
	}
}
