package keys

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophchat/internal/logging"
)

func TestGenerate_PEMAndFingerprint(t *testing.T) {
	kp, err := Generate(DefaultBits)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if !strings.HasPrefix(kp.PublicKeyPEM, "-----BEGIN PUBLIC KEY-----") {
		t.Fatalf("unexpected public PEM header: %q", kp.PublicKeyPEM[:30])
	}
	if err := kp.PrivateKey().Validate(); err != nil {
		t.Fatalf("private key invalid: %v", err)
	}
	if kp.PrivateKey().N.BitLen() != DefaultBits {
		t.Fatalf("want %d-bit modulus, got %d", DefaultBits, kp.PrivateKey().N.BitLen())
	}
	if len(kp.Fingerprint) != 16 {
		t.Fatalf("fingerprint must be 16 hex chars, got %q", kp.Fingerprint)
	}
}

func TestGenerate_RejectsWeakKeys(t *testing.T) {
	_, err := Generate(1024)
	if !errors.Is(err, ErrKeyGeneration) {
		t.Fatalf("want ErrKeyGeneration, got %v", err)
	}
}

func TestKeyPair_FormattingHidesPrivateKey(t *testing.T) {
	kp, err := Generate(DefaultBits)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{fmt.Sprint(kp), fmt.Sprintf("%v", kp), fmt.Sprintf("%#v", kp)} {
		if strings.Contains(s, kp.PrivateKey().D.String()) || strings.Contains(s, "PRIVATE") {
			t.Fatalf("formatted key pair leaks private material: %s", s)
		}
	}
}

func TestProvider_GeneratesOnce(t *testing.T) {
	p := NewProvider(0, logging.Nop{})
	ctx := context.Background()

	if p.Current() != nil {
		t.Fatal("no key pair expected before Init")
	}

	var wg sync.WaitGroup
	results := make([]*KeyPair, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kp, err := p.Init(ctx)
			if err != nil {
				t.Errorf("Init: %v", err)
			}
			results[i] = kp
		}(i)
	}
	wg.Wait()

	for _, kp := range results {
		if kp != results[0] {
			t.Fatal("all callers must observe the same key pair")
		}
	}
	if p.Current() != results[0] {
		t.Fatal("Current must return the initialised pair")
	}
}

func TestProvider_FailureIsSticky(t *testing.T) {
	p := NewProvider(512, logging.Nop{})
	ctx := context.Background()

	if _, err := p.Init(ctx); !errors.Is(err, ErrKeyGeneration) {
		t.Fatalf("want ErrKeyGeneration, got %v", err)
	}
	if _, err := p.Init(ctx); !errors.Is(err, ErrKeyGeneration) {
		t.Fatalf("failure must not be retried, got %v", err)
	}
	if p.Current() != nil {
		t.Fatal("no key pair expected after failure")
	}
}
