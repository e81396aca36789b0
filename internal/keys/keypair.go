// Package keys owns the process-lifetime RSA key pair used for credential
// exchange. The pair is generated at startup, held in memory only and
// discarded on restart, so a credential encrypted for a previous process can
// never be decrypted again.
package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/cryptox"
)

const (
	// DefaultBits is the modulus size used when the config does not say otherwise.
	DefaultBits = 2048
	// MinBits rejects configurations weaker than 2048-bit RSA.
	MinBits = 2048

	publicPEMType = "PUBLIC KEY"
)

// ErrKeyGeneration is fatal: the server refuses to start without a key pair.
var ErrKeyGeneration = errors.New("key pair generation failed")

// KeyPair is immutable after Generate returns.
type KeyPair struct {
	// PublicKeyPEM is the PKIX public key served to clients.
	PublicKeyPEM string
	// Fingerprint correlates log lines with the key a client holds.
	Fingerprint string

	private *rsa.PrivateKey
}

// Generate creates a fresh RSA key pair of the given size.
func Generate(bits int) (*KeyPair, error) {
	if bits < MinBits {
		return nil, fmt.Errorf("%w: %d-bit keys are below the %d-bit minimum", ErrKeyGeneration, bits, MinBits)
	}

	private, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&private.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal public key: %v", ErrKeyGeneration, err)
	}
	publicPEM := string(pem.EncodeToMemory(&pem.Block{Type: publicPEMType, Bytes: pubDER}))

	return &KeyPair{
		PublicKeyPEM: publicPEM,
		Fingerprint:  cryptox.Fingerprint(publicPEM),
		private:      private,
	}, nil
}

// PrivateKey returns the decryption half. It never leaves the process.
func (k *KeyPair) PrivateKey() *rsa.PrivateKey {
	return k.private
}

// String hides key material from fmt and structured loggers.
func (k *KeyPair) String() string {
	return "KeyPair(" + k.Fingerprint + ")"
}

// GoString keeps %#v from dumping the private key.
func (k *KeyPair) GoString() string {
	return k.String()
}
