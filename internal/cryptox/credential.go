// Package cryptox implements the credential cipher: RSA-OAEP with SHA-256
// used once per login to carry the shared password from a device to the
// server, plus the public key fingerprint used for log correlation.
package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
)

// FingerprintLength is the number of hex characters kept from the hash.
const FingerprintLength = 16

var (
	// ErrPlaintextTooLong means the credential does not fit in one OAEP block.
	ErrPlaintextTooLong = errors.New("credential exceeds OAEP payload size")
	// ErrInvalidPublicKey means the PEM could not be parsed as an RSA public key.
	ErrInvalidPublicKey = errors.New("invalid public key")
	// ErrMalformedCiphertext means the input is not a ciphertext for this key
	// size at all: bad base64 or wrong length. The request should be rejected.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	// ErrKeyMismatch means a well-formed ciphertext did not open under the
	// current private key, typically because it was produced with the public
	// key of a previous process. The client should refetch the key and retry.
	ErrKeyMismatch = errors.New("ciphertext was not produced for the current key pair")
)

// MaxPlaintextSize returns the OAEP-SHA256 payload limit for pub.
func MaxPlaintextSize(pub *rsa.PublicKey) int {
	return pub.Size() - 2*sha256.Size - 2
}

// ParsePublicKey decodes a PKIX "PUBLIC KEY" PEM block holding an RSA key.
func ParsePublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrInvalidPublicKey)
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected key type %T", ErrInvalidPublicKey, key)
	}
	return pub, nil
}

// EncryptCredential encrypts plaintext for the holder of publicKeyPEM and
// returns standard base64. Oversized input fails with ErrPlaintextTooLong
// rather than being truncated.
func EncryptCredential(plaintext string, publicKeyPEM string) (string, error) {
	pub, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return "", err
	}
	return EncryptCredentialWithKey(plaintext, pub)
}

// EncryptCredentialWithKey is EncryptCredential for an already parsed key.
func EncryptCredentialWithKey(plaintext string, pub *rsa.PublicKey) (string, error) {
	if limit := MaxPlaintextSize(pub); len(plaintext) > limit {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrPlaintextTooLong, len(plaintext), limit)
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, []byte(plaintext), nil)
	if err != nil {
		return "", fmt.Errorf("oaep encrypt: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptCredential reverses EncryptCredential. The two failure modes stay
// distinguishable: ErrMalformedCiphertext for input that cannot be a
// ciphertext for this key, ErrKeyMismatch for one that fails to open.
func DecryptCredential(ciphertextB64 string, private *rsa.PrivateKey) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	if len(ciphertext) != private.Size() {
		return "", fmt.Errorf("%w: %d bytes, want %d", ErrMalformedCiphertext, len(ciphertext), private.Size())
	}

	plaintext, err := rsa.DecryptOAEP(sha256.New(), nil, private, ciphertext, nil)
	if err != nil {
		return "", ErrKeyMismatch
	}

	return string(plaintext), nil
}

// Fingerprint returns the first FingerprintLength hex characters of the
// SHA-256 of the public key PEM. For logs only, never for security decisions.
func Fingerprint(publicKeyPEM string) string {
	sum := sha256.Sum256([]byte(publicKeyPEM))
	return hex.EncodeToString(sum[:])[:FingerprintLength]
}
