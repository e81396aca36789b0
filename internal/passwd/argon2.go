package passwd

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"golang.org/x/crypto/argon2"
)

// Argon2Params are the argon2id cost parameters encoded in the stored secret.
type Argon2Params struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	SaltLen int
	KeyLen  uint32
}

// DefaultArgon2Params are the costs the passwd tool hashes with.
var DefaultArgon2Params = Argon2Params{Memory: 64 * 1024, Time: 1, Threads: 4, SaltLen: 16, KeyLen: 32}

var b64 = base64.RawStdEncoding

// HashArgon2 produces "$argon2id$v=19$m=..,t=..,p=..$salt$hash".
func HashArgon2(plaintext string, p Argon2Params) string {
	salt := common.GenerateRandByteArray(p.SaltLen)
	key := argon2.IDKey([]byte(plaintext), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		Argon2Prefix, argon2.Version, p.Memory, p.Time, p.Threads, b64.EncodeToString(salt), b64.EncodeToString(key))
}

func verifyArgon2(plaintext, stored string) (bool, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, hash
	parts := strings.Split(stored, "$")
	if len(parts) != 6 {
		return false, fmt.Errorf("%w: argon2id: expected 6 segments, got %d", ErrMalformedSecret, len(parts))
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("%w: argon2id version: %v", ErrMalformedSecret, err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("%w: argon2id version %d unsupported", ErrMalformedSecret, version)
	}

	var p Argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return false, fmt.Errorf("%w: argon2id params: %v", ErrMalformedSecret, err)
	}
	if p.Time == 0 || p.Threads == 0 {
		return false, fmt.Errorf("%w: argon2id params out of range", ErrMalformedSecret)
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: argon2id salt: %v", ErrMalformedSecret, err)
	}
	want, err := b64.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false, fmt.Errorf("%w: argon2id hash", ErrMalformedSecret)
	}

	got := argon2.IDKey([]byte(plaintext), salt, p.Time, p.Memory, p.Threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
