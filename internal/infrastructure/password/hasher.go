// Package password hashes and verifies user credentials.
//
// New hashes are argon2id PHC strings. Hashes carried over from the previous
// backend use the "<hex salt>:<hex key>" scrypt layout; they still verify and
// are reported by NeedsUpgrade so callers can re-hash them.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/text/unicode/norm"
)

const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // KiB
	argon2Threads = 4
	argon2SaltLen = 16
	argon2KeyLen  = 32

	argon2Prefix = "$argon2id$"

	// Upper bounds for parameters read back from stored hashes.
	argon2MaxMemory     = 1024 * 1024 // KiB, 1 GiB
	argon2MaxIterations = 16
)

// Parameters of the legacy scrypt hashes.
const (
	scryptN      = 16384
	scryptR      = 16
	scryptP      = 1
	scryptKeyLen = 64
)

var ErrEmptyPassword = oops.Code("PASSWORD_EMPTY").Errorf("password cannot be empty")

// Hasher implements ports.PasswordHasher.
type Hasher struct{}

func NewHasher() *Hasher {
	return &Hasher{}
}

// Hash returns an argon2id PHC string for password.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("PASSWORD_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey(normalize(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks password against an argon2id or legacy scrypt hash in constant time.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, argon2Prefix):
		return verifyArgon2id(password, encoded)
	case isScrypt(encoded):
		return verifyScrypt(password, encoded)
	default:
		return false, oops.Code("PASSWORD_INVALID_HASH").Errorf("unrecognised hash format")
	}
}

// NeedsUpgrade reports whether encoded is not an argon2id hash.
func (h *Hasher) NeedsUpgrade(encoded string) bool {
	return !strings.HasPrefix(encoded, argon2Prefix)
}

func verifyArgon2id(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false, oops.Code("PASSWORD_INVALID_HASH").Errorf("invalid argon2id hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, oops.Code("PASSWORD_INVALID_HASH").Wrap(err)
	}
	if version != argon2.Version {
		return false, oops.Code("PASSWORD_INVALID_HASH").Errorf("unsupported argon2 version %d", version)
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, oops.Code("PASSWORD_INVALID_HASH").Wrap(err)
	}
	if threads == 0 || threads > 255 || iterations == 0 || iterations > argon2MaxIterations {
		return false, oops.Code("PASSWORD_INVALID_HASH").Errorf("invalid argon2 parameters")
	}
	if memory == 0 || memory > argon2MaxMemory {
		return false, oops.Code("PASSWORD_INVALID_HASH").Errorf("argon2 memory %d KiB out of range", memory)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code("PASSWORD_INVALID_HASH").Wrap(err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, oops.Code("PASSWORD_INVALID_HASH").Wrap(err)
	}
	if len(expected) == 0 || len(expected) > 1024 {
		return false, oops.Code("PASSWORD_INVALID_HASH").Errorf("invalid key length %d", len(expected))
	}

	computed := argon2.IDKey(normalize(password), salt, iterations, memory, uint8(threads), uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func isScrypt(encoded string) bool {
	salt, key, ok := strings.Cut(encoded, ":")
	return ok && salt != "" && key != "" && !strings.Contains(encoded, "$")
}

// verifyScrypt checks the legacy layout. The salt is used as its hex text, not decoded.
func verifyScrypt(password, encoded string) (bool, error) {
	salt, keyHex, _ := strings.Cut(encoded, ":")
	expected, err := hex.DecodeString(keyHex)
	if err != nil {
		return false, oops.Code("PASSWORD_INVALID_HASH").Wrap(err)
	}
	if len(expected) != scryptKeyLen {
		return false, oops.Code("PASSWORD_INVALID_HASH").Errorf("invalid scrypt key length %d", len(expected))
	}

	computed, err := scrypt.Key(normalize(password), []byte(salt), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return false, oops.Code("PASSWORD_SCRYPT_FAILED").Wrap(err)
	}
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func normalize(password string) []byte {
	return []byte(norm.NFKC.String(password))
}
