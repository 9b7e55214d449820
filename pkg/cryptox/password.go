package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. The KDF is intentionally expensive; callers must treat
// a Hash or Verify call as a bounded synchronous cost and never retry it.
const (
	memory      = 19 * 1024 // Memory usage in KiB (19 MiB)
	iterations  = 2         // Iteration count
	parallelism = 1         // Number of threads
	keyLength   = 32        // Length of the derived key
	saltLength  = 16        // Length of the salt
)

// separator joins the hex-encoded salt and derived key in the stored form.
const separator = "."

// HashPassword derives an Argon2id key from the password under a fresh random
// salt and encodes the result as "hex(salt).hex(key)".
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, keyLength)
	return hex.EncodeToString(salt) + separator + hex.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches the stored "salt.hash"
// encoding. Malformed input of any kind yields false, never a panic: an
// attacker-controlled hash column must not be able to crash a login path.
func VerifyPassword(password, encoded string) bool {
	if password == "" || encoded == "" {
		return false
	}
	saltHex, keyHex, ok := strings.Cut(encoded, separator)
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) == 0 {
		return false
	}
	expected, err := hex.DecodeString(keyHex)
	if err != nil || len(expected) == 0 {
		return false
	}
	computed := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism,
		uint32(len(expected))) // #nosec G115 - hash column length is bounded
	return subtle.ConstantTimeCompare(computed, expected) == 1
}
