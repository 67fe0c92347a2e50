package crypto

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize    = 64
	saltSize   = 16
	iterations = 350000
)

// PBKDF2Store derives password hashes with PBKDF2-SHA512 and a per-hash
// random salt. Hashes are stored as hex(salt)$hex(key).
type PBKDF2Store struct{}

func NewPBKDF2Store() *PBKDF2Store {
	return &PBKDF2Store{}
}

func (*PBKDF2Store) Hash(password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha512.New)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(key), nil
}

func (*PBKDF2Store) Verify(password, hash string) bool {
	parts := strings.SplitN(hash, "$", 2)
	if len(parts) != 2 {
		return false
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[1])
	if err != nil || len(want) != keySize {
		return false
	}

	got := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha512.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
