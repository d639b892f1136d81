package users

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"unicode"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltBytes       = 16
	pbkdf2Iters     = 210_000
	pbkdf2KeyLength = 32
)

// GenerateSalt returns a fresh random salt, hex encoded.
func GenerateSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashPassword derives a password hash from the plaintext and salt.
func HashPassword(plain, salt string) string {
	key := pbkdf2.Key([]byte(plain), []byte(salt), pbkdf2Iters, pbkdf2KeyLength, sha256.New)
	return hex.EncodeToString(key)
}

// VerifyPassword reports whether plain matches the stored hash and salt.
func VerifyPassword(plain, hash, salt string) bool {
	derived := HashPassword(plain, salt)
	return subtle.ConstantTimeCompare([]byte(derived), []byte(hash)) == 1
}

// ValidatePasswordPolicy enforces the minimum strength rules: at least
// 8 characters, one uppercase letter and one digit.
func ValidatePasswordPolicy(plain string) error {
	if len(plain) < 8 {
		return ErrPasswordPolicy
	}
	var hasUpper, hasDigit bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasDigit {
		return ErrPasswordPolicy
	}
	return nil
}
