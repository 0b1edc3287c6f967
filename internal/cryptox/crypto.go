// Package cryptox contains the credential-hashing primitives used by the
// offline authentication manager. The cached offline credential stores a
// one-way hash only, never the password itself.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashPassword returns the lowercase hex SHA-256 digest of the password.
// The same function is used when caching a credential after a successful
// online login and when verifying an offline login attempt, so an online
// password change invalidates the previously cached hash.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword compares the candidate password against a stored hex hash
// in constant time.
func VerifyPassword(password, storedHash string) bool {
	candidate := HashPassword(password)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1
}
