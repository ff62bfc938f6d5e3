package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
)

const tokenEntropyBytes = 20

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSessionToken draws a high-entropy random value and encodes it as
// unpadded lower-case base32. The token is the cookie value handed to the
// client and is never persisted in raw form.
func GenerateSessionToken() (string, error) {
	raw := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return strings.ToLower(tokenEncoding.EncodeToString(raw)), nil
}

// SessionIDFromToken derives the server-side session key from a presented
// token. The mapping is deterministic and one-way: the server can always
// recompute an id from a token but never a token from a stored id.
func SessionIDFromToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
