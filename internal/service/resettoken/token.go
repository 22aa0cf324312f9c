package resettoken

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Bytes of randomness behind every token
const randomBytesLen = 40

// newToken returns hex(HMAC-SHA256(key, hex(random bytes)))
// Token is 64 hex chars long: safe to put in URLs and emails
func newToken(key []byte) (string, error) {
	b := make([]byte, randomBytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error while reading random bytes. Err: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(hex.EncodeToString(b))) // nolint:errcheck

	return hex.EncodeToString(mac.Sum(nil)), nil
}
