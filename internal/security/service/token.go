package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

// tokenFormat is 256 bits rendered as lowercase hex.
var tokenFormat = regexp.MustCompile(`^[0-9a-f]{64}$`)

func validTokenFormat(token string) bool {
	return tokenFormat.MatchString(token)
}

// mintToken returns 32 random bytes hex-encoded. Used for both alert
// tokens and signing secrets.
func mintToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// computeSignature is HMAC-SHA256 over "<unixMillis>:<nonce>".
func computeSignature(secret string, timestamp int64, nonce string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(mac, "%d:%s", timestamp, nonce)
	return hex.EncodeToString(mac.Sum(nil))
}

// signatureEqual compares hex signatures in constant time.
func signatureEqual(supplied, expected string) bool {
	return hmac.Equal([]byte(supplied), []byte(expected))
}
