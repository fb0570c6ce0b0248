// Package signature provides HMAC-SHA256 signing and constant-time
// verification of webhook payloads.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign computes the HMAC-SHA256 signature of the raw payload bytes and
// returns it in the format "sha256=<hex>". Callers must pass byte-identical
// payload representations on both the signing and verifying side.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig matches the expected signature for the payload.
// A "sha256=" or "sha1=" prefix on sig is stripped before comparison. It
// returns false on any malformed input, including an empty signature.
func Verify(payload []byte, secret string, sig string) bool {
	trimmed := strings.TrimSpace(sig)
	trimmed = strings.TrimPrefix(trimmed, "sha256=")
	trimmed = strings.TrimPrefix(trimmed, "sha1=")
	if trimmed == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(trimmed))
}
