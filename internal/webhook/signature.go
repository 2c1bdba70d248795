package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Headers carried on every delivery.
const (
	SignatureHeader = "X-Shelfmark-Signature"
	EventHeader     = "X-Shelfmark-Event"
)

// Sign computes the hex-encoded HMAC-SHA256 of the payload under the
// endpoint's shared secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature in constant time.
func VerifySignature(secret string, payload []byte, signature string) bool {
	expected := Sign(secret, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
