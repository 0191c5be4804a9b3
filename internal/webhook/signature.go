package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// VerifySignature reports whether sig (hex-encoded) is the HMAC-SHA256 of
// body keyed by secret, compared in constant time. The tracker here carries
// its own raw hex signature header rather than a vendor SDK verifier, since
// no vendor SDK in the corpus speaks this tracker's signature format.
// Exported so internal/server can apply the same check to the
// /webhooks/codegen callback, which carries the same header shape but is
// not itself a tracker delivery.
func VerifySignature(body []byte, sig, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	decoded, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(decoded, expected) == 1
}
