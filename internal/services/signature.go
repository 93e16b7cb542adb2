package services

import "crypto/subtle"

// SignatureHeader carries the shared secret the gateway attaches to every
// webhook delivery.
const SignatureHeader = "verif-hash"

// VerifySignature reports whether provided matches the configured secret.
// An empty value on either side never verifies.
func VerifySignature(provided, secret string) bool {
	if provided == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1
}
