// Package signature implements webhook payload authentication.
// The provider signs every delivery with HMAC-SHA256 over the raw body
// bytes, keyed by the channel secret, and sends the base64 digest in a
// request header. Verification must run on the exact bytes the decoder
// will parse and must reject before any business logic.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Sign computes the base64-encoded HMAC-SHA256 digest of body.
// Used by tests and by outbound webhook simulation tooling.
func Sign(body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signatureHeader is the valid signature for body.
// The comparison is constant-time. A missing or undecodable header yields
// false, never an error; an empty secret always fails (configuration is
// validated at startup, this is the defense at the boundary).
func Verify(body []byte, signatureHeader string, secret []byte) bool {
	if len(secret) == 0 || signatureHeader == "" {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(signatureHeader)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(decoded, mac.Sum(nil))
}
