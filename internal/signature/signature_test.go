package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func referenceSignature(body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyMatchesReference(t *testing.T) {
	t.Parallel()

	body := []byte(`{"events":[]}`)
	secret := []byte("channel-secret")

	sig := referenceSignature(body, secret)
	if !Verify(body, sig, secret) {
		t.Error("Verify() = false for a valid signature")
	}
	if Sign(body, secret) != sig {
		t.Error("Sign() disagrees with reference HMAC-SHA256")
	}
}

func TestVerifyTamperedBody(t *testing.T) {
	t.Parallel()

	body := []byte(`{"events":[{"type":"message"}]}`)
	secret := []byte("channel-secret")
	sig := Sign(body, secret)

	// Flip a single byte.
	tampered := append([]byte(nil), body...)
	tampered[10] ^= 0x01

	if Verify(tampered, sig, secret) {
		t.Error("Verify() = true for tampered body")
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	t.Parallel()

	body := []byte(`{"events":[]}`)
	secret := []byte("channel-secret")

	raw, _ := base64.StdEncoding.DecodeString(Sign(body, secret))
	raw[0] ^= 0x01
	bad := base64.StdEncoding.EncodeToString(raw)

	if Verify(body, bad, secret) {
		t.Error("Verify() = true for tampered signature")
	}
}

func TestVerifyRejects(t *testing.T) {
	t.Parallel()

	body := []byte(`{}`)
	secret := []byte("s")
	sig := Sign(body, secret)

	tests := []struct {
		name   string
		body   []byte
		header string
		secret []byte
	}{
		{"missing header", body, "", secret},
		{"invalid base64", body, "!!not-base64!!", secret},
		{"wrong secret", body, sig, []byte("other")},
		{"empty secret", body, sig, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if Verify(tt.body, tt.header, tt.secret) {
				t.Error("Verify() = true, want false")
			}
		})
	}
}

func TestVerifyDeterministic(t *testing.T) {
	t.Parallel()

	body := []byte(`{"events":[{"type":"follow"}]}`)
	secret := []byte("k")
	sig := Sign(body, secret)

	for i := 0; i < 100; i++ {
		if !Verify(body, sig, secret) {
			t.Fatalf("Verify() flipped to false on iteration %d", i)
		}
	}
}
