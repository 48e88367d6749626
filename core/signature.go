package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// ComputeSignature returns base64(HMAC-SHA256(id || issuedAt, clientSecret)).
func ComputeSignature(id, issuedAt, clientSecret string) string {
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(id + issuedAt))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the provider signature over the token identity.
func VerifySignature(tokens TokenSet, clientSecret string) bool {
	if tokens.Signature == "" {
		return false
	}
	expected := ComputeSignature(tokens.ID, tokens.IssuedAt, clientSecret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(tokens.Signature)) == 1
}
