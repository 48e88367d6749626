package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestComputeSignature_MatchesHMACOverIDAndIssuedAt(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("https://login.salesforce.com/id/00D/005" + "1700000000000"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if got := ComputeSignature("https://login.salesforce.com/id/00D/005", "1700000000000", "secret"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestVerifySignature(t *testing.T) {
	tokens := TokenSet{ID: "id", IssuedAt: "42"}
	tokens.Signature = ComputeSignature(tokens.ID, tokens.IssuedAt, "secret")
	if !VerifySignature(tokens, "secret") {
		t.Fatalf("expected signature to verify")
	}
	if VerifySignature(tokens, "other") {
		t.Fatalf("expected wrong secret to fail")
	}
	tokens.Signature = ""
	if VerifySignature(tokens, "secret") {
		t.Fatalf("expected empty signature to fail")
	}
}
