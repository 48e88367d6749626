package core

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func TestPKCEChallenge_ChallengeMatchesVerifier(t *testing.T) {
	store := NewMemoryEphemeralStore(nil)
	pkce := NewPKCEChallenge(store, time.Minute, nil)

	verifier, err := pkce.Ensure(context.Background())
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(verifier) != base64.RawURLEncoding.EncodedLen(pkceSeedBytes) {
		t.Fatalf("unexpected verifier length %d", len(verifier))
	}
	challenge, err := pkce.Challenge(context.Background())
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}
	sum := sha256.Sum256([]byte(verifier))
	if want := base64.RawURLEncoding.EncodeToString(sum[:]); challenge != want {
		t.Fatalf("expected challenge %q, got %q", want, challenge)
	}
}

func TestPKCEChallenge_ReusesVerifierInsideWindow(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryEphemeralStore(clock.Now)
	first := NewPKCEChallenge(store, 5*time.Minute, nil)
	second := NewPKCEChallenge(store, 5*time.Minute, nil)

	a, err := first.Ensure(context.Background())
	if err != nil {
		t.Fatalf("ensure first: %v", err)
	}
	clock.now = clock.now.Add(4 * time.Minute)
	b, err := second.Ensure(context.Background())
	if err != nil {
		t.Fatalf("ensure second: %v", err)
	}
	if a != b {
		t.Fatalf("expected verifier to be shared inside the window")
	}

	clock.now = clock.now.Add(2 * time.Minute)
	c, err := second.Ensure(context.Background())
	if err != nil {
		t.Fatalf("ensure after expiry: %v", err)
	}
	if c == a {
		t.Fatalf("expected a new verifier after the window elapsed")
	}
}

func TestPKCEChallenge_VerifierDoesNotGenerate(t *testing.T) {
	pkce := NewPKCEChallenge(NewMemoryEphemeralStore(nil), time.Minute, nil)
	if _, ok, err := pkce.Verifier(context.Background()); err != nil || ok {
		t.Fatalf("expected no verifier before ensure, ok=%v err=%v", ok, err)
	}
	if _, err := pkce.Ensure(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := pkce.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, ok, _ := pkce.Verifier(context.Background()); ok {
		t.Fatalf("expected verifier to be gone after reset")
	}
}

func TestStateNonce_IssueReplacesPending(t *testing.T) {
	nonce := NewStateNonce(NewMemoryEphemeralStore(nil), time.Minute, nil)
	first, err := nonce.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue first: %v", err)
	}
	second, err := nonce.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue second: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct nonces")
	}
	if err := nonce.Verify(context.Background(), first); !HasTextCode(err, ErrorInvalidState) {
		t.Fatalf("expected superseded nonce to be rejected, got %v", err)
	}
	if err := nonce.Verify(context.Background(), second); err != nil {
		t.Fatalf("expected current nonce to verify, got %v", err)
	}
	if err := nonce.Verify(context.Background(), ""); !HasTextCode(err, ErrorInvalidState) {
		t.Fatalf("expected empty state to be rejected, got %v", err)
	}
}
