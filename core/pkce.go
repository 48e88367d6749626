package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const (
	pkceSeedKey    = "salesforce:pkce:seed"
	pkceSeedBytes  = 40
	defaultPKCETTL = 5 * time.Minute
)

// PKCEChallenge owns the code verifier for the in-flight authorization. The
// raw seed lives in the EphemeralStore so every process inside the ttl window
// derives the same verifier.
type PKCEChallenge struct {
	mu     sync.Mutex
	store  EphemeralStore
	ttl    time.Duration
	random io.Reader
}

func NewPKCEChallenge(store EphemeralStore, ttl time.Duration, random io.Reader) *PKCEChallenge {
	if ttl <= 0 {
		ttl = defaultPKCETTL
	}
	if random == nil {
		random = rand.Reader
	}
	return &PKCEChallenge{store: store, ttl: ttl, random: random}
}

// Ensure returns the current verifier, generating and persisting a new seed
// when none is live.
func (p *PKCEChallenge) Ensure(ctx context.Context) (string, error) {
	if p == nil || p.store == nil {
		return "", fmt.Errorf("core: pkce store is not configured")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	seed, ok, err := p.store.Get(ctx, pkceSeedKey)
	if err != nil {
		return "", fmt.Errorf("core: read pkce seed: %w", err)
	}
	if ok && len(seed) > 0 {
		return encodeVerifier(seed), nil
	}

	seed = make([]byte, pkceSeedBytes)
	if _, err := io.ReadFull(p.random, seed); err != nil {
		return "", fmt.Errorf("core: generate pkce seed: %w", err)
	}
	if err := p.store.Set(ctx, pkceSeedKey, seed, p.ttl); err != nil {
		return "", fmt.Errorf("core: persist pkce seed: %w", err)
	}
	return encodeVerifier(seed), nil
}

// Verifier returns the live verifier without generating one.
func (p *PKCEChallenge) Verifier(ctx context.Context) (string, bool, error) {
	if p == nil || p.store == nil {
		return "", false, fmt.Errorf("core: pkce store is not configured")
	}
	seed, ok, err := p.store.Get(ctx, pkceSeedKey)
	if err != nil {
		return "", false, fmt.Errorf("core: read pkce seed: %w", err)
	}
	if !ok || len(seed) == 0 {
		return "", false, nil
	}
	return encodeVerifier(seed), true, nil
}

// Challenge is base64url(SHA-256(verifier)) for code_challenge_method=S256.
func (p *PKCEChallenge) Challenge(ctx context.Context) (string, error) {
	verifier, err := p.Ensure(ctx)
	if err != nil {
		return "", err
	}
	return oauth2.S256ChallengeFromVerifier(verifier), nil
}

func (p *PKCEChallenge) Reset(ctx context.Context) error {
	if p == nil || p.store == nil {
		return nil
	}
	return p.store.Delete(ctx, pkceSeedKey)
}

func encodeVerifier(seed []byte) string {
	return base64.RawURLEncoding.EncodeToString(seed)
}
