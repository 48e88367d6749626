package core

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	oauthStateKey        = "salesforce:oauth:state"
	oauthStateBytes      = 24
	defaultOAuthStateTTL = 15 * time.Minute
)

// StateNonce is the single pending-authorization slot. Issuing a new nonce
// replaces the previous one, so only the most recent authorize link is valid.
type StateNonce struct {
	store  EphemeralStore
	ttl    time.Duration
	random io.Reader
}

func NewStateNonce(store EphemeralStore, ttl time.Duration, random io.Reader) *StateNonce {
	if ttl <= 0 {
		ttl = defaultOAuthStateTTL
	}
	if random == nil {
		random = rand.Reader
	}
	return &StateNonce{store: store, ttl: ttl, random: random}
}

func (s *StateNonce) Issue(ctx context.Context) (string, error) {
	if s == nil || s.store == nil {
		return "", fmt.Errorf("core: oauth state store is not configured")
	}
	raw := make([]byte, oauthStateBytes)
	if _, err := io.ReadFull(s.random, raw); err != nil {
		return "", fmt.Errorf("core: generate oauth state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(raw)
	if err := s.store.Set(ctx, oauthStateKey, []byte(state), s.ttl); err != nil {
		return "", fmt.Errorf("core: persist oauth state: %w", err)
	}
	return state, nil
}

func (s *StateNonce) Current(ctx context.Context) (string, bool, error) {
	if s == nil || s.store == nil {
		return "", false, fmt.Errorf("core: oauth state store is not configured")
	}
	value, ok, err := s.store.Get(ctx, oauthStateKey)
	if err != nil {
		return "", false, fmt.Errorf("core: read oauth state: %w", err)
	}
	if !ok || len(value) == 0 {
		return "", false, nil
	}
	return string(value), true, nil
}

// Verify compares received against the pending nonce in constant time.
func (s *StateNonce) Verify(ctx context.Context, received string) error {
	received = strings.TrimSpace(received)
	if received == "" {
		return NewInvalidStateError("oAuth state invalid")
	}
	expected, ok, err := s.Current(ctx)
	if err != nil {
		return err
	}
	if !ok || subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
		return NewInvalidStateError("oAuth state invalid")
	}
	return nil
}

func (s *StateNonce) Consume(ctx context.Context) error {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store.Delete(ctx, oauthStateKey)
}
