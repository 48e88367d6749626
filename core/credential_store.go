package core

import (
	"context"
	"fmt"
	"strings"
)

const (
	CredentialsNamespace = "salesforce_settings"
	TokensNamespace      = "salesforce_tokens"
)

const (
	optionClientID     = "client_id"
	optionClientSecret = "client_secret"

	optionAccessToken  = "access_token"
	optionRefreshToken = "refresh_token"
	optionInstanceURL  = "instance_url"
	optionIdentityID   = "id"
	optionIssuedAt     = "issued_at"
	optionSignature    = "signature"
)

// CredentialStore holds the connected app client_id and client_secret.
type CredentialStore struct {
	bag *OptionBag
}

func NewCredentialStore(store OptionStore) *CredentialStore {
	return &CredentialStore{bag: NewOptionBag(CredentialsNamespace, store)}
}

func (s *CredentialStore) Credentials(ctx context.Context) (Credentials, error) {
	if err := s.bag.Load(ctx); err != nil {
		return Credentials{}, err
	}
	values := s.bag.Pick(optionClientID, optionClientSecret)
	return Credentials{
		ClientID:     strings.TrimSpace(optionString(values, optionClientID)),
		ClientSecret: strings.TrimSpace(optionString(values, optionClientSecret)),
	}, nil
}

func (s *CredentialStore) Save(ctx context.Context, creds Credentials) error {
	if err := s.bag.Load(ctx); err != nil {
		return err
	}
	next := s.bag.All()
	next[optionClientID] = strings.TrimSpace(creds.ClientID)
	next[optionClientSecret] = strings.TrimSpace(creds.ClientSecret)
	s.bag.Replace(next)
	return s.bag.Flush(ctx)
}

func (s *CredentialStore) Clear(ctx context.Context) error {
	s.bag.Clear()
	return s.bag.Flush(ctx)
}

var tokenOptionKeys = []string{
	optionAccessToken,
	optionRefreshToken,
	optionInstanceURL,
	optionIdentityID,
	optionIssuedAt,
	optionSignature,
}

// TokenStore holds the verified TokenSet for the single connected account.
type TokenStore struct {
	bag *OptionBag
}

func NewTokenStore(store OptionStore) *TokenStore {
	return &TokenStore{bag: NewOptionBag(TokensNamespace, store)}
}

func (s *TokenStore) Tokens(ctx context.Context) (TokenSet, error) {
	if err := s.bag.Load(ctx); err != nil {
		return TokenSet{}, err
	}
	values := s.bag.Pick(tokenOptionKeys...)
	return TokenSet{
		AccessToken:  optionString(values, optionAccessToken),
		RefreshToken: optionString(values, optionRefreshToken),
		InstanceURL:  optionString(values, optionInstanceURL),
		ID:           optionString(values, optionIdentityID),
		IssuedAt:     optionString(values, optionIssuedAt),
		Signature:    optionString(values, optionSignature),
	}, nil
}

// Save replaces the stored set wholesale. Readers see either the previous set
// or the new one, never a mix.
func (s *TokenStore) Save(ctx context.Context, tokens TokenSet) error {
	next := map[string]any{}
	for key, value := range map[string]string{
		optionAccessToken:  tokens.AccessToken,
		optionRefreshToken: tokens.RefreshToken,
		optionInstanceURL:  tokens.InstanceURL,
		optionIdentityID:   tokens.ID,
		optionIssuedAt:     tokens.IssuedAt,
		optionSignature:    tokens.Signature,
	} {
		if value != "" {
			next[key] = value
		}
	}
	s.bag.Replace(next)
	return s.bag.Flush(ctx)
}

func (s *TokenStore) Clear(ctx context.Context) error {
	s.bag.Clear()
	return s.bag.Flush(ctx)
}

func optionString(values map[string]any, key string) string {
	switch typed := values[key].(type) {
	case nil:
		return ""
	case string:
		return typed
	case []byte:
		return string(typed)
	default:
		return fmt.Sprint(typed)
	}
}
