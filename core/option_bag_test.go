package core

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestOptionBag_DottedAccess(t *testing.T) {
	bag := NewOptionBag("ns", NewMemoryOptionStore())
	bag.Set("oauth.client.id", "abc")
	bag.Set("flat", 3)

	if got := bag.String("oauth.client.id", ""); got != "abc" {
		t.Fatalf("expected nested value, got %q", got)
	}
	if !bag.Has("oauth.client") || bag.Has("oauth.missing") {
		t.Fatalf("unexpected Has results")
	}
	if !bag.HasAny("missing", "flat") {
		t.Fatalf("expected HasAny to find flat")
	}
	picked := bag.Pick("flat", "oauth.client.id", "nope")
	if len(picked) != 2 || picked["oauth.client.id"] != "abc" {
		t.Fatalf("unexpected pick %v", picked)
	}
	if keys := bag.Keys(); len(keys) != 2 || keys[0] != "flat" || keys[1] != "oauth" {
		t.Fatalf("unexpected keys %v", keys)
	}

	bag.Unset("oauth.client.id")
	if bag.Has("oauth.client.id") {
		t.Fatalf("expected value to be unset")
	}
}

func TestOptionBag_FlushOnlyWhenDirty(t *testing.T) {
	store := NewMemoryOptionStore()
	bag := NewOptionBag("ns", store)
	ctx := context.Background()

	if err := bag.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if bag.Dirty() {
		t.Fatalf("expected clean bag after load")
	}
	bag.Set("key", "value")
	if stored, _ := store.Load(ctx, "ns"); len(stored) != 0 {
		t.Fatalf("expected nothing stored before flush")
	}
	if err := bag.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if stored, _ := store.Load(ctx, "ns"); stored["key"] != "value" {
		t.Fatalf("expected flushed value, got %v", stored)
	}

	bag.Clear()
	if err := bag.Flush(ctx); err != nil {
		t.Fatalf("flush clear: %v", err)
	}
	if stored, _ := store.Load(ctx, "ns"); len(stored) != 0 {
		t.Fatalf("expected namespace deleted, got %v", stored)
	}
}

func TestCredentialAndTokenStoresUseSeparateNamespaces(t *testing.T) {
	store := NewMemoryOptionStore()
	ctx := context.Background()
	creds := NewCredentialStore(store)
	tokens := NewTokenStore(store)

	if err := creds.Save(ctx, Credentials{ClientID: " id ", ClientSecret: "secret"}); err != nil {
		t.Fatalf("save credentials: %v", err)
	}
	if err := tokens.Save(ctx, TokenSet{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("save tokens: %v", err)
	}
	if err := tokens.Clear(ctx); err != nil {
		t.Fatalf("clear tokens: %v", err)
	}

	loaded, err := NewCredentialStore(store).Credentials(ctx)
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if loaded.ClientID != "id" || !loaded.Complete() {
		t.Fatalf("expected credentials to survive token clear, got %+v", loaded)
	}
	set, _ := NewTokenStore(store).Tokens(ctx)
	if set.Authenticated() {
		t.Fatalf("expected cleared tokens")
	}
}

type failingOptionStore struct {
	*MemoryOptionStore
	fail bool
}

func (s *failingOptionStore) Save(ctx context.Context, namespace string, values map[string]any) error {
	if s.fail {
		return errors.New("write refused")
	}
	return s.MemoryOptionStore.Save(ctx, namespace, values)
}

func TestOptionBag_FlushFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := &failingOptionStore{MemoryOptionStore: NewMemoryOptionStore()}
	tokens := NewTokenStore(store)

	if err := tokens.Save(ctx, TokenSet{AccessToken: "old", InstanceURL: "https://old.example.com"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	store.fail = true
	if err := tokens.Save(ctx, TokenSet{AccessToken: "new", InstanceURL: "https://new.example.com"}); err == nil {
		t.Fatalf("expected flush error")
	}
	if tokens.bag.Dirty() {
		t.Fatalf("expected bag to be clean after failed flush")
	}
	set, err := tokens.Tokens(ctx)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	if set.AccessToken != "old" || set.InstanceURL != "https://old.example.com" {
		t.Fatalf("expected persisted tokens after failed flush, got %+v", set)
	}

	store.fail = false
	stored, _ := store.Load(ctx, TokensNamespace)
	if stored[optionAccessToken] != "old" {
		t.Fatalf("expected store untouched, got %v", stored)
	}
}

func TestTokenStore_ConcurrentSaveNeverExposesPartialSet(t *testing.T) {
	ctx := context.Background()
	tokens := NewTokenStore(NewMemoryOptionStore())
	set := TokenSet{
		AccessToken:  "access",
		RefreshToken: "refresh",
		InstanceURL:  "https://example.my.salesforce.com",
		ID:           "https://login.salesforce.com/id/00D/005",
		IssuedAt:     "1700000000000",
		Signature:    "sig",
	}
	if err := tokens.Save(ctx, set); err != nil {
		t.Fatalf("save: %v", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := 0; i < 2000; i++ {
			if err := tokens.Save(ctx, set); err != nil {
				t.Errorf("save %d: %v", i, err)
				return
			}
		}
	}()

	reads, partial := 0, 0
	for {
		select {
		case <-done:
			wg.Wait()
			if partial > 0 {
				t.Fatalf("expected complete token sets, %d of %d reads were partial", partial, reads)
			}
			return
		default:
		}
		got, err := tokens.Tokens(ctx)
		if err != nil {
			t.Fatalf("tokens: %v", err)
		}
		reads++
		if got != set {
			partial++
		}
	}
}
