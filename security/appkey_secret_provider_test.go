package security

import (
	"bytes"
	"context"
	"testing"
)

func TestAppKeySecretProvider_EncryptDecryptRoundTrip(t *testing.T) {
	provider, err := NewAppKeySecretProviderFromString("super-secret-test-key", WithKeyID("connector-v1"), WithVersion(3))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	plaintext := []byte(`{"client_secret":"abc"}`)
	encrypted, err := provider.Encrypt(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(encrypted, plaintext) {
		t.Fatalf("expected encrypted payload to hide plaintext")
	}
	if !bytes.HasPrefix(encrypted, []byte(envelopePrefix)) {
		t.Fatalf("expected envelope prefix")
	}

	meta, err := ParseEnvelopeMetadata(encrypted)
	if err != nil {
		t.Fatalf("parse metadata: %v", err)
	}
	if meta.KeyID != "connector-v1" || meta.Version != 3 || meta.Algorithm != envelopeAlgorithm {
		t.Fatalf("unexpected metadata: %+v", meta)
	}

	decrypted, err := provider.Decrypt(context.Background(), encrypted)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatalf("expected roundtrip plaintext; got %q", string(decrypted))
	}
}

func TestAppKeySecretProvider_RejectsMetadataMismatch(t *testing.T) {
	issuer, err := NewAppKeySecretProviderFromString("super-secret-test-key", WithKeyID("connector-v1"), WithVersion(1))
	if err != nil {
		t.Fatalf("new issuer provider: %v", err)
	}
	receiver, err := NewAppKeySecretProviderFromString("super-secret-test-key", WithKeyID("connector-v2"), WithVersion(2))
	if err != nil {
		t.Fatalf("new receiver provider: %v", err)
	}

	encrypted, err := issuer.Encrypt(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := receiver.Decrypt(context.Background(), encrypted); err == nil {
		t.Fatalf("expected metadata mismatch error")
	}
}

func TestAppKeySecretProvider_DecryptsWithRetiredKey(t *testing.T) {
	ctx := context.Background()
	old, err := NewAppKeySecretProviderFromString("old-key", WithKeyID("app-key"), WithVersion(1))
	if err != nil {
		t.Fatalf("new old provider: %v", err)
	}
	sealed, err := old.Encrypt(ctx, []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	rotated, err := NewAppKeySecretProviderFromString("new-key",
		WithKeyID("app-key"),
		WithVersion(2),
		WithRetiredKey("old-key", "app-key", 1),
	)
	if err != nil {
		t.Fatalf("new rotated provider: %v", err)
	}
	if !rotated.NeedsRotation(sealed) {
		t.Fatalf("expected payload under retired key to need rotation")
	}
	opened, err := rotated.Decrypt(ctx, sealed)
	if err != nil {
		t.Fatalf("decrypt with retired key: %v", err)
	}
	if string(opened) != "payload" {
		t.Fatalf("unexpected plaintext %q", opened)
	}

	resealed, err := rotated.Encrypt(ctx, opened)
	if err != nil {
		t.Fatalf("re-encrypt: %v", err)
	}
	if rotated.NeedsRotation(resealed) {
		t.Fatalf("expected payload under current key to be current")
	}
}

func TestAppKeySecretProvider_RejectsTampering(t *testing.T) {
	provider, err := NewAppKeySecretProviderFromString("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := provider.Decrypt(context.Background(), []byte(`{"ciphertext":"x"}`)); err == nil {
		t.Fatalf("expected missing prefix error")
	}
	if _, err := provider.Decrypt(context.Background(), []byte(envelopePrefix+`{"alg":"rot13","ciphertext":"eA=="}`)); err == nil {
		t.Fatalf("expected unsupported algorithm error")
	}
	if _, err := provider.Encrypt(context.Background(), nil); err == nil {
		t.Fatalf("expected empty plaintext error")
	}
	if _, err := NewAppKeySecretProviderFromString("  "); err == nil {
		t.Fatalf("expected key material error")
	}
}
