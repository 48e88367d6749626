package core

import (
	"context"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.TokenEndpoint() != DefaultOAuthBaseURL+"/token" {
		t.Fatalf("unexpected token endpoint %q", cfg.TokenEndpoint())
	}
	if cfg.PKCETTLDuration() != 5*time.Minute {
		t.Fatalf("unexpected pkce ttl %v", cfg.PKCETTLDuration())
	}
	if cfg.CallbackURL() != "http://localhost:8080/oauth2/code/" {
		t.Fatalf("unexpected callback url %q", cfg.CallbackURL())
	}
}

func TestConfig_ValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OAuth.BaseURL = "ftp://login.example.com"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected invalid base url")
	}
	cfg = DefaultConfig()
	cfg.API.Timeout = "soon"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected invalid duration")
	}
	cfg = DefaultConfig()
	cfg.Persistence.Driver = "mysql"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unsupported driver")
	}
}

func TestResolveConfig_RuntimeOverridesLoaded(t *testing.T) {
	loader := NewStaticConfigLoader(map[string]any{
		"api": map[string]any{"version": "v58.0"},
		"http": map[string]any{
			"public_base_url": "https://loaded.example.com",
		},
	})
	runtime := Config{}
	runtime.HTTP.PublicBaseURL = "https://runtime.example.com"

	cfg, err := ResolveConfig(context.Background(), runtime, NewCfgxConfigProvider(loader))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.API.Version != "v58.0" {
		t.Fatalf("expected loaded api version, got %q", cfg.API.Version)
	}
	if cfg.HTTP.PublicBaseURL != "https://runtime.example.com" {
		t.Fatalf("expected runtime public url, got %q", cfg.HTTP.PublicBaseURL)
	}
	if cfg.OAuth.CallbackPath != DefaultCallbackPath {
		t.Fatalf("expected default callback path, got %q", cfg.OAuth.CallbackPath)
	}
}
