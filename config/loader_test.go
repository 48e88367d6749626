package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-salesforce-connector/core"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "connector.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestFileLoaderReadsNestedYAML(t *testing.T) {
	path := writeFile(t, `
oauth:
  base_url: https://test.salesforce.com/services/oauth2
api:
  version: v58.0
`)
	raw, err := FileLoader{Path: path}.LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}
	oauth, ok := raw["oauth"].(map[string]any)
	if !ok {
		t.Fatalf("expected oauth section, got %#v", raw["oauth"])
	}
	if oauth["base_url"] != "https://test.salesforce.com/services/oauth2" {
		t.Fatalf("unexpected base_url %v", oauth["base_url"])
	}
}

func TestFileLoaderMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")
	if _, err := (FileLoader{Path: missing}).LoadRaw(context.Background()); err == nil {
		t.Fatalf("expected missing file error")
	}
	raw, err := FileLoader{Path: missing, Optional: true}.LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("optional missing file: %v", err)
	}
	if len(raw) != 0 {
		t.Fatalf("expected empty document, got %#v", raw)
	}
}

func TestFileLoaderRejectsInvalidYAML(t *testing.T) {
	path := writeFile(t, "oauth: [unterminated")
	if _, err := (FileLoader{Path: path}).LoadRaw(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadEnvReadsPrefixedVariables(t *testing.T) {
	cfg, err := LoadEnv(map[string]string{
		"CONNECTOR_OAUTH_BASE_URL":   "https://test.salesforce.com/services/oauth2",
		"CONNECTOR_HTTP_ADMIN_TOKEN": "admin",
		"CONNECTOR_REDIS_DB":         "3",
		"CONNECTOR_DATABASE_DEBUG":   "true",
		"OAUTH_BASE_URL":             "https://ignored.example.com",
	})
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if cfg.OAuth.BaseURL != "https://test.salesforce.com/services/oauth2" {
		t.Fatalf("unexpected base url %q", cfg.OAuth.BaseURL)
	}
	if cfg.HTTP.AdminToken != "admin" || cfg.Redis.DB != 3 || !cfg.Persistence.Debug {
		t.Fatalf("unexpected env config: %+v", cfg)
	}
	if cfg.API.Version != "" {
		t.Fatalf("expected unset values to stay empty, got %q", cfg.API.Version)
	}
}

func TestLoadEnvRejectsMalformedValues(t *testing.T) {
	if _, err := LoadEnv(map[string]string{"CONNECTOR_REDIS_DB": "zero"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadLayersDefaultsFileAndEnv(t *testing.T) {
	path := writeFile(t, `
service_name: sales-sync
api:
  version: v58.0
  cache_ttl: 2m
http:
  admin_token: from-file
`)
	cfg, err := Load(context.Background(), path, map[string]string{
		"CONNECTOR_HTTP_ADMIN_TOKEN": "from-env",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "sales-sync" || cfg.API.Version != "v58.0" {
		t.Fatalf("expected file values, got %+v", cfg)
	}
	if cfg.HTTP.AdminToken != "from-env" {
		t.Fatalf("expected env override, got %q", cfg.HTTP.AdminToken)
	}
	if cfg.OAuth.BaseURL != core.DefaultOAuthBaseURL || cfg.OAuth.CallbackPath != core.DefaultCallbackPath {
		t.Fatalf("expected defaults, got %+v", cfg.OAuth)
	}
}

func TestLoadRejectsInvalidResolvedConfig(t *testing.T) {
	_, err := Load(context.Background(), "", map[string]string{
		"CONNECTOR_API_TIMEOUT": "soon",
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
}
