// Package config loads connector settings from a YAML file and CONNECTOR_*
// environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-salesforce-connector/core"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "CONNECTOR_"

var _ core.RawConfigLoader = FileLoader{}

// FileLoader reads a YAML document as the raw config layer.
type FileLoader struct {
	Path string
	// Optional makes a missing file load as an empty document.
	Optional bool
}

func (l FileLoader) LoadRaw(context.Context) (map[string]any, error) {
	path := strings.TrimSpace(l.Path)
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if l.Optional && errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

type envConfig struct {
	ServiceName string `env:"SERVICE_NAME"`

	OAuthBaseURL      string `env:"OAUTH_BASE_URL"`
	OAuthCallbackPath string `env:"OAUTH_CALLBACK_PATH"`
	OAuthSettingsPath string `env:"OAUTH_SETTINGS_PATH"`
	OAuthPKCETTL      string `env:"OAUTH_PKCE_TTL"`
	OAuthTimeout      string `env:"OAUTH_TIMEOUT"`

	APIVersion  string `env:"API_VERSION"`
	APITimeout  string `env:"API_TIMEOUT"`
	APICacheTTL string `env:"API_CACHE_TTL"`

	DatabaseDriver string `env:"DATABASE_DRIVER"`
	DatabaseDSN    string `env:"DATABASE_DSN"`
	DatabaseDebug  bool   `env:"DATABASE_DEBUG"`

	HTTPAddress       string `env:"HTTP_ADDRESS"`
	HTTPPublicBaseURL string `env:"HTTP_PUBLIC_BASE_URL"`
	HTTPAdminToken    string `env:"HTTP_ADMIN_TOKEN"`

	AppKey string `env:"APP_KEY"`

	RedisAddress  string `env:"REDIS_ADDRESS"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`
}

// LoadEnv reads CONNECTOR_* overrides into a runtime config layer. Unset
// variables stay zero so lower layers win. A nil environ reads the process
// environment.
func LoadEnv(environ map[string]string) (core.Config, error) {
	options := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		options.Environment = environ
	}
	var values envConfig
	if err := env.ParseWithOptions(&values, options); err != nil {
		return core.Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	return core.Config{
		ServiceName: values.ServiceName,
		OAuth: core.OAuthConfig{
			BaseURL:      values.OAuthBaseURL,
			CallbackPath: values.OAuthCallbackPath,
			SettingsPath: values.OAuthSettingsPath,
			PKCETTL:      values.OAuthPKCETTL,
			Timeout:      values.OAuthTimeout,
		},
		API: core.APIConfig{
			Version:  values.APIVersion,
			Timeout:  values.APITimeout,
			CacheTTL: values.APICacheTTL,
		},
		Persistence: core.PersistenceConfig{
			Driver: values.DatabaseDriver,
			DSN:    values.DatabaseDSN,
			Debug:  values.DatabaseDebug,
		},
		HTTP: core.HTTPConfig{
			Address:       values.HTTPAddress,
			PublicBaseURL: values.HTTPPublicBaseURL,
			AdminToken:    values.HTTPAdminToken,
		},
		Security: core.SecurityConfig{AppKey: values.AppKey},
		Redis: core.RedisConfig{
			Address:  values.RedisAddress,
			Password: values.RedisPassword,
			DB:       values.RedisDB,
		},
	}, nil
}

// Load resolves defaults < file < environment. The result can be passed to
// connector.New as the runtime layer.
func Load(ctx context.Context, path string, environ map[string]string) (core.Config, error) {
	defaults := core.DefaultConfig()
	loaded, err := core.NewCfgxConfigProvider(FileLoader{Path: path, Optional: path == ""}).Load(ctx, defaults)
	if err != nil {
		return core.Config{}, err
	}
	runtime, err := LoadEnv(environ)
	if err != nil {
		return core.Config{}, err
	}
	resolved, err := core.GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
	if err != nil {
		return core.Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return core.Config{}, err
	}
	return resolved, nil
}
