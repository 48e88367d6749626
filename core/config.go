package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultOAuthBaseURL  = "https://login.salesforce.com/services/oauth2"
	DefaultCallbackPath  = "/oauth2/code/"
	DefaultSettingsPath  = "/settings"
	DefaultAPIVersion    = "v49.0"
	DefaultPKCETTL       = "5m"
	DefaultHTTPTimeout   = "30s"
	DefaultAPICacheTTL   = "1m"
	DefaultListenAddress = ":8080"
)

type OAuthConfig struct {
	BaseURL      string `koanf:"base_url" mapstructure:"base_url"`
	CallbackPath string `koanf:"callback_path" mapstructure:"callback_path"`
	SettingsPath string `koanf:"settings_path" mapstructure:"settings_path"`
	PKCETTL      string `koanf:"pkce_ttl" mapstructure:"pkce_ttl"`
	Timeout      string `koanf:"timeout" mapstructure:"timeout"`
}

type APIConfig struct {
	Version  string `koanf:"version" mapstructure:"version"`
	Timeout  string `koanf:"timeout" mapstructure:"timeout"`
	CacheTTL string `koanf:"cache_ttl" mapstructure:"cache_ttl"`
}

type PersistenceConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn"`
	Debug  bool   `koanf:"debug" mapstructure:"debug"`
}

type HTTPConfig struct {
	Address       string `koanf:"address" mapstructure:"address"`
	PublicBaseURL string `koanf:"public_base_url" mapstructure:"public_base_url"`
	AdminToken    string `koanf:"admin_token" mapstructure:"admin_token"`
}

type SecurityConfig struct {
	AppKey string `koanf:"app_key" mapstructure:"app_key"`
}

type RedisConfig struct {
	Address  string `koanf:"address" mapstructure:"address"`
	Password string `koanf:"password" mapstructure:"password"`
	DB       int    `koanf:"db" mapstructure:"db"`
}

type Config struct {
	ServiceName string            `koanf:"service_name" mapstructure:"service_name"`
	OAuth       OAuthConfig       `koanf:"oauth" mapstructure:"oauth"`
	API         APIConfig         `koanf:"api" mapstructure:"api"`
	Persistence PersistenceConfig `koanf:"persistence" mapstructure:"persistence"`
	HTTP        HTTPConfig        `koanf:"http" mapstructure:"http"`
	Security    SecurityConfig    `koanf:"security" mapstructure:"security"`
	Redis       RedisConfig       `koanf:"redis" mapstructure:"redis"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "salesforce",
		OAuth: OAuthConfig{
			BaseURL:      DefaultOAuthBaseURL,
			CallbackPath: DefaultCallbackPath,
			SettingsPath: DefaultSettingsPath,
			PKCETTL:      DefaultPKCETTL,
			Timeout:      DefaultHTTPTimeout,
		},
		API: APIConfig{
			Version:  DefaultAPIVersion,
			Timeout:  DefaultHTTPTimeout,
			CacheTTL: DefaultAPICacheTTL,
		},
		Persistence: PersistenceConfig{
			Driver: "sqlite3",
			DSN:    "file:connector.db?cache=shared&_foreign_keys=on",
		},
		HTTP: HTTPConfig{
			Address:       DefaultListenAddress,
			PublicBaseURL: "http://localhost:8080",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if err := validateHTTPURL(c.OAuth.BaseURL); err != nil {
		return fmt.Errorf("core: oauth.base_url: %w", err)
	}
	if strings.TrimSpace(c.HTTP.PublicBaseURL) != "" {
		if err := validateHTTPURL(c.HTTP.PublicBaseURL); err != nil {
			return fmt.Errorf("core: http.public_base_url: %w", err)
		}
	}
	if strings.TrimSpace(c.API.Version) == "" {
		return fmt.Errorf("core: api.version is required")
	}
	for name, value := range map[string]string{
		"oauth.pkce_ttl": c.OAuth.PKCETTL,
		"oauth.timeout":  c.OAuth.Timeout,
		"api.timeout":    c.API.Timeout,
		"api.cache_ttl":  c.API.CacheTTL,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("core: %s is not a valid duration: %w", name, err)
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Persistence.Driver)) {
	case "", "sqlite3", "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("core: persistence.driver %q is not supported", c.Persistence.Driver)
	}
	return nil
}

// CallbackURL is the redirect_uri registered with the provider.
func (c Config) CallbackURL() string {
	return joinURL(c.HTTP.PublicBaseURL, c.OAuth.CallbackPath)
}

// SettingsURL is where the callback handler sends the browser afterwards.
func (c Config) SettingsURL() string {
	return joinURL(c.HTTP.PublicBaseURL, c.OAuth.SettingsPath)
}

func (c Config) AuthorizeEndpoint() string {
	return strings.TrimRight(c.OAuth.BaseURL, "/") + "/authorize"
}

func (c Config) TokenEndpoint() string {
	return strings.TrimRight(c.OAuth.BaseURL, "/") + "/token"
}

func (c Config) RevokeEndpoint() string {
	return strings.TrimRight(c.OAuth.BaseURL, "/") + "/revoke"
}

func (c Config) PKCETTLDuration() time.Duration {
	return parseDurationOr(c.OAuth.PKCETTL, 5*time.Minute)
}

func (c Config) OAuthTimeout() time.Duration {
	return parseDurationOr(c.OAuth.Timeout, 30*time.Second)
}

func (c Config) APITimeout() time.Duration {
	return parseDurationOr(c.API.Timeout, 30*time.Second)
}

func (c Config) APICacheTTL() time.Duration {
	return parseDurationOr(c.API.CacheTTL, time.Minute)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func validateHTTPURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

func joinURL(base, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	path = strings.TrimSpace(path)
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
