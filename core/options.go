package core

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	opts "github.com/goliatone/go-options"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	optionStore     OptionStore
	ephemeralStore  EphemeralStore
	logStore        LogStore
	secretProvider  SecretProvider
	httpClient      HTTPDoer
	random          io.Reader
	now             func() time.Time
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithOptionStore(store OptionStore) Option {
	return func(b *serviceBuilder) {
		b.optionStore = store
	}
}

func WithEphemeralStore(store EphemeralStore) Option {
	return func(b *serviceBuilder) {
		b.ephemeralStore = store
	}
}

func WithLogStore(store LogStore) Option {
	return func(b *serviceBuilder) {
		b.logStore = store
	}
}

func WithSecretProvider(provider SecretProvider) Option {
	return func(b *serviceBuilder) {
		b.secretProvider = provider
	}
}

// WithHTTPClient sets the client used for token, refresh and revoke calls.
func WithHTTPClient(client HTTPDoer) Option {
	return func(b *serviceBuilder) {
		b.httpClient = client
	}
}

// WithRandom replaces crypto/rand as the source for verifiers and nonces.
func WithRandom(reader io.Reader) Option {
	return func(b *serviceBuilder) {
		b.random = reader
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.now = now
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	return serviceBuilder{
		runtimeConfig:   runtime,
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     MapError,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		now:             func() time.Time { return time.Now().UTC() },
	}
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	return copyAnyMap(l.Values), nil
}

// NewStaticConfigLoader serves a fixed raw map, mostly for tests.
func NewStaticConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: copyAnyMap(values)}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver layers defaults < loaded config < runtime overrides.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// ResolveConfig runs the provider and resolver the same way the Service does.
func ResolveConfig(ctx context.Context, runtime Config, provider ConfigProvider) (Config, error) {
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	defaults := DefaultConfig()
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	putSection(layer, "oauth", includeZero, map[string]any{
		"base_url":      cfg.OAuth.BaseURL,
		"callback_path": cfg.OAuth.CallbackPath,
		"settings_path": cfg.OAuth.SettingsPath,
		"pkce_ttl":      cfg.OAuth.PKCETTL,
		"timeout":       cfg.OAuth.Timeout,
	})
	putSection(layer, "api", includeZero, map[string]any{
		"version":   cfg.API.Version,
		"timeout":   cfg.API.Timeout,
		"cache_ttl": cfg.API.CacheTTL,
	})
	putSection(layer, "persistence", includeZero, map[string]any{
		"driver": cfg.Persistence.Driver,
		"dsn":    cfg.Persistence.DSN,
		"debug":  cfg.Persistence.Debug,
	})
	putSection(layer, "http", includeZero, map[string]any{
		"address":         cfg.HTTP.Address,
		"public_base_url": cfg.HTTP.PublicBaseURL,
		"admin_token":     cfg.HTTP.AdminToken,
	})
	putSection(layer, "security", includeZero, map[string]any{
		"app_key": cfg.Security.AppKey,
	})
	putSection(layer, "redis", includeZero, map[string]any{
		"address":  cfg.Redis.Address,
		"password": cfg.Redis.Password,
		"db":       cfg.Redis.DB,
	})
	return layer
}

func putSection(layer map[string]any, name string, includeZero bool, values map[string]any) {
	section := map[string]any{}
	for key, value := range values {
		if includeZero || !isZeroLayerValue(value) {
			section[key] = value
		}
	}
	if includeZero || len(section) > 0 {
		layer[name] = section
	}
}

func isZeroLayerValue(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case bool:
		return !typed
	case int:
		return typed == 0
	default:
		return false
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		if nested, ok := value.(map[string]any); ok {
			out[key] = copyAnyMap(nested)
			continue
		}
		out[key] = value
	}
	return out
}
