// Package connector wires the OAuth flow, the REST request client and the
// object catalog into one Salesforce connection for a single account.
package connector

import (
	"context"
	"fmt"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-salesforce-connector/core"
	"github.com/goliatone/go-salesforce-connector/request"
	"github.com/goliatone/go-salesforce-connector/schema"
)

type Config = core.Config

func DefaultConfig() Config {
	return core.DefaultConfig()
}

type Connector struct {
	flow      *core.OAuthFlow
	lifecycle *core.Lifecycle
	client    *request.Client
	catalog   *schema.Catalog
	facade    *Facade
}

type Option func(*options)

type options struct {
	flowOptions []core.Option
	cache       repositorycache.CacheService
	apiClient   core.HTTPDoer
}

// WithFlowOptions forwards options to core.NewOAuthFlow.
func WithFlowOptions(opts ...core.Option) Option {
	return func(o *options) {
		o.flowOptions = append(o.flowOptions, opts...)
	}
}

// WithCache replaces the response and describe cache.
func WithCache(cache repositorycache.CacheService) Option {
	return func(o *options) {
		o.cache = cache
	}
}

// WithAPIHTTPClient sets the client used for REST calls. Token calls use the
// flow's client.
func WithAPIHTTPClient(client core.HTTPDoer) Option {
	return func(o *options) {
		o.apiClient = client
	}
}

func New(cfg Config, opts ...Option) (*Connector, error) {
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	flow, err := core.NewOAuthFlow(cfg, o.flowOptions...)
	if err != nil {
		return nil, err
	}
	resolved := flow.Config()

	cache := o.cache
	if cache == nil && resolved.APICacheTTL() > 0 {
		cacheConfig := repositorycache.DefaultConfig()
		cacheConfig.TTL = resolved.APICacheTTL()
		cache, err = repositorycache.NewCacheService(cacheConfig)
		if err != nil {
			return nil, fmt.Errorf("connector: create cache: %w", err)
		}
	}

	clientOpts := []request.Option{
		request.WithAPIVersion(resolved.API.Version),
		request.WithTimeout(resolved.APITimeout()),
		request.WithAuditLog(flow.Audit()),
		request.WithLogger(flow.Logger()),
	}
	if cache != nil {
		clientOpts = append(clientOpts, request.WithCache(cache))
	}
	if o.apiClient != nil {
		clientOpts = append(clientOpts, request.WithHTTPClient(o.apiClient))
	}
	client := request.NewClient(flow.Tokens(), flow, clientOpts...)

	catalogOpts := []schema.CatalogOption{
		schema.WithCatalogLogger(flow.Logger()),
		schema.WithCatalogAudit(flow.Audit()),
	}
	if cache != nil {
		catalogOpts = append(catalogOpts, schema.WithCatalogCache(cache))
	}
	catalog := schema.NewCatalog(client, catalogOpts...)

	facade, err := NewFacade(flow, WithCatalogReader(catalog))
	if err != nil {
		return nil, err
	}

	return &Connector{
		flow:      flow,
		lifecycle: core.NewLifecycle(flow),
		client:    client,
		catalog:   catalog,
		facade:    facade,
	}, nil
}

func (c *Connector) Config() Config             { return c.flow.Config() }
func (c *Connector) Flow() *core.OAuthFlow      { return c.flow }
func (c *Connector) Lifecycle() *core.Lifecycle { return c.lifecycle }
func (c *Connector) Client() *request.Client    { return c.client }
func (c *Connector) Catalog() *schema.Catalog   { return c.catalog }
func (c *Connector) Facade() *Facade            { return c.facade }
func (c *Connector) Install(ctx context.Context) error {
	return c.lifecycle.Install(ctx)
}

// Teardown revokes the stored refresh token, clears stored state and drops
// log storage. The cached object list is invalidated as well.
func (c *Connector) Teardown(ctx context.Context) (core.RevokeOutcome, error) {
	outcome, err := c.lifecycle.Teardown(ctx)
	c.catalog.Invalidate(ctx)
	return outcome, err
}
