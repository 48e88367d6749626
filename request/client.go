package request

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-salesforce-connector/core"
	"github.com/goliatone/go-salesforce-connector/transport"
	"golang.org/x/oauth2"
)

const cacheKeyPrefix = "salesforce::request::v1"

type Client struct {
	tokens     core.TokenReader
	refresher  core.TokenRefresher
	adapter    *transport.RESTAdapter
	cache      repositorycache.CacheService
	audit      *core.AuditLog
	logger     core.Logger
	apiVersion string
	timeout    time.Duration
}

type Option func(*Client)

func WithAPIVersion(version string) Option {
	return func(c *Client) {
		if version = strings.Trim(strings.TrimSpace(version), "/"); version != "" {
			c.apiVersion = version
		}
	}
}

func WithHTTPClient(client core.HTTPDoer) Option {
	return func(c *Client) {
		c.adapter = transport.NewRESTAdapter(client)
	}
}

func WithAdapter(adapter *transport.RESTAdapter) Option {
	return func(c *Client) {
		if adapter != nil {
			c.adapter = adapter
		}
	}
}

// WithCache enables response caching. Without it every attempt hits the
// network.
func WithCache(cache repositorycache.CacheService) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

func WithAuditLog(audit *core.AuditLog) Option {
	return func(c *Client) {
		c.audit = audit
	}
}

func WithLogger(logger core.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func NewClient(tokens core.TokenReader, refresher core.TokenRefresher, opts ...Option) *Client {
	client := &Client{
		tokens:     tokens,
		refresher:  refresher,
		apiVersion: core.DefaultAPIVersion,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.adapter == nil {
		client.adapter = transport.NewRESTAdapter(nil)
	}
	client.logger = glog.Ensure(client.logger)
	return client
}

// Request performs the call and returns classified errors to the caller.
func (c *Client) Request(ctx context.Context, method, endpoint string, data map[string]any) (Response, error) {
	return c.execute(ctx, strings.ToUpper(strings.TrimSpace(method)), endpoint, data, true)
}

// Do is the degrading boundary: failures are logged and an empty Response
// is returned.
func (c *Client) Do(ctx context.Context, method, endpoint string, data map[string]any) Response {
	res, err := c.Request(ctx, method, endpoint, data)
	if err != nil {
		c.logFailure(ctx, method, endpoint, err)
		return Response{}
	}
	return res
}

func (c *Client) Get(ctx context.Context, endpoint string, data map[string]any) Response {
	return c.Do(ctx, http.MethodGet, endpoint, data)
}

func (c *Client) Head(ctx context.Context, endpoint string, data map[string]any) Response {
	return c.Do(ctx, http.MethodHead, endpoint, data)
}

func (c *Client) Post(ctx context.Context, endpoint string, data map[string]any) Response {
	return c.Do(ctx, http.MethodPost, endpoint, data)
}

func (c *Client) Put(ctx context.Context, endpoint string, data map[string]any) Response {
	return c.Do(ctx, http.MethodPut, endpoint, data)
}

func (c *Client) Patch(ctx context.Context, endpoint string, data map[string]any) Response {
	return c.Do(ctx, http.MethodPatch, endpoint, data)
}

func (c *Client) Delete(ctx context.Context, endpoint string, data map[string]any) Response {
	return c.Do(ctx, http.MethodDelete, endpoint, data)
}

func (c *Client) Options(ctx context.Context, endpoint string, data map[string]any) Response {
	return c.Do(ctx, http.MethodOptions, endpoint, data)
}

func (c *Client) execute(ctx context.Context, method, endpoint string, data map[string]any, retry bool) (Response, error) {
	tokens, err := c.tokens.Tokens(ctx)
	if err != nil {
		return Response{}, core.MapError(err)
	}
	req, err := c.buildRequest(tokens, method, endpoint, data)
	if err != nil {
		return Response{}, err
	}
	key := cacheKey(method, req)

	fetch := func(ctx context.Context) (CachedResponse, error) {
		res, err := c.adapter.Do(ctx, req)
		if err != nil {
			return CachedResponse{}, err
		}
		return validateResponse(res, endpoint)
	}

	cached, err := c.fetch(ctx, key, retry, fetch)
	if err == nil {
		return decodeResponse(cached)
	}
	if !retry || !core.IsAuthFailure(err) {
		return Response{}, err
	}

	outcome := c.refresher.Refresh(ctx)
	if outcome.Err != nil {
		c.logger.Warn("token refresh before retry failed", "endpoint", endpoint, "error", outcome.Err)
	}
	return c.execute(ctx, method, endpoint, data, false)
}

// fetch goes to the network on first attempts and stores the result. The
// retry attempt may be satisfied by a previously stored result.
func (c *Client) fetch(
	ctx context.Context,
	key string,
	retry bool,
	fetch func(context.Context) (CachedResponse, error),
) (CachedResponse, error) {
	if c.cache == nil {
		return fetch(ctx)
	}
	if !retry {
		return repositorycache.GetOrFetch(ctx, c.cache, key, fetch)
	}
	res, err := fetch(ctx)
	if err != nil {
		return CachedResponse{}, err
	}
	c.store(ctx, key, res)
	return res, nil
}

func (c *Client) store(ctx context.Context, key string, res CachedResponse) {
	if err := c.cache.Delete(ctx, key); err != nil {
		c.logger.Debug("response cache delete failed", "key", key, "error", err)
	}
	_, err := repositorycache.GetOrFetch(ctx, c.cache, key, func(context.Context) (CachedResponse, error) {
		return res, nil
	})
	if err != nil {
		c.logger.Debug("response cache store failed", "key", key, "error", err)
	}
}

func (c *Client) buildRequest(tokens core.TokenSet, method, endpoint string, data map[string]any) (transport.Request, error) {
	instanceURL := strings.TrimSpace(tokens.InstanceURL)
	if instanceURL == "" {
		return transport.Request{}, core.NewNoInstanceURLError()
	}
	accessToken := strings.TrimSpace(tokens.AccessToken)
	if accessToken == "" {
		return transport.Request{}, core.NewNoAccessTokenError()
	}

	req := transport.Request{
		Method: method,
		URL: fmt.Sprintf("%s/services/data/%s/%s",
			strings.TrimRight(instanceURL, "/"),
			strings.Trim(c.apiVersion, "/"),
			strings.TrimLeft(strings.TrimSpace(endpoint), "/"),
		),
		Headers: map[string]string{
			"Authorization": bearerHeader(accessToken),
			"Content-Type":  "application/json",
		},
		Timeout: c.timeout,
	}
	switch method {
	case http.MethodGet:
		req.Query = queryValues(data)
	case http.MethodPatch, http.MethodPost, http.MethodPut:
		if data == nil {
			data = map[string]any{}
		}
		body, err := json.Marshal(data)
		if err != nil {
			return transport.Request{}, core.NewBadInputError("request body is not JSON encodable: " + err.Error())
		}
		req.Body = body
	}
	return req, nil
}

func bearerHeader(accessToken string) string {
	httpReq := &http.Request{Header: http.Header{}}
	(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}).SetAuthHeader(httpReq)
	return httpReq.Header.Get("Authorization")
}

// cacheKey is method + hash(url) + hash(method and body), matching the
// arguments that shape the response.
func cacheKey(method string, req transport.Request) string {
	target := req.URL
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	urlSum := sha256.Sum256([]byte(target))
	argsSum := sha256.Sum256(append([]byte(method+"\n"), req.Body...))
	return strings.Join([]string{
		cacheKeyPrefix,
		method,
		hex.EncodeToString(urlSum[:]),
		hex.EncodeToString(argsSum[:]),
	}, "::")
}

func queryValues(data map[string]any) url.Values {
	if len(data) == 0 {
		return nil
	}
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	values := url.Values{}
	for _, key := range keys {
		switch typed := data[key].(type) {
		case nil:
			values.Set(key, "")
		case []string:
			for _, item := range typed {
				values.Add(key, item)
			}
		case []any:
			for _, item := range typed {
				values.Add(key, fmt.Sprint(item))
			}
		default:
			values.Set(key, fmt.Sprint(typed))
		}
	}
	return values
}

func (c *Client) logFailure(ctx context.Context, method, endpoint string, err error) {
	fields := map[string]any{
		"method":   method,
		"endpoint": endpoint,
		"status":   core.HTTPStatus(err),
	}
	if c.audit != nil {
		c.audit.Record(ctx, core.SeverityError, core.HTTPStatus(err), err.Error(), fields)
		return
	}
	c.logger.Error("salesforce request failed", "method", method, "endpoint", endpoint, "error", err)
}
