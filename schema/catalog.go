package schema

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-salesforce-connector/core"
	"github.com/goliatone/go-salesforce-connector/request"
)

const catalogCacheKeyPrefix = "salesforce::schema::v1"

// Requester is the subset of request.Client the catalog needs.
type Requester interface {
	Request(ctx context.Context, method, endpoint string, data map[string]any) (request.Response, error)
}

type ObjectSummary struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// ObjectDescribe is the cached form of a describe call.
type ObjectDescribe struct {
	Name   string       `json:"name"`
	Label  string       `json:"label"`
	Fields []Descriptor `json:"fields"`
}

type Object struct {
	Name   string
	Label  string
	Fields []Field
	index  map[string]int
}

func (o Object) Field(name string) (Field, bool) {
	i, ok := o.index[name]
	if !ok {
		return Field{}, false
	}
	return o.Fields[i], true
}

// FieldOptions lists the fields by label behind the None sentinel.
func (o Object) FieldOptions() []Option {
	options := make([]Option, 0, len(o.Fields))
	for _, field := range o.Fields {
		options = append(options, Option{Value: field.Name, Label: field.Label})
	}
	return withNone(options)
}

type Catalog struct {
	client Requester
	cache  repositorycache.CacheService
	logger core.Logger
	audit  *core.AuditLog
}

type CatalogOption func(*Catalog)

func WithCatalogCache(cache repositorycache.CacheService) CatalogOption {
	return func(c *Catalog) {
		c.cache = cache
	}
}

func WithCatalogLogger(logger core.Logger) CatalogOption {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// WithCatalogAudit records provider failures in the connector log store.
func WithCatalogAudit(audit *core.AuditLog) CatalogOption {
	return func(c *Catalog) {
		c.audit = audit
	}
}

func NewCatalog(client Requester, opts ...CatalogOption) *Catalog {
	catalog := &Catalog{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(catalog)
		}
	}
	catalog.logger = glog.Ensure(catalog.logger)
	return catalog
}

func (c *Catalog) Objects(ctx context.Context) ([]ObjectSummary, error) {
	return cached(ctx, c.cache, catalogCacheKeyPrefix+"::objects", func(ctx context.Context) ([]ObjectSummary, error) {
		res, err := c.client.Request(ctx, http.MethodGet, "sobjects/", nil)
		if err != nil {
			c.recordFailure(ctx, "sobjects/", err)
			return nil, err
		}
		return parseObjectList(res.Map()), nil
	})
}

// ObjectOptions is the object list sorted by label behind the None sentinel.
func (c *Catalog) ObjectOptions(ctx context.Context) ([]Option, error) {
	objects, err := c.Objects(ctx)
	if err != nil {
		return nil, err
	}
	options := make([]Option, 0, len(objects))
	for _, object := range objects {
		options = append(options, Option{Value: object.Name, Label: object.Label})
	}
	return withNone(options), nil
}

// Object describes name. Names absent from the object list are NotFound.
func (c *Catalog) Object(ctx context.Context, name string) (Object, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Object{}, core.NewBadInputError("object name is required")
	}
	objects, err := c.Objects(ctx)
	if err != nil {
		return Object{}, err
	}
	summary, ok := findObject(objects, name)
	if !ok {
		return Object{}, core.NewNotFoundError(fmt.Sprintf("object %q not found", name))
	}

	describe, err := cached(ctx, c.cache, catalogCacheKeyPrefix+"::describe::"+url.PathEscape(summary.Name), func(ctx context.Context) (ObjectDescribe, error) {
		endpoint := "sobjects/" + url.PathEscape(summary.Name) + "/describe/"
		res, err := c.client.Request(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			c.recordFailure(ctx, endpoint, err)
			return ObjectDescribe{}, err
		}
		return parseDescribe(summary, res.Map()), nil
	})
	if err != nil {
		return Object{}, err
	}
	return buildObject(describe), nil
}

func (c *Catalog) Field(ctx context.Context, objectName, fieldName string) (Field, error) {
	object, err := c.Object(ctx, objectName)
	if err != nil {
		return Field{}, err
	}
	if unescaped, unescapeErr := url.PathUnescape(fieldName); unescapeErr == nil {
		fieldName = unescaped
	}
	field, ok := object.Field(strings.TrimSpace(fieldName))
	if !ok {
		return Field{}, core.NewNotFoundError(fmt.Sprintf("field %q not found on %q", fieldName, object.Name))
	}
	return field, nil
}

// Invalidate drops cached metadata, e.g. after re-authentication.
func (c *Catalog) Invalidate(ctx context.Context, objectNames ...string) {
	if c.cache == nil {
		return
	}
	keys := []string{catalogCacheKeyPrefix + "::objects"}
	for _, name := range objectNames {
		keys = append(keys, catalogCacheKeyPrefix+"::describe::"+url.PathEscape(name))
	}
	for _, key := range keys {
		if err := c.cache.Delete(ctx, key); err != nil {
			c.logger.Debug("schema cache delete failed", "key", key, "error", err)
		}
	}
}

func (c *Catalog) recordFailure(ctx context.Context, endpoint string, err error) {
	if c.audit == nil {
		c.logger.Warn("salesforce schema request failed", "endpoint", endpoint, "error", err)
		return
	}
	c.audit.Record(ctx, core.SeverityError, core.HTTPStatus(err), err.Error(), map[string]any{
		"method":   http.MethodGet,
		"endpoint": endpoint,
		"status":   core.HTTPStatus(err),
	})
}

func cached[T any](ctx context.Context, cache repositorycache.CacheService, key string, fetch func(context.Context) (T, error)) (T, error) {
	if cache == nil {
		return fetch(ctx)
	}
	return repositorycache.GetOrFetch(ctx, cache, key, fetch)
}

func findObject(objects []ObjectSummary, name string) (ObjectSummary, bool) {
	for _, object := range objects {
		if object.Name == name {
			return object, true
		}
	}
	return ObjectSummary{}, false
}

func buildObject(describe ObjectDescribe) Object {
	object := Object{
		Name:   describe.Name,
		Label:  describe.Label,
		Fields: make([]Field, 0, len(describe.Fields)),
		index:  make(map[string]int, len(describe.Fields)),
	}
	for _, descriptor := range describe.Fields {
		if descriptor.Name == "" {
			continue
		}
		if i, ok := object.index[descriptor.Name]; ok {
			object.Fields[i] = NewField(descriptor)
			continue
		}
		object.index[descriptor.Name] = len(object.Fields)
		object.Fields = append(object.Fields, NewField(descriptor))
	}
	return object
}

func parseObjectList(payload map[string]any) []ObjectSummary {
	raw, _ := payload["sobjects"].([]any)
	objects := make([]ObjectSummary, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := stringValue(entry["name"])
		if name == "" {
			continue
		}
		label := stringValue(entry["label"])
		if label == "" {
			label = name
		}
		objects = append(objects, ObjectSummary{Name: name, Label: label})
	}
	return objects
}

func parseDescribe(summary ObjectSummary, payload map[string]any) ObjectDescribe {
	describe := ObjectDescribe{Name: summary.Name, Label: stringValue(payload["label"])}
	if describe.Label == "" {
		describe.Label = summary.Label
	}
	raw, _ := payload["fields"].([]any)
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		descriptor := Descriptor{
			Name:  stringValue(entry["name"]),
			Label: stringValue(entry["label"]),
			Type:  stringValue(entry["type"]),
		}
		values, _ := entry["picklistValues"].([]any)
		for _, rawValue := range values {
			value, ok := rawValue.(map[string]any)
			if !ok {
				continue
			}
			descriptor.PicklistValues = append(descriptor.PicklistValues, PicklistValue{
				Value:        stringValue(value["value"]),
				Label:        stringValue(value["label"]),
				Active:       value["active"] == true,
				DefaultValue: value["defaultValue"] == true,
			})
		}
		describe.Fields = append(describe.Fields, descriptor)
	}
	return describe
}

func stringValue(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}
