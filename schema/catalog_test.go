package schema

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-salesforce-connector/core"
	"github.com/goliatone/go-salesforce-connector/request"
)

type stubRequester struct {
	mu        sync.Mutex
	endpoints []string
	responses map[string]any
}

func (s *stubRequester) Request(_ context.Context, _ string, endpoint string, _ map[string]any) (request.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints = append(s.endpoints, endpoint)
	data, ok := s.responses[endpoint]
	if !ok {
		return request.Response{}, core.NewAPIError(404, "Not Found")
	}
	return request.Response{StatusCode: 200, Data: data}, nil
}

func (s *stubRequester) calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, seen := range s.endpoints {
		if seen == endpoint {
			count++
		}
	}
	return count
}

func newStubRequester() *stubRequester {
	return &stubRequester{responses: map[string]any{
		"sobjects/": map[string]any{
			"sobjects": []any{
				map[string]any{"name": "Opportunity", "label": "Opportunity"},
				map[string]any{"name": "Account", "label": "Account"},
				map[string]any{"name": "Lead__c"},
				"bogus",
			},
		},
		"sobjects/Account/describe/": map[string]any{
			"label": "Account",
			"fields": []any{
				map[string]any{"name": "Name", "label": "Account Name", "type": "string"},
				map[string]any{"name": "NumberOfEmployees", "label": "Employees", "type": "int"},
				map[string]any{"name": "Active__c", "label": "Active", "type": "boolean"},
				map[string]any{
					"name":  "Rating",
					"label": "Rating",
					"type":  "picklist",
					"picklistValues": []any{
						map[string]any{"value": "Warm", "label": "Warm", "active": true},
						map[string]any{"value": "Cold", "label": "Cold", "active": true},
					},
				},
			},
		},
	}}
}

func newTestCache(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}

func TestCatalog_ObjectOptionsSortedWithNone(t *testing.T) {
	catalog := NewCatalog(newStubRequester())
	options, err := catalog.ObjectOptions(context.Background())
	if err != nil {
		t.Fatalf("object options: %v", err)
	}
	want := []string{"~", "Account", "Lead__c", "Opportunity"}
	if len(options) != len(want) {
		t.Fatalf("expected %d options, got %#v", len(want), options)
	}
	for i, value := range want {
		if options[i].Value != value {
			t.Fatalf("option %d: expected %q, got %q", i, value, options[i].Value)
		}
	}
	if options[2].Label != "Lead__c" {
		t.Fatalf("expected label to fall back to name, got %q", options[2].Label)
	}
}

func TestCatalog_ObjectDescribesFields(t *testing.T) {
	catalog := NewCatalog(newStubRequester())
	object, err := catalog.Object(context.Background(), "Account")
	if err != nil {
		t.Fatalf("object: %v", err)
	}
	if len(object.Fields) != 4 {
		t.Fatalf("expected 4 fields, got %d", len(object.Fields))
	}
	field, ok := object.Field("NumberOfEmployees")
	if !ok || field.Kind != KindDefault {
		t.Fatalf("expected unrecognised int to map to default, got %#v", field)
	}
	options := object.FieldOptions()
	if options[0] != NoneOption || options[1].Label != "Account Name" {
		t.Fatalf("unexpected field options: %#v", options)
	}
}

func TestCatalog_FieldReturnsPicklist(t *testing.T) {
	catalog := NewCatalog(newStubRequester())
	field, err := catalog.Field(context.Background(), "Account", "Rating")
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	if field.Kind != KindPicklist || len(field.Options) != 3 || field.Options[1].Value != "Cold" {
		t.Fatalf("unexpected picklist field: %#v", field)
	}
}

func TestCatalog_UnknownObjectIsNotFound(t *testing.T) {
	requester := newStubRequester()
	catalog := NewCatalog(requester)
	_, err := catalog.Object(context.Background(), "Nope")
	if !core.HasTextCode(err, core.ErrorNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	for _, endpoint := range requester.endpoints {
		if strings.Contains(endpoint, "Nope") {
			t.Fatalf("expected no describe call for unknown object, saw %q", endpoint)
		}
	}
}

func TestCatalog_UnknownFieldIsNotFound(t *testing.T) {
	catalog := NewCatalog(newStubRequester())
	_, err := catalog.Field(context.Background(), "Account", "Missing__c")
	if !core.HasTextCode(err, core.ErrorNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCatalog_EmptyObjectNameIsBadInput(t *testing.T) {
	catalog := NewCatalog(newStubRequester())
	_, err := catalog.Object(context.Background(), "  ")
	if !core.HasTextCode(err, core.ErrorBadInput) {
		t.Fatalf("expected bad input, got %v", err)
	}
}

func TestCatalog_CachesMetadata(t *testing.T) {
	requester := newStubRequester()
	catalog := NewCatalog(requester, WithCatalogCache(newTestCache(t)))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := catalog.Field(ctx, "Account", "Name"); err != nil {
			t.Fatalf("field: %v", err)
		}
	}
	if got := requester.calls("sobjects/"); got != 1 {
		t.Fatalf("expected one object list call, got %d", got)
	}
	if got := requester.calls("sobjects/Account/describe/"); got != 1 {
		t.Fatalf("expected one describe call, got %d", got)
	}

	catalog.Invalidate(ctx, "Account")
	if _, err := catalog.Object(ctx, "Account"); err != nil {
		t.Fatalf("object: %v", err)
	}
	if got := requester.calls("sobjects/Account/describe/"); got != 2 {
		t.Fatalf("expected describe after invalidate, got %d", got)
	}
}
