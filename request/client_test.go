package request

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-salesforce-connector/core"
)

type stubTokens struct {
	mu     sync.Mutex
	tokens core.TokenSet
}

func (s *stubTokens) Tokens(context.Context) (core.TokenSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens, nil
}

func (s *stubTokens) set(tokens core.TokenSet) {
	s.mu.Lock()
	s.tokens = tokens
	s.mu.Unlock()
}

type stubRefresher struct {
	calls   int
	onCall  func()
	outcome core.RefreshOutcome
}

func (s *stubRefresher) Refresh(context.Context) core.RefreshOutcome {
	s.calls++
	if s.onCall != nil {
		s.onCall()
	}
	return s.outcome
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Type   string
	Body   string
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(n int, w http.ResponseWriter, r *http.Request)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
		Type:   r.Header.Get("Content-Type"),
		Body:   string(body),
	})
	n := len(f.requests)
	handler := f.handler
	f.mu.Unlock()
	handler(n, w, r)
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeAPI) request(i int) recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func newTestClient(t *testing.T, api *fakeAPI, opts ...Option) (*Client, *stubTokens, *stubRefresher) {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	tokens := &stubTokens{tokens: core.TokenSet{
		AccessToken:  "access-1",
		RefreshToken: "refresh",
		InstanceURL:  server.URL + "/",
	}}
	refresher := &stubRefresher{}
	opts = append([]Option{WithHTTPClient(server.Client())}, opts...)
	return NewClient(tokens, refresher, opts...), tokens, refresher
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

func TestClient_GetBuildsVersionedURLWithQuery(t *testing.T) {
	api := &fakeAPI{handler: func(_ int, w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"totalSize": 1})
	}}
	client, _, _ := newTestClient(t, api)

	res, err := client.Request(context.Background(), "get", "/query", map[string]any{"q": "SELECT Id FROM Account"})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.Map()["totalSize"] != float64(1) {
		t.Fatalf("unexpected data %v", res.Data)
	}
	got := api.request(0)
	if got.Path != "/services/data/v49.0/query" {
		t.Fatalf("unexpected path %q", got.Path)
	}
	if got.Query != "q=SELECT+Id+FROM+Account" {
		t.Fatalf("unexpected query %q", got.Query)
	}
	if got.Auth != "Bearer access-1" || got.Type != "application/json" {
		t.Fatalf("unexpected headers auth=%q type=%q", got.Auth, got.Type)
	}
}

func TestClient_PostEncodesJSONBody(t *testing.T) {
	api := &fakeAPI{handler: func(_ int, w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"id": "001", "success": true})
	}}
	client, _, _ := newTestClient(t, api, WithAPIVersion("/v58.0/"))

	res := client.Post(context.Background(), "sobjects/Account/", map[string]any{"Name": "Acme"})
	if res.Map()["id"] != "001" {
		t.Fatalf("unexpected response %v", res.Data)
	}
	got := api.request(0)
	if got.Method != http.MethodPost || got.Path != "/services/data/v58.0/sobjects/Account/" {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.Body != `{"Name":"Acme"}` {
		t.Fatalf("unexpected body %q", got.Body)
	}
}

func TestClient_PreconditionsFailBeforeNetwork(t *testing.T) {
	api := &fakeAPI{handler: func(_ int, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}}
	client, tokens, _ := newTestClient(t, api)

	tokens.set(core.TokenSet{AccessToken: "access"})
	if _, err := client.Request(context.Background(), http.MethodGet, "sobjects", nil); !core.HasTextCode(err, core.ErrorNoInstanceURL) {
		t.Fatalf("expected no instance url, got %v", err)
	}
	tokens.set(core.TokenSet{InstanceURL: "https://na1.salesforce.com"})
	if _, err := client.Request(context.Background(), http.MethodGet, "sobjects", nil); !core.HasTextCode(err, core.ErrorNoAccessToken) {
		t.Fatalf("expected no access token, got %v", err)
	}
	if api.count() != 0 {
		t.Fatalf("expected zero network calls, got %d", api.count())
	}
}

func TestClient_UnauthorizedIssuesExactlyTwoCalls(t *testing.T) {
	api := &fakeAPI{handler: func(_ int, w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, []map[string]any{{"message": "Session expired or invalid", "errorCode": "INVALID_SESSION_ID"}})
	}}
	client, _, refresher := newTestClient(t, api)

	_, err := client.Request(context.Background(), http.MethodGet, "sobjects", nil)
	if !core.IsAuthFailure(err) {
		t.Fatalf("expected auth failure, got %v", err)
	}
	if api.count() != 2 {
		t.Fatalf("expected exactly two network calls, got %d", api.count())
	}
	if refresher.calls != 1 {
		t.Fatalf("expected one refresh, got %d", refresher.calls)
	}
}

func TestClient_RetryUsesRefreshedToken(t *testing.T) {
	api := &fakeAPI{handler: func(n int, w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-2" {
			writeJSON(w, http.StatusUnauthorized, []map[string]any{{"message": "expired"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sobjects": []any{}})
	}}
	client, tokens, refresher := newTestClient(t, api)
	refresher.onCall = func() {
		current, _ := tokens.Tokens(context.Background())
		current.AccessToken = "access-2"
		tokens.set(current)
	}

	res := client.Get(context.Background(), "sobjects", nil)
	if _, ok := res.Map()["sobjects"]; !ok {
		t.Fatalf("expected retried response, got %v", res.Data)
	}
	if api.count() != 2 {
		t.Fatalf("expected two calls, got %d", api.count())
	}
}

func TestClient_BadRequestBodyIsReturned(t *testing.T) {
	api := &fakeAPI{handler: func(_ int, w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, []map[string]any{{"message": "Required fields are missing", "errorCode": "REQUIRED_FIELD_MISSING"}})
	}}
	client, _, refresher := newTestClient(t, api)

	res, err := client.Request(context.Background(), http.MethodPost, "sobjects/Contact", map[string]any{})
	if err != nil {
		t.Fatalf("expected 400 to decode, got %v", err)
	}
	if res.StatusCode != http.StatusBadRequest || len(res.List()) != 1 {
		t.Fatalf("unexpected response %+v", res)
	}
	if refresher.calls != 0 {
		t.Fatalf("expected no refresh")
	}
}

func TestClient_ServerErrorIsAPIErrorWithoutRetry(t *testing.T) {
	api := &fakeAPI{handler: func(_ int, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}}
	client, _, refresher := newTestClient(t, api)

	_, err := client.Request(context.Background(), http.MethodGet, "sobjects", nil)
	if !core.HasTextCode(err, core.ErrorAPI) || core.HTTPStatus(err) != http.StatusInternalServerError {
		t.Fatalf("expected api error with status 500, got %v", err)
	}
	if api.count() != 1 || refresher.calls != 0 {
		t.Fatalf("expected a single call and no refresh, calls=%d refreshes=%d", api.count(), refresher.calls)
	}
	if res := client.Get(context.Background(), "sobjects", nil); !res.Empty() {
		t.Fatalf("expected boundary to degrade to empty result")
	}
}

func TestClient_MalformedAndEmptyBodies(t *testing.T) {
	api := &fakeAPI{handler: func(n int, w http.ResponseWriter, _ *http.Request) {
		if n == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("{not json"))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}}
	client, _, _ := newTestClient(t, api)

	if _, err := client.Request(context.Background(), http.MethodGet, "a", nil); !core.HasTextCode(err, core.ErrorMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
	res, err := client.Request(context.Background(), http.MethodDelete, "sobjects/Account/001", nil)
	if err != nil {
		t.Fatalf("expected empty body to succeed, got %v", err)
	}
	if !res.Empty() || res.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected response %+v", res)
	}
}

func TestClient_CacheOnlyServesRetryAttempts(t *testing.T) {
	unauthorized := false
	var mu sync.Mutex
	api := &fakeAPI{handler: func(_ int, w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		deny := unauthorized
		mu.Unlock()
		if deny {
			writeJSON(w, http.StatusUnauthorized, []map[string]any{{"message": "expired"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"name": "Account"})
	}}
	client, _, refresher := newTestClient(t, api, WithCache(newTestCache(t)))

	for i := 0; i < 2; i++ {
		if _, err := client.Request(context.Background(), http.MethodGet, "sobjects/Account/describe", nil); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if api.count() != 2 {
		t.Fatalf("expected first attempts to bypass the cache, got %d calls", api.count())
	}

	mu.Lock()
	unauthorized = true
	mu.Unlock()
	res, err := client.Request(context.Background(), http.MethodGet, "sobjects/Account/describe", nil)
	if err != nil {
		t.Fatalf("expected retry to be served from cache, got %v", err)
	}
	if res.Map()["name"] != "Account" {
		t.Fatalf("unexpected cached response %v", res.Data)
	}
	if api.count() != 3 || refresher.calls != 1 {
		t.Fatalf("expected one network call and one refresh on the retry path, calls=%d refreshes=%d", api.count(), refresher.calls)
	}
}
