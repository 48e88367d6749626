package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	connector "github.com/goliatone/go-salesforce-connector"
	"github.com/goliatone/go-salesforce-connector/core"
	"github.com/goliatone/go-salesforce-connector/schema"
	"github.com/stretchr/testify/require"
)

const testAdminToken = "admin-secret"

type stubCatalog struct{}

func (stubCatalog) ObjectOptions(context.Context) ([]schema.Option, error) {
	return []schema.Option{schema.NoneOption, {Value: "Account", Label: "Account"}}, nil
}

func (stubCatalog) Object(_ context.Context, name string) (schema.Object, error) {
	if name != "Account" {
		return schema.Object{}, core.NewNotFoundError("object Opportunity__x: provider said 'INVALID_TYPE'")
	}
	return schema.Object{Name: "Account", Label: "Account", Fields: []schema.Field{
		schema.NewField(schema.Descriptor{Name: "Name", Label: "Account Name", Type: "string"}),
	}}, nil
}

func (stubCatalog) Field(_ context.Context, object, field string) (schema.Field, error) {
	if object != "Account" || field != "Active__c" {
		return schema.Field{}, core.NewNotFoundError("field not found")
	}
	return schema.NewField(schema.Descriptor{Name: "Active__c", Label: "Active", Type: "boolean"}), nil
}

type fixture struct {
	router *gin.Engine
	flow   *core.OAuthFlow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := core.DefaultConfig()
	cfg.HTTP.PublicBaseURL = "https://connector.example.com"
	cfg.HTTP.AdminToken = testAdminToken
	flow, err := core.NewOAuthFlow(cfg)
	require.NoError(t, err)

	facade, err := connector.NewFacade(flow, connector.WithCatalogReader(stubCatalog{}))
	require.NoError(t, err)

	handler, err := NewHandler(facade, flow.Config())
	require.NoError(t, err)
	return &fixture{router: NewRouter(handler), flow: flow}
}

func (f *fixture) do(t *testing.T, method, target, body string, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+testAdminToken)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestObjectsRequireAdministrator(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/objects", "", false)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/objects", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminRoutesRefusedWithoutConfiguredToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	flow, err := core.NewOAuthFlow(core.DefaultConfig())
	require.NoError(t, err)
	facade, err := connector.NewFacade(flow, connector.WithCatalogReader(stubCatalog{}))
	require.NoError(t, err)
	handler, err := NewHandler(facade, flow.Config())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/objects", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	NewRouter(handler).ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestListAndDescribeObjects(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/objects", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].([]any)
	require.Len(t, data, 2)
	require.Equal(t, "~", data[0].(map[string]any)["value"])

	w = f.do(t, http.MethodGet, "/objects/Account", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	fields := decode(t, w)["data"].([]any)
	require.Equal(t, "Name", fields[len(fields)-1].(map[string]any)["value"])
}

func TestUnknownObjectReturnsSafeEmptyPayload(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/objects/Opportunity__x", "", true)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotContains(t, w.Body.String(), "INVALID_TYPE")

	body := decode(t, w)
	require.Empty(t, body["data"])
	errPayload := body["error"].(map[string]any)
	require.Equal(t, core.ErrorNotFound, errPayload["code"])

	w = f.do(t, http.MethodGet, "/objects/Account/Missing__c", "", true)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, map[string]any{}, decode(t, w)["data"])
}

func TestGetFieldShape(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/objects/Account/Active__c", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	require.Equal(t, "select", data["type"])
	require.Equal(t, "boolean", data["subtype"])
	require.Len(t, data["options"], 2)
}

func TestCallbackRedirectsToSettingsWithOutcome(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, core.DefaultCallbackPath+"?state=abc", "", false)
	require.Equal(t, http.StatusFound, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "connector.example.com", location.Host)
	require.Equal(t, core.DefaultSettingsPath, location.Path)
	require.Equal(t, string(core.SeverityError), location.Query().Get("severity"))
	require.NotEmpty(t, location.Query().Get("message"))
	require.Equal(t, core.FlowStateFailed, f.flow.State())
}

func TestCredentialsAuthorizeAndStatus(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/auth/credentials", `{"client_id":"cid"}`, true)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, core.ErrorBadInput, decode(t, w)["error"].(map[string]any)["code"])

	w = f.do(t, http.MethodPut, "/auth/credentials", `{"client_id":"cid","client_secret":"secret"}`, true)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/auth/status", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode(t, w)["data"].(map[string]any)
	require.Equal(t, true, status["has_credentials"])
	require.Equal(t, false, status["authenticated"])
	require.NotContains(t, w.Body.String(), "secret")

	w = f.do(t, http.MethodPost, "/auth/authorize", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	authURL := decode(t, w)["data"].(map[string]any)["authorization_url"].(string)
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	require.Equal(t, "cid", parsed.Query().Get("client_id"))
	require.Equal(t, "S256", parsed.Query().Get("code_challenge_method"))
}

func TestRevokeAndLogs(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/auth/revoke", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	require.Equal(t, false, data["success"])
	require.Equal(t, string(core.SeverityInfo), data["severity"])

	w = f.do(t, http.MethodGet, "/logs?page=1&per_page=5", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.NotEmpty(t, body["data"])
	require.EqualValues(t, 5, body["meta"].(map[string]any)["per_page"])

	w = f.do(t, http.MethodGet, "/logs?page=first", "", true)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettingsRedirectKeepsExistingQuery(t *testing.T) {
	target := settingsRedirect(core.CallbackOutcome{
		RedirectURL: "https://connector.example.com/settings?tab=salesforce",
		Message:     "Successfully authenticated",
		Severity:    core.SeverityInfo,
	})
	parsed, err := url.Parse(target)
	require.NoError(t, err)
	require.Equal(t, "salesforce", parsed.Query().Get("tab"))
	require.Equal(t, "Successfully authenticated", parsed.Query().Get("message"))
	require.Equal(t, "info", parsed.Query().Get("severity"))
}
