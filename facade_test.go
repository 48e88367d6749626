package connector

import (
	"context"
	"strings"
	"testing"

	gocmd "github.com/goliatone/go-command"
	connectorcommand "github.com/goliatone/go-salesforce-connector/command"
	"github.com/goliatone/go-salesforce-connector/core"
	connectorquery "github.com/goliatone/go-salesforce-connector/query"
	"github.com/goliatone/go-salesforce-connector/schema"
)

type stubCatalog struct{}

func (stubCatalog) ObjectOptions(context.Context) ([]schema.Option, error) {
	return []schema.Option{{Value: "Account", Label: "Account"}}, nil
}

func (stubCatalog) Object(context.Context, string) (schema.Object, error) {
	return schema.Object{Name: "Account", Label: "Account"}, nil
}

func (stubCatalog) Field(context.Context, string, string) (schema.Field, error) {
	return schema.Field{}, nil
}

func newTestFlow(t *testing.T) *core.OAuthFlow {
	t.Helper()
	cfg := core.Config{}
	cfg.OAuth.BaseURL = "https://login.example.com/services/oauth2"
	cfg.HTTP.PublicBaseURL = "https://connector.example.com"
	flow, err := core.NewOAuthFlow(cfg)
	if err != nil {
		t.Fatalf("new oauth flow: %v", err)
	}
	return flow
}

func TestNewFacadeRequiresService(t *testing.T) {
	if _, err := NewFacade(nil); err == nil {
		t.Fatalf("expected error for nil service")
	}
}

func TestFacadeResolvesStoresFromFlow(t *testing.T) {
	flow := newTestFlow(t)
	facade, err := NewFacade(flow, WithCatalogReader(stubCatalog{}))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	ctx := context.Background()

	err = facade.Commands().SaveCredentials.Execute(ctx, connectorcommand.SaveCredentialsMessage{
		Credentials: core.Credentials{ClientID: "client-id", ClientSecret: "client-secret"},
	})
	if err != nil {
		t.Fatalf("save credentials: %v", err)
	}

	status, err := facade.Queries().AuthStatus.Query(ctx, connectorquery.AuthStatusMessage{})
	if err != nil {
		t.Fatalf("auth status: %v", err)
	}
	if !status.HasCredentials || status.ClientID != "client-id" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.Authenticated {
		t.Fatalf("expected unauthenticated status")
	}

	collector := gocmd.NewResult[connectorcommand.AuthorizationURL]()
	if err := facade.Commands().InitiateAuth.Execute(gocmd.ContextWithResult(ctx, collector), connectorcommand.InitiateAuthMessage{}); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	authURL, ok := collector.Load()
	if !ok || !strings.HasPrefix(string(authURL), "https://login.example.com/services/oauth2/authorize?") {
		t.Fatalf("unexpected authorization url %q", authURL)
	}

	options, err := facade.Queries().ListObjects.Query(ctx, connectorquery.ListObjectsMessage{})
	if err != nil {
		t.Fatalf("list objects: %v", err)
	}
	if len(options) != 1 || options[0].Value != "Account" {
		t.Fatalf("unexpected object options: %+v", options)
	}
}

func TestFacadeRevokeWithoutStoredTokenIsInformational(t *testing.T) {
	flow := newTestFlow(t)
	facade, err := NewFacade(flow)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	ctx := context.Background()

	collector := gocmd.NewResult[core.RevokeOutcome]()
	err = facade.Commands().Revoke.Execute(gocmd.ContextWithResult(ctx, collector), connectorcommand.RevokeMessage{UseStored: true})
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	outcome, ok := collector.Load()
	if !ok {
		t.Fatalf("expected revoke outcome")
	}
	if outcome.Success || outcome.Severity != core.SeverityInfo {
		t.Fatalf("unexpected revoke outcome: %+v", outcome)
	}

	page, err := facade.Queries().ListLogs.Query(ctx, connectorquery.ListLogsMessage{})
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if page.Total == 0 {
		t.Fatalf("expected revoke to be audited")
	}
}

func TestFacadeAccessorsOnNil(t *testing.T) {
	var facade *Facade
	if facade.Service() != nil {
		t.Fatalf("expected nil service")
	}
	if facade.Commands().Refresh != nil || facade.Queries().AuthStatus != nil {
		t.Fatalf("expected zero handlers")
	}
}
