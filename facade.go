package connector

import (
	"fmt"

	connectorcommand "github.com/goliatone/go-salesforce-connector/command"
	"github.com/goliatone/go-salesforce-connector/core"
	connectorquery "github.com/goliatone/go-salesforce-connector/query"
)

type CommandQueryService interface {
	connectorcommand.FlowService
	connectorquery.StatusReader
}

type Commands struct {
	InitiateAuth     *connectorcommand.InitiateAuthCommand
	CompleteCallback *connectorcommand.CompleteCallbackCommand
	Refresh          *connectorcommand.RefreshCommand
	Revoke           *connectorcommand.RevokeCommand
	SaveCredentials  *connectorcommand.SaveCredentialsCommand
}

type Queries struct {
	ListObjects    *connectorquery.ListObjectsQuery
	DescribeObject *connectorquery.DescribeObjectQuery
	GetField       *connectorquery.GetFieldQuery
	ListLogs       *connectorquery.ListLogsQuery
	AuthStatus     *connectorquery.AuthStatusQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	catalog     connectorquery.CatalogReader
	logs        connectorquery.LogReader
	credentials connectorcommand.CredentialWriter
	tokens      core.TokenReader
}

func WithCatalogReader(reader connectorquery.CatalogReader) FacadeOption {
	return func(options *facadeOptions) {
		options.catalog = reader
	}
}

func WithLogReader(reader connectorquery.LogReader) FacadeOption {
	return func(options *facadeOptions) {
		options.logs = reader
	}
}

func WithCredentialWriter(writer connectorcommand.CredentialWriter) FacadeOption {
	return func(options *facadeOptions) {
		options.credentials = writer
	}
}

func WithTokenReader(reader core.TokenReader) FacadeOption {
	return func(options *facadeOptions) {
		options.tokens = reader
	}
}

// NewFacade wires commands and queries over service. Stores not passed as
// options are taken from service when it exposes them (as *core.OAuthFlow does).
func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("connector: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	resolveFacadeStores(service, &cfg)

	facade := &Facade{service: service}
	facade.commands = Commands{
		InitiateAuth:     connectorcommand.NewInitiateAuthCommand(service),
		CompleteCallback: connectorcommand.NewCompleteCallbackCommand(service),
		Refresh:          connectorcommand.NewRefreshCommand(service),
		Revoke:           connectorcommand.NewRevokeCommand(service, cfg.tokens),
		SaveCredentials:  connectorcommand.NewSaveCredentialsCommand(cfg.credentials),
	}
	facade.queries = Queries{
		ListObjects:    connectorquery.NewListObjectsQuery(cfg.catalog),
		DescribeObject: connectorquery.NewDescribeObjectQuery(cfg.catalog),
		GetField:       connectorquery.NewGetFieldQuery(cfg.catalog),
		ListLogs:       connectorquery.NewListLogsQuery(cfg.logs),
		AuthStatus:     connectorquery.NewAuthStatusQuery(service),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func resolveFacadeStores(service CommandQueryService, cfg *facadeOptions) {
	if cfg.credentials == nil {
		if provider, ok := service.(interface{ Credentials() *core.CredentialStore }); ok {
			if store := provider.Credentials(); store != nil {
				cfg.credentials = store
			}
		}
	}
	if cfg.tokens == nil {
		if provider, ok := service.(interface{ Tokens() *core.TokenStore }); ok {
			if store := provider.Tokens(); store != nil {
				cfg.tokens = store
			}
		}
	}
	if cfg.logs == nil {
		if provider, ok := service.(interface{ LogStore() core.LogStore }); ok {
			if store := provider.LogStore(); store != nil {
				cfg.logs = store
			}
		}
	}
}
