package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-salesforce-connector/core"
)

// FlowService is the mutating surface of core.OAuthFlow.
type FlowService interface {
	Initiate(ctx context.Context, clientIDOverride string) (string, error)
	HandleCallback(ctx context.Context, params core.CallbackParams) core.CallbackOutcome
	Refresh(ctx context.Context) core.RefreshOutcome
	Revoke(ctx context.Context, token string) core.RevokeOutcome
}

type CredentialWriter interface {
	Save(ctx context.Context, credentials core.Credentials) error
}

// AuthorizationURL is the result stored by InitiateAuthCommand.
type AuthorizationURL string

type InitiateAuthCommand struct {
	service FlowService
}

func NewInitiateAuthCommand(service FlowService) *InitiateAuthCommand {
	return &InitiateAuthCommand{service: service}
}

func (c *InitiateAuthCommand) Execute(ctx context.Context, msg InitiateAuthMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: oauth flow is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	url, err := c.service.Initiate(ctx, msg.ClientID)
	if err != nil {
		return err
	}
	storeResult(ctx, AuthorizationURL(url))
	return nil
}

// CompleteCallbackCommand never fails on flow errors: the outcome, including
// its classified error, is stored for the caller to render.
type CompleteCallbackCommand struct {
	service FlowService
}

func NewCompleteCallbackCommand(service FlowService) *CompleteCallbackCommand {
	return &CompleteCallbackCommand{service: service}
}

func (c *CompleteCallbackCommand) Execute(ctx context.Context, msg CompleteCallbackMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: oauth flow is required")
	}
	storeResult(ctx, c.service.HandleCallback(ctx, msg.Params))
	return nil
}

type RefreshCommand struct {
	service FlowService
}

func NewRefreshCommand(service FlowService) *RefreshCommand {
	return &RefreshCommand{service: service}
}

func (c *RefreshCommand) Execute(ctx context.Context, _ RefreshMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: oauth flow is required")
	}
	storeResult(ctx, c.service.Refresh(ctx))
	return nil
}

type RevokeCommand struct {
	service FlowService
	tokens  core.TokenReader
}

// NewRevokeCommand takes an optional token reader used for UseStored.
func NewRevokeCommand(service FlowService, tokens core.TokenReader) *RevokeCommand {
	return &RevokeCommand{service: service, tokens: tokens}
}

func (c *RevokeCommand) Execute(ctx context.Context, msg RevokeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: oauth flow is required")
	}
	token := msg.Token
	if token == "" && msg.UseStored {
		if c.tokens == nil {
			return commandDependencyError("command: token reader is required to revoke stored tokens")
		}
		stored, err := c.tokens.Tokens(ctx)
		if err != nil {
			return err
		}
		token = stored.RefreshToken
	}
	storeResult(ctx, c.service.Revoke(ctx, token))
	return nil
}

type SaveCredentialsCommand struct {
	writer CredentialWriter
}

func NewSaveCredentialsCommand(writer CredentialWriter) *SaveCredentialsCommand {
	return &SaveCredentialsCommand{writer: writer}
}

func (c *SaveCredentialsCommand) Execute(ctx context.Context, msg SaveCredentialsMessage) error {
	if c == nil || c.writer == nil {
		return commandDependencyError("command: credential store is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.writer.Save(ctx, msg.Credentials)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
