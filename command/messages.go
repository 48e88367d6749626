package command

import (
	"strings"

	"github.com/goliatone/go-salesforce-connector/core"
)

const (
	TypeInitiateAuth     = "connector.command.auth.initiate"
	TypeCompleteCallback = "connector.command.callback.complete"
	TypeRefresh          = "connector.command.refresh"
	TypeRevoke           = "connector.command.revoke"
	TypeSaveCredentials  = "connector.command.credentials.save"
)

// InitiateAuthMessage starts an authorization. An empty ClientID uses the
// stored credentials.
type InitiateAuthMessage struct {
	ClientID string
}

func (InitiateAuthMessage) Type() string { return TypeInitiateAuth }

func (m InitiateAuthMessage) Validate() error {
	if m.ClientID != "" && strings.TrimSpace(m.ClientID) == "" {
		return commandValidationError("client_id", "client id must not be blank")
	}
	return nil
}

// CompleteCallbackMessage carries the redirect parameters untouched; the flow
// itself classifies missing or forged values.
type CompleteCallbackMessage struct {
	Params core.CallbackParams
}

func (CompleteCallbackMessage) Type() string { return TypeCompleteCallback }

func (CompleteCallbackMessage) Validate() error { return nil }

type RefreshMessage struct{}

func (RefreshMessage) Type() string { return TypeRefresh }

func (RefreshMessage) Validate() error { return nil }

// RevokeMessage revokes Token, or the stored refresh token when UseStored is
// set and Token is empty.
type RevokeMessage struct {
	Token     string
	UseStored bool
}

func (RevokeMessage) Type() string { return TypeRevoke }

func (RevokeMessage) Validate() error { return nil }

type SaveCredentialsMessage struct {
	Credentials core.Credentials
}

func (SaveCredentialsMessage) Type() string { return TypeSaveCredentials }

func (m SaveCredentialsMessage) Validate() error {
	if strings.TrimSpace(m.Credentials.ClientID) == "" {
		return commandValidationError("client_id", "client id is required")
	}
	if strings.TrimSpace(m.Credentials.ClientSecret) == "" {
		return commandValidationError("client_secret", "client secret is required")
	}
	return nil
}
