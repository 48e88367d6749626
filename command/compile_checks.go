package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-salesforce-connector/core"
)

var (
	_ gocmd.Commander[InitiateAuthMessage]     = (*InitiateAuthCommand)(nil)
	_ gocmd.Commander[CompleteCallbackMessage] = (*CompleteCallbackCommand)(nil)
	_ gocmd.Commander[RefreshMessage]          = (*RefreshCommand)(nil)
	_ gocmd.Commander[RevokeMessage]           = (*RevokeCommand)(nil)
	_ gocmd.Commander[SaveCredentialsMessage]  = (*SaveCredentialsCommand)(nil)

	_ FlowService      = (*core.OAuthFlow)(nil)
	_ CredentialWriter = (*core.CredentialStore)(nil)
)
