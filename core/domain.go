package core

import (
	"strings"
	"time"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

func ParseSeverity(raw string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(raw))) {
	case SeverityInfo:
		return SeverityInfo
	case SeverityWarning:
		return SeverityWarning
	default:
		return SeverityError
	}
}

type FlowState string

const (
	FlowStateUnauthenticated        FlowState = "unauthenticated"
	FlowStateAuthorizationRequested FlowState = "authorization_requested"
	FlowStateCallbackReceived       FlowState = "callback_received"
	FlowStateAuthenticated          FlowState = "authenticated"
	FlowStateFailed                 FlowState = "failed"
	FlowStateRefreshing             FlowState = "refreshing"
	FlowStateRevoked                FlowState = "revoked"
)

type Credentials struct {
	ClientID     string
	ClientSecret string
}

func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.ClientID) != "" && strings.TrimSpace(c.ClientSecret) != ""
}

// TokenSet mirrors the provider token response. It is only persisted after
// its signature has been verified.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	InstanceURL  string
	ID           string
	IssuedAt     string
	Signature    string
}

func (t TokenSet) Authenticated() bool {
	return strings.TrimSpace(t.RefreshToken) != ""
}

type LogEntry struct {
	ID        string
	Timestamp time.Time
	Code      int
	Severity  Severity
	Message   string
	Trace     string
}

type LogPage struct {
	Entries []LogEntry
	Total   int
	Page    int
	PerPage int
}

type CallbackParams struct {
	Code  string
	State string
}

// CallbackOutcome is the terminal result of a redirect callback. Message is
// the operator-facing explanation; RedirectURL points back at the settings
// surface.
type CallbackOutcome struct {
	State       FlowState
	Severity    Severity
	Message     string
	RedirectURL string
	Err         error
}

func (o CallbackOutcome) Succeeded() bool {
	return o.Err == nil && o.State == FlowStateAuthenticated
}

type RefreshOutcome struct {
	Refreshed bool
	Cleared   bool
	Message   string
	Err       error
}

type RevokeOutcome struct {
	Success  bool
	Severity Severity
	Message  string
	Err      error
}

type AuthStatus struct {
	State          FlowState
	HasCredentials bool
	Authenticated  bool
	InstanceURL    string
	ClientID       string
}
