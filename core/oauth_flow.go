package core

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	msgAuthenticated      = "Successfully authenticated"
	msgResponseInvalid    = "oAuth response invalid"
	msgStateInvalid       = "oAuth state invalid"
	msgFlowExpired        = "oAuth flow expired, please authorise again"
	msgSignatureFailed    = "Token signature verification failed"
	msgNoRefreshToken     = "Failed to retrieve refresh token"
	msgMissingCredentials = "Missing credentials for refreshing token"
	msgRefreshed          = "Successfully refreshed token"
	msgNothingToRevoke    = "No Access Token to revoke"
	msgRevoked            = "Access Token(s) successfully revoked"
)

// OAuthFlow drives the authorization-code + PKCE state machine for the single
// connected account. It is the only writer of the TokenStore.
type OAuthFlow struct {
	config      Config
	logger      Logger
	provider    LoggerProvider
	audit       *AuditLog
	errorMapper ErrorMapper
	credentials *CredentialStore
	tokens      *TokenStore
	ephemeral   EphemeralStore
	logStore    LogStore
	pkce        *PKCEChallenge
	nonce       *StateNonce
	httpClient  HTTPDoer
	now         func() time.Time

	refreshGroup singleflight.Group

	mu    sync.RWMutex
	state FlowState
}

func NewOAuthFlow(cfg Config, opts ...Option) (*OAuthFlow, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("salesforce", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("salesforce.oauth"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorMapper == nil {
		builder.errorMapper = MapError
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, builder.errorMapper(err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, builder.errorMapper(err)
	}

	if builder.optionStore == nil {
		builder.optionStore = NewMemoryOptionStore()
	}
	if builder.ephemeralStore == nil {
		builder.ephemeralStore = NewMemoryEphemeralStore(builder.now)
	}
	if builder.logStore == nil {
		builder.logStore = NewMemoryLogStore()
	}
	if builder.httpClient == nil {
		builder.httpClient = &http.Client{Timeout: finalConfig.OAuthTimeout()}
	}

	return &OAuthFlow{
		config:      finalConfig,
		logger:      logger,
		provider:    provider,
		audit:       NewAuditLog(logger, builder.logStore, builder.metricsRecorder, builder.now),
		errorMapper: builder.errorMapper,
		credentials: NewCredentialStore(builder.optionStore),
		tokens:      NewTokenStore(builder.optionStore),
		ephemeral:   builder.ephemeralStore,
		logStore:    builder.logStore,
		pkce:        NewPKCEChallenge(builder.ephemeralStore, finalConfig.PKCETTLDuration(), builder.random),
		nonce:       NewStateNonce(builder.ephemeralStore, finalConfig.PKCETTLDuration(), builder.random),
		httpClient:  builder.httpClient,
		now:         builder.now,
		state:       FlowStateUnauthenticated,
	}, nil
}

func (f *OAuthFlow) Config() Config                 { return f.config }
func (f *OAuthFlow) Logger() Logger                 { return f.logger }
func (f *OAuthFlow) LoggerProvider() LoggerProvider { return f.provider }
func (f *OAuthFlow) Audit() *AuditLog               { return f.audit }
func (f *OAuthFlow) Credentials() *CredentialStore  { return f.credentials }
func (f *OAuthFlow) Tokens() *TokenStore            { return f.tokens }
func (f *OAuthFlow) PKCE() *PKCEChallenge           { return f.pkce }
func (f *OAuthFlow) LogStore() LogStore             { return f.logStore }

// Initiate returns the provider authorize URL. A fresh state nonce replaces
// any pending one; the PKCE verifier is reused inside its ttl window.
func (f *OAuthFlow) Initiate(ctx context.Context, clientIDOverride string) (string, error) {
	startedAt := time.Now()
	clientID := strings.TrimSpace(clientIDOverride)
	if clientID == "" {
		creds, err := f.credentials.Credentials(ctx)
		if err != nil {
			return "", f.errorMapper(err)
		}
		clientID = creds.ClientID
	}
	if clientID == "" {
		err := NewBadInputError("client_id is required")
		f.audit.observeOperation(ctx, startedAt, "initiate", err)
		return "", err
	}

	state, err := f.nonce.Issue(ctx)
	if err != nil {
		return "", f.errorMapper(err)
	}
	verifier, err := f.pkce.Ensure(ctx)
	if err != nil {
		return "", f.errorMapper(err)
	}

	oauthConfig := oauth2.Config{
		ClientID:    clientID,
		RedirectURL: f.config.CallbackURL(),
		Endpoint: oauth2.Endpoint{
			AuthURL:  f.config.AuthorizeEndpoint(),
			TokenURL: f.config.TokenEndpoint(),
		},
	}
	authURL := oauthConfig.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	f.setState(FlowStateAuthorizationRequested)
	f.audit.observeOperation(ctx, startedAt, "initiate", nil)
	f.logger.Debug("authorization requested", "client_id", clientID)
	return authURL, nil
}

// HandleCallback validates the redirect, exchanges the code and persists the
// verified TokenSet. Every call produces exactly one audit entry.
func (f *OAuthFlow) HandleCallback(ctx context.Context, params CallbackParams) CallbackOutcome {
	startedAt := time.Now()
	f.setState(FlowStateCallbackReceived)

	tokens, err := f.exchangeCode(ctx, params)
	if err != nil {
		f.setState(FlowStateFailed)
		f.audit.observeOperation(ctx, startedAt, "callback", err)
		message := errorMessage(err)
		f.audit.Record(ctx, SeverityError, HTTPStatus(err), message, map[string]any{
			"text_code": textCodeOf(err),
		})
		return CallbackOutcome{
			State:       FlowStateFailed,
			Severity:    SeverityError,
			Message:     message,
			RedirectURL: f.config.SettingsURL(),
			Err:         err,
		}
	}

	f.setState(FlowStateAuthenticated)
	f.audit.observeOperation(ctx, startedAt, "callback", nil)
	f.audit.Info(ctx, msgAuthenticated, map[string]any{"instance_url": tokens.InstanceURL})
	return CallbackOutcome{
		State:       FlowStateAuthenticated,
		Severity:    SeverityInfo,
		Message:     msgAuthenticated,
		RedirectURL: f.config.SettingsURL(),
	}
}

func (f *OAuthFlow) exchangeCode(ctx context.Context, params CallbackParams) (TokenSet, error) {
	code := strings.TrimSpace(params.Code)
	if code == "" {
		return TokenSet{}, NewInvalidResponseError(msgResponseInvalid)
	}
	if err := f.nonce.Verify(ctx, params.State); err != nil {
		return TokenSet{}, err
	}

	// The nonce matched: this attempt is now spent whatever happens next.
	defer f.clearPending(ctx)

	verifier, ok, err := f.pkce.Verifier(ctx)
	if err != nil {
		return TokenSet{}, f.errorMapper(err)
	}
	if !ok {
		return TokenSet{}, NewInvalidStateError(msgFlowExpired)
	}

	creds, err := f.credentials.Credentials(ctx)
	if err != nil {
		return TokenSet{}, f.errorMapper(err)
	}

	if unescaped, unescapeErr := url.PathUnescape(code); unescapeErr == nil {
		code = unescaped
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", creds.ClientID)
	form.Set("redirect_uri", f.config.CallbackURL())
	form.Set("code", code)
	form.Set("code_verifier", verifier)

	resp, err := postForm(ctx, f.httpClient, f.config.TokenEndpoint(), form, f.config.OAuthTimeout())
	if err != nil {
		return TokenSet{}, NewTokenExchangeError(0, err.Error())
	}
	if !resp.Successful() {
		return TokenSet{}, NewTokenExchangeError(resp.StatusCode, resp.Message)
	}

	tokens, err := verifyTokenResponse(resp.Body, creds.ClientSecret, TokenSet{})
	if err != nil {
		return TokenSet{}, err
	}
	if err := f.tokens.Save(ctx, tokens); err != nil {
		return TokenSet{}, goerrors.Wrap(err, goerrors.CategoryInternal, "core: persist tokens").
			WithCode(http.StatusInternalServerError).
			WithTextCode(ErrorInternal)
	}
	return tokens, nil
}

// verifyTokenResponse sanitises, checks the signature and then the required
// fields. previous supplies the refresh_token when the response omits it.
func verifyTokenResponse(body []byte, clientSecret string, previous TokenSet) (TokenSet, error) {
	payload, err := decodeTokenPayload(body)
	if err != nil {
		return TokenSet{}, NewInvalidResponseError(msgResponseInvalid)
	}
	tokens := sanitizeTokenPayload(payload)
	if !VerifySignature(tokens, clientSecret) {
		return TokenSet{}, NewSignatureInvalidError()
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = previous.RefreshToken
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" || tokens.InstanceURL == "" {
		return TokenSet{}, NewInvalidResponseError(msgResponseInvalid)
	}
	return tokens, nil
}

// Refresh exchanges the stored refresh_token. Concurrent callers share one
// provider round trip.
func (f *OAuthFlow) Refresh(ctx context.Context) RefreshOutcome {
	result, _, _ := f.refreshGroup.Do("refresh", func() (any, error) {
		return f.refresh(ctx), nil
	})
	outcome, _ := result.(RefreshOutcome)
	return outcome
}

func (f *OAuthFlow) refresh(ctx context.Context) RefreshOutcome {
	startedAt := time.Now()
	previousState := f.State()
	f.setState(FlowStateRefreshing)

	current, err := f.tokens.Tokens(ctx)
	if err != nil {
		f.setState(previousState)
		return f.refreshFailed(ctx, startedAt, f.errorMapper(err))
	}
	if !current.Authenticated() {
		return f.refreshCleared(ctx, startedAt, msgNoRefreshToken)
	}
	creds, err := f.credentials.Credentials(ctx)
	if err != nil {
		f.setState(previousState)
		return f.refreshFailed(ctx, startedAt, f.errorMapper(err))
	}
	if !creds.Complete() {
		return f.refreshCleared(ctx, startedAt, msgMissingCredentials)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", current.RefreshToken)
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)

	resp, err := postForm(ctx, f.httpClient, f.config.TokenEndpoint(), form, f.config.OAuthTimeout())
	if err != nil {
		f.setState(FlowStateAuthenticated)
		return f.refreshFailed(ctx, startedAt, NewTokenRefreshError(0, err.Error()))
	}
	if !resp.Successful() {
		f.setState(FlowStateAuthenticated)
		return f.refreshFailed(ctx, startedAt, NewTokenRefreshError(resp.StatusCode, resp.Message))
	}

	refreshed, err := verifyTokenResponse(resp.Body, creds.ClientSecret, current)
	if err != nil {
		f.setState(FlowStateAuthenticated)
		return f.refreshFailed(ctx, startedAt, err)
	}
	if err := f.tokens.Save(ctx, refreshed); err != nil {
		f.setState(FlowStateAuthenticated)
		return f.refreshFailed(ctx, startedAt, f.errorMapper(err))
	}

	f.setState(FlowStateAuthenticated)
	f.audit.observeOperation(ctx, startedAt, "refresh", nil)
	f.audit.Info(ctx, msgRefreshed, nil)
	return RefreshOutcome{Refreshed: true, Message: msgRefreshed}
}

func (f *OAuthFlow) refreshCleared(ctx context.Context, startedAt time.Time, message string) RefreshOutcome {
	err := newConnectorError(message, goerrors.CategoryAuth, http.StatusUnauthorized, ErrorTokenRefreshFailed)
	if clearErr := f.tokens.Clear(ctx); clearErr != nil {
		f.logger.Error("token clear failed", "error", clearErr)
	}
	f.setState(FlowStateUnauthenticated)
	f.audit.observeOperation(ctx, startedAt, "refresh", err)
	f.audit.Error(ctx, message, nil)
	return RefreshOutcome{Cleared: true, Message: message, Err: err}
}

func (f *OAuthFlow) refreshFailed(ctx context.Context, startedAt time.Time, err error) RefreshOutcome {
	message := errorMessage(err)
	f.audit.observeOperation(ctx, startedAt, "refresh", err)
	f.audit.Record(ctx, SeverityError, HTTPStatus(err), message, map[string]any{
		"text_code": textCodeOf(err),
	})
	return RefreshOutcome{Message: message, Err: err}
}

// Revoke asks the provider to revoke token. Stored tokens are cleared only
// after the provider confirms.
func (f *OAuthFlow) Revoke(ctx context.Context, token string) RevokeOutcome {
	startedAt := time.Now()
	token = strings.TrimSpace(token)
	if token == "" {
		f.audit.Info(ctx, msgNothingToRevoke, nil)
		return RevokeOutcome{Severity: SeverityInfo, Message: msgNothingToRevoke}
	}

	form := url.Values{}
	form.Set("token", token)
	resp, err := postForm(ctx, f.httpClient, f.config.RevokeEndpoint(), form, f.config.OAuthTimeout())
	if err != nil {
		return f.revokeFailed(ctx, startedAt, http.StatusBadGateway, err.Error())
	}
	if !resp.Successful() {
		return f.revokeFailed(ctx, startedAt, resp.StatusCode, resp.Message)
	}

	if err := f.tokens.Clear(ctx); err != nil {
		mapped := f.errorMapper(err)
		f.audit.observeOperation(ctx, startedAt, "revoke", mapped)
		f.audit.Error(ctx, errorMessage(mapped), nil)
		return RevokeOutcome{Severity: SeverityError, Message: errorMessage(mapped), Err: mapped}
	}
	f.setState(FlowStateRevoked)
	f.audit.observeOperation(ctx, startedAt, "revoke", nil)
	f.audit.Info(ctx, msgRevoked, nil)
	return RevokeOutcome{Success: true, Severity: SeverityInfo, Message: msgRevoked}
}

func (f *OAuthFlow) revokeFailed(ctx context.Context, startedAt time.Time, status int, providerMessage string) RevokeOutcome {
	message := strings.TrimSpace("/oauth2/revoke " + providerMessage)
	err := NewAPIError(status, message)
	f.audit.observeOperation(ctx, startedAt, "revoke", err)
	f.audit.Info(ctx, message, map[string]any{"provider_status": status})
	return RevokeOutcome{Severity: SeverityInfo, Message: message, Err: err}
}

// Status reports the flow position without exposing secrets.
func (f *OAuthFlow) Status(ctx context.Context) (AuthStatus, error) {
	creds, err := f.credentials.Credentials(ctx)
	if err != nil {
		return AuthStatus{}, f.errorMapper(err)
	}
	tokens, err := f.tokens.Tokens(ctx)
	if err != nil {
		return AuthStatus{}, f.errorMapper(err)
	}
	state := f.State()
	if tokens.Authenticated() && state == FlowStateUnauthenticated {
		state = FlowStateAuthenticated
	}
	if !tokens.Authenticated() && state == FlowStateAuthenticated {
		state = FlowStateUnauthenticated
	}
	return AuthStatus{
		State:          state,
		HasCredentials: creds.Complete(),
		Authenticated:  tokens.Authenticated(),
		InstanceURL:    tokens.InstanceURL,
		ClientID:       creds.ClientID,
	}, nil
}

func (f *OAuthFlow) State() FlowState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

func (f *OAuthFlow) setState(state FlowState) {
	f.mu.Lock()
	f.state = state
	f.mu.Unlock()
}

func (f *OAuthFlow) clearPending(ctx context.Context) {
	if err := f.nonce.Consume(ctx); err != nil {
		f.logger.Warn("oauth state cleanup failed", "error", err)
	}
	if err := f.pkce.Reset(ctx); err != nil {
		f.logger.Warn("pkce cleanup failed", "error", err)
	}
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil && strings.TrimSpace(richErr.Message) != "" {
		return richErr.Message
	}
	return err.Error()
}

func textCodeOf(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		return richErr.TextCode
	}
	return ""
}
