package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-salesforce-connector/transport"
)

const (
	ErrorInvalidResponse     = "CONNECTOR_INVALID_RESPONSE"
	ErrorInvalidState        = "CONNECTOR_INVALID_STATE"
	ErrorTokenExchangeFailed = "CONNECTOR_TOKEN_EXCHANGE_FAILED"
	ErrorTokenRefreshFailed  = "CONNECTOR_TOKEN_REFRESH_FAILED"
	ErrorSignatureInvalid    = "CONNECTOR_SIGNATURE_INVALID"
	ErrorNoInstanceURL       = "CONNECTOR_NO_INSTANCE_URL"
	ErrorNoAccessToken       = "CONNECTOR_NO_ACCESS_TOKEN"
	ErrorAPI                 = transport.ErrorAPI
	ErrorMalformedResponse   = "CONNECTOR_MALFORMED_RESPONSE"
	ErrorBadInput            = transport.ErrorBadInput
	ErrorNotFound            = "CONNECTOR_NOT_FOUND"
	ErrorPermissionDenied    = "CONNECTOR_PERMISSION_DENIED"
	ErrorInternal            = transport.ErrorInternal
)

func NewInvalidResponseError(message string) *goerrors.Error {
	return newConnectorError(message, goerrors.CategoryBadInput, http.StatusBadRequest, ErrorInvalidResponse)
}

func NewInvalidStateError(message string) *goerrors.Error {
	return newConnectorError(message, goerrors.CategoryAuth, http.StatusUnauthorized, ErrorInvalidState)
}

func NewTokenExchangeError(status int, providerMessage string) *goerrors.Error {
	err := newConnectorError(
		"/oauth2/token "+strings.TrimSpace(providerMessage),
		goerrors.CategoryExternal,
		http.StatusBadGateway,
		ErrorTokenExchangeFailed,
	)
	err.WithMetadata(map[string]any{"provider_status": status})
	return err
}

func NewTokenRefreshError(status int, providerMessage string) *goerrors.Error {
	err := newConnectorError(
		"/oauth2/token "+strings.TrimSpace(providerMessage),
		goerrors.CategoryExternal,
		http.StatusBadGateway,
		ErrorTokenRefreshFailed,
	)
	err.WithMetadata(map[string]any{"provider_status": status})
	return err
}

func NewSignatureInvalidError() *goerrors.Error {
	return newConnectorError("Token signature verification failed", goerrors.CategoryAuth, http.StatusUnauthorized, ErrorSignatureInvalid)
}

func NewNoInstanceURLError() *goerrors.Error {
	return newConnectorError("Instance URL not found.", goerrors.CategoryOperation, http.StatusPreconditionFailed, ErrorNoInstanceURL)
}

func NewNoAccessTokenError() *goerrors.Error {
	return newConnectorError("Access Token Not Found", goerrors.CategoryAuth, http.StatusUnauthorized, ErrorNoAccessToken)
}

// NewAPIError keeps the provider HTTP status as the error code so callers can
// decide on refresh-and-retry.
func NewAPIError(status int, message string) *goerrors.Error {
	err := goerrors.New(strings.TrimSpace(message), apiErrorCategory(status)).
		WithCode(status).
		WithTextCode(ErrorAPI)
	err.WithMetadata(map[string]any{"status": status})
	return err
}

func NewMalformedResponseError(source error) *goerrors.Error {
	if source == nil {
		return newConnectorError("JSON Error", goerrors.CategoryExternal, http.StatusBadGateway, ErrorMalformedResponse)
	}
	return goerrors.Wrap(source, goerrors.CategoryExternal, "JSON Error: "+source.Error()).
		WithCode(http.StatusBadGateway).
		WithTextCode(ErrorMalformedResponse)
}

func NewBadInputError(message string) *goerrors.Error {
	return newConnectorError(message, goerrors.CategoryBadInput, http.StatusBadRequest, ErrorBadInput)
}

func NewNotFoundError(message string) *goerrors.Error {
	return newConnectorError(message, goerrors.CategoryNotFound, http.StatusNotFound, ErrorNotFound)
}

func NewPermissionDeniedError(message string) *goerrors.Error {
	return newConnectorError(message, goerrors.CategoryAuthz, http.StatusForbidden, ErrorPermissionDenied)
}

func NewInternalError(message string) *goerrors.Error {
	return newConnectorError(message, goerrors.CategoryInternal, http.StatusInternalServerError, ErrorInternal)
}

func newConnectorError(message string, category goerrors.Category, code int, textCode string) *goerrors.Error {
	return goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
}

// HasTextCode reports whether err carries the given connector text code.
func HasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr == nil {
		return false
	}
	return richErr.TextCode == textCode
}

// HTTPStatus returns the code attached to err, falling back to 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil && richErr.Code > 0 {
		return richErr.Code
	}
	return http.StatusInternalServerError
}

// IsAuthFailure reports a provider 401/403, the trigger for refresh-and-retry.
func IsAuthFailure(err error) bool {
	if !HasTextCode(err, ErrorAPI) {
		return false
	}
	status := HTTPStatus(err)
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureConnectorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return newConnectorError(err.Error(), goerrors.CategoryNotFound, http.StatusNotFound, ErrorNotFound)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newConnectorError(err.Error(), goerrors.CategoryBadInput, http.StatusBadRequest, ErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureConnectorEnvelope(mapped)
}

func ensureConnectorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = categoryHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorNotFound
	case goerrors.CategoryAuthz:
		return ErrorPermissionDenied
	case goerrors.CategoryExternal:
		return ErrorAPI
	default:
		return ErrorInternal
	}
}

func categoryHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func apiErrorCategory(status int) goerrors.Category {
	switch {
	case status == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status >= 400 && status < 500:
		return goerrors.CategoryBadInput
	default:
		return goerrors.CategoryExternal
	}
}
