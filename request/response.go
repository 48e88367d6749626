package request

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/goliatone/go-salesforce-connector/core"
	"github.com/goliatone/go-salesforce-connector/transport"
)

// Response is a decoded provider body. Data is nil for empty bodies and
// otherwise holds the JSON value as decoded by encoding/json.
type Response struct {
	StatusCode int
	Data       any
}

func (r Response) Empty() bool {
	switch typed := r.Data.(type) {
	case nil:
		return true
	case map[string]any:
		return len(typed) == 0
	case []any:
		return len(typed) == 0
	default:
		return false
	}
}

// Map returns Data as an object, or an empty map.
func (r Response) Map() map[string]any {
	if typed, ok := r.Data.(map[string]any); ok {
		return typed
	}
	return map[string]any{}
}

// List returns Data as an array, or nil.
func (r Response) List() []any {
	if typed, ok := r.Data.([]any); ok {
		return typed
	}
	return nil
}

// CachedResponse is the cache representation of a validated response.
type CachedResponse struct {
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
}

// validateResponse accepts 2xx and the literal 400 (the provider reports
// structured validation errors with a usable body). Anything else is an
// ApiError carrying the status.
func validateResponse(res transport.Response, label string) (CachedResponse, error) {
	if (res.StatusCode >= http.StatusOK && res.StatusCode < http.StatusMultipleChoices) || res.StatusCode == http.StatusBadRequest {
		return CachedResponse{StatusCode: res.StatusCode, Body: res.Body}, nil
	}
	message := strings.TrimSpace(label)
	if detail := providerMessage(res.Body); detail != "" {
		message = strings.TrimSpace(message + " " + detail)
	} else {
		message = strings.TrimSpace(message + " " + res.Status)
	}
	return CachedResponse{}, core.NewAPIError(res.StatusCode, message)
}

func decodeResponse(cached CachedResponse) (Response, error) {
	out := Response{StatusCode: cached.StatusCode}
	if len(bytes.TrimSpace(cached.Body)) == 0 {
		return out, nil
	}
	var data any
	if err := json.Unmarshal(cached.Body, &data); err != nil {
		return Response{}, core.NewMalformedResponseError(err)
	}
	out.Data = data
	return out, nil
}

// providerMessage extracts the first message from the [{"message":...}]
// error envelope.
func providerMessage(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var envelope []struct {
		Message   string `json:"message"`
		ErrorCode string `json:"errorCode"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope) == 0 {
		return ""
	}
	return strings.TrimSpace(envelope[0].Message)
}
