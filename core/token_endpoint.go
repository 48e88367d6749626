package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-salesforce-connector/transport"
)

const maxTokenResponseBodyBytes = 1 << 20

type tokenEndpointResponse struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (r tokenEndpointResponse) Successful() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// postForm sends an application/x-www-form-urlencoded POST through the shared
// REST adapter. Only transport failures are returned as errors.
func postForm(ctx context.Context, client HTTPDoer, endpoint string, form url.Values, timeout time.Duration) (tokenEndpointResponse, error) {
	if client == nil {
		return tokenEndpointResponse{}, fmt.Errorf("core: oauth http client is not configured")
	}
	adapter := transport.NewRESTAdapter(client)
	res, err := adapter.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    endpoint,
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
			"Accept":       "application/json",
		},
		Body:                 []byte(form.Encode()),
		Timeout:              timeout,
		MaxResponseBodyBytes: maxTokenResponseBodyBytes,
	})
	if err != nil {
		return tokenEndpointResponse{}, err
	}
	return tokenEndpointResponse{
		StatusCode: res.StatusCode,
		Message:    describeEndpointFailure(res.StatusCode, res.Body),
		Body:       res.Body,
	}, nil
}

// describeEndpointFailure prefers the provider error_description over the
// bare status text.
func describeEndpointFailure(status int, body []byte) string {
	message := http.StatusText(status)
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &payload) == nil {
		if detail := strings.TrimSpace(payload.ErrorDescription); detail != "" {
			return strings.TrimSpace(message + ": " + detail)
		}
		if detail := strings.TrimSpace(payload.Error); detail != "" {
			return strings.TrimSpace(message + ": " + detail)
		}
	}
	return message
}

func decodeTokenPayload(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("core: empty token response")
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}
