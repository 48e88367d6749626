package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-salesforce-connector/transport"
)

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer = transport.HTTPDoer

// OptionStore persists one flat settings document per namespace.
type OptionStore interface {
	Load(ctx context.Context, namespace string) (map[string]any, error)
	Save(ctx context.Context, namespace string, values map[string]any) error
	Delete(ctx context.Context, namespace string) error
}

// EphemeralStore holds short-lived values such as the PKCE seed and the
// pending state nonce. Get reports false once ttl has elapsed.
type EphemeralStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LogStore is the queryable diagnostic log sink.
type LogStore interface {
	Provision(ctx context.Context) error
	Append(ctx context.Context, entry LogEntry) error
	List(ctx context.Context, page int, perPage int) (LogPage, error)
	Count(ctx context.Context) (int, error)
	Drop(ctx context.Context) error
}

type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type TokenReader interface {
	Tokens(ctx context.Context) (TokenSet, error)
}

type TokenRefresher interface {
	Refresh(ctx context.Context) RefreshOutcome
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
