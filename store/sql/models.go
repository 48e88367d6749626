package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type optionRecord struct {
	bun.BaseModel `bun:"table:connector_options,alias:co"`

	ID            string    `bun:"id,pk"`
	Namespace     string    `bun:"namespace,notnull,unique"`
	Payload       []byte    `bun:"payload,notnull"`
	PayloadFormat string    `bun:"payload_format,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type ephemeralRecord struct {
	bun.BaseModel `bun:"table:connector_ephemeral,alias:ce"`

	ID        string    `bun:"id,pk"`
	Key       string    `bun:"key,notnull,unique"`
	Value     []byte    `bun:"value,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type logEntryRecord struct {
	bun.BaseModel `bun:"table:connector_logs,alias:cl"`

	ID        string    `bun:"id,pk"`
	Code      int       `bun:"code,notnull"`
	Severity  string    `bun:"severity,notnull"`
	Message   string    `bun:"message,notnull"`
	Trace     string    `bun:"trace,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
