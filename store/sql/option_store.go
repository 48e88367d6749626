package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-salesforce-connector/core"
	"github.com/uptrace/bun"
)

const (
	payloadFormatJSON          = "json"
	payloadFormatEncryptedJSON = "json+encrypted"
)

// OptionStore keeps one JSON document per namespace. When a secret provider
// is configured the document is encrypted at rest.
type OptionStore struct {
	db      *bun.DB
	repo    repository.Repository[*optionRecord]
	secrets core.SecretProvider
	now     func() time.Time
}

func NewOptionStore(db *bun.DB, secrets core.SecretProvider) (*OptionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*optionRecord](db, optionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid option repository wiring: %w", err)
		}
	}
	return &OptionStore{
		db:      db,
		repo:    repo,
		secrets: secrets,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *OptionStore) Load(ctx context.Context, namespace string) (map[string]any, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: option store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("namespace", "=", strings.TrimSpace(namespace)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	if len(records) == 0 {
		return map[string]any{}, nil
	}
	return s.decode(ctx, records[0])
}

func (s *OptionStore) Save(ctx context.Context, namespace string, values map[string]any) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: option store is not configured")
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return fmt.Errorf("sqlstore: option namespace is required")
	}
	payload, format, err := s.encode(ctx, values)
	if err != nil {
		return err
	}
	now := s.now()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := new(optionRecord)
		findErr := tx.NewSelect().
			Model(record).
			Where("?TableAlias.namespace = ?", namespace).
			Limit(1).
			Scan(ctx)
		if findErr != nil && !errors.Is(findErr, sql.ErrNoRows) {
			return findErr
		}
		if errors.Is(findErr, sql.ErrNoRows) {
			record = &optionRecord{
				ID:            namedRecordID("option", namespace),
				Namespace:     namespace,
				Payload:       payload,
				PayloadFormat: format,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			_, insertErr := tx.NewInsert().Model(record).Exec(ctx)
			return insertErr
		}
		record.Payload = payload
		record.PayloadFormat = format
		record.UpdatedAt = now
		_, updateErr := tx.NewUpdate().
			Model(record).
			Column("payload", "payload_format", "updated_at").
			Where("id = ?", record.ID).
			Exec(ctx)
		return updateErr
	})
}

func (s *OptionStore) Delete(ctx context.Context, namespace string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: option store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*optionRecord)(nil)).
		Where("namespace = ?", strings.TrimSpace(namespace)).
		Exec(ctx)
	return err
}

func (s *OptionStore) encode(ctx context.Context, values map[string]any) ([]byte, string, error) {
	if values == nil {
		values = map[string]any{}
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return nil, "", fmt.Errorf("sqlstore: encode options: %w", err)
	}
	if s.secrets == nil {
		return payload, payloadFormatJSON, nil
	}
	sealed, err := s.secrets.Encrypt(ctx, payload)
	if err != nil {
		return nil, "", fmt.Errorf("sqlstore: encrypt options: %w", err)
	}
	return sealed, payloadFormatEncryptedJSON, nil
}

func (s *OptionStore) decode(ctx context.Context, record *optionRecord) (map[string]any, error) {
	payload := record.Payload
	switch record.PayloadFormat {
	case payloadFormatEncryptedJSON:
		if s.secrets == nil {
			return nil, fmt.Errorf("sqlstore: options for %q are encrypted but no secret provider is configured", record.Namespace)
		}
		opened, err := s.secrets.Decrypt(ctx, payload)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: decrypt options: %w", err)
		}
		payload = opened
	case payloadFormatJSON, "":
	default:
		return nil, fmt.Errorf("sqlstore: unsupported payload format %q", record.PayloadFormat)
	}
	values := map[string]any{}
	if len(payload) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(payload, &values); err != nil {
		return nil, fmt.Errorf("sqlstore: decode options: %w", err)
	}
	return values, nil
}
