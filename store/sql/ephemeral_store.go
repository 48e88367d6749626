package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-salesforce-connector/core"
	"github.com/uptrace/bun"
)

// EphemeralStore keeps short-lived values in a table. Expired rows are
// invisible to Get and removed lazily.
type EphemeralStore struct {
	db     *bun.DB
	now    func() time.Time
	logger core.Logger
}

func NewEphemeralStore(db *bun.DB, now func() time.Time) (*EphemeralStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &EphemeralStore{db: db, now: now, logger: glog.Nop()}, nil
}

func (s *EphemeralStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, fmt.Errorf("sqlstore: ephemeral store is not configured")
	}
	record := new(ephemeralRecord)
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.key = ?", strings.TrimSpace(key)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !s.now().Before(record.ExpiresAt) {
		if err := s.Delete(ctx, key); err != nil {
			s.logger.Debug("expired ephemeral entry delete failed", "key", key, "error", err)
		}
		return nil, false, nil
	}
	return append([]byte(nil), record.Value...), true, nil
}

func (s *EphemeralStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: ephemeral store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("sqlstore: ephemeral key is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("sqlstore: ephemeral ttl must be positive")
	}
	now := s.now()
	record := &ephemeralRecord{
		ID:        namedRecordID("ephemeral", key),
		Key:       key,
		Value:     append([]byte(nil), value...),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*ephemeralRecord)(nil)).
			Where("key = ?", key).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(record).Exec(ctx)
		return err
	})
}

func (s *EphemeralStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: ephemeral store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*ephemeralRecord)(nil)).
		Where("key = ?", strings.TrimSpace(key)).
		Exec(ctx)
	return err
}

// Purge removes every expired row and reports how many were deleted.
func (s *EphemeralStore) Purge(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: ephemeral store is not configured")
	}
	res, err := s.db.NewDelete().
		Model((*ephemeralRecord)(nil)).
		Where("expires_at <= ?", s.now()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}
