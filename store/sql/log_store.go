package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-salesforce-connector/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LogStore is the table-backed diagnostic log. Provision and Drop own the
// table so install and teardown can create and remove it.
type LogStore struct {
	db   *bun.DB
	repo repository.Repository[*logEntryRecord]
}

func NewLogStore(db *bun.DB) (*LogStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*logEntryRecord](db, logEntryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid log repository wiring: %w", err)
		}
	}
	return &LogStore{db: db, repo: repo}, nil
}

func (s *LogStore) Provision(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: log store is not configured")
	}
	_, err := s.db.NewCreateTable().
		Model((*logEntryRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (s *LogStore) Append(ctx context.Context, entry core.LogEntry) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: log store is not configured")
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err := s.repo.Create(ctx, &logEntryRecord{
		ID:        entry.ID,
		Code:      entry.Code,
		Severity:  string(entry.Severity),
		Message:   entry.Message,
		Trace:     entry.Trace,
		CreatedAt: entry.Timestamp.UTC(),
	})
	return err
}

// List returns newest entries first. page is 1-based.
func (s *LogStore) List(ctx context.Context, page int, perPage int) (core.LogPage, error) {
	if s == nil || s.repo == nil {
		return core.LogPage{}, fmt.Errorf("sqlstore: log store is not configured")
	}
	page, perPage = core.NormalizePaging(page, perPage)
	offset := (page - 1) * perPage

	records, total, err := s.repo.List(ctx,
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(perPage, offset),
	)
	if err != nil {
		return core.LogPage{}, err
	}
	entries := make([]core.LogEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, record.toDomain())
	}
	return core.LogPage{
		Entries: entries,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

func (s *LogStore) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: log store is not configured")
	}
	return s.db.NewSelect().Model((*logEntryRecord)(nil)).Count(ctx)
}

func (s *LogStore) Drop(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: log store is not configured")
	}
	_, err := s.db.NewDropTable().
		Model((*logEntryRecord)(nil)).
		IfExists().
		Exec(ctx)
	return err
}

func (r *logEntryRecord) toDomain() core.LogEntry {
	if r == nil {
		return core.LogEntry{}
	}
	return core.LogEntry{
		ID:        r.ID,
		Timestamp: r.CreatedAt.UTC(),
		Code:      r.Code,
		Severity:  core.ParseSeverity(r.Severity),
		Message:   r.Message,
		Trace:     r.Trace,
	}
}
