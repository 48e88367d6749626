package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryOptionStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]any
}

func NewMemoryOptionStore() *MemoryOptionStore {
	return &MemoryOptionStore{namespaces: map[string]map[string]any{}}
}

func (s *MemoryOptionStore) Load(_ context.Context, namespace string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyAnyMap(s.namespaces[strings.TrimSpace(namespace)]), nil
}

func (s *MemoryOptionStore) Save(_ context.Context, namespace string, values map[string]any) error {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return fmt.Errorf("core: option namespace is required")
	}
	s.mu.Lock()
	s.namespaces[namespace] = copyAnyMap(values)
	s.mu.Unlock()
	return nil
}

func (s *MemoryOptionStore) Delete(_ context.Context, namespace string) error {
	s.mu.Lock()
	delete(s.namespaces, strings.TrimSpace(namespace))
	s.mu.Unlock()
	return nil
}

type memoryEphemeralEntry struct {
	value     []byte
	expiresAt time.Time
}

type MemoryEphemeralStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEphemeralEntry
}

func NewMemoryEphemeralStore(now func() time.Time) *MemoryEphemeralStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &MemoryEphemeralStore{now: now, entries: map[string]memoryEphemeralEntry{}}
}

func (s *MemoryEphemeralStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

func (s *MemoryEphemeralStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("core: ephemeral key is required")
	}
	entry := memoryEphemeralEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryEphemeralStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

type MemoryLogStore struct {
	mu          sync.RWMutex
	provisioned bool
	entries     []LogEntry
}

func NewMemoryLogStore() *MemoryLogStore {
	return &MemoryLogStore{provisioned: true}
}

func (s *MemoryLogStore) Provision(context.Context) error {
	s.mu.Lock()
	s.provisioned = true
	s.mu.Unlock()
	return nil
}

func (s *MemoryLogStore) Append(_ context.Context, entry LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.provisioned {
		return fmt.Errorf("core: log storage is not provisioned")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.entries = append(s.entries, entry)
	return nil
}

// List returns newest entries first. page is 1-based.
func (s *MemoryLogStore) List(_ context.Context, page int, perPage int) (LogPage, error) {
	page, perPage = NormalizePaging(page, perPage)
	s.mu.RLock()
	ordered := append([]LogEntry(nil), s.entries...)
	s.mu.RUnlock()

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.After(ordered[j].Timestamp)
	})
	offset := (page - 1) * perPage
	out := LogPage{Total: len(ordered), Page: page, PerPage: perPage, Entries: []LogEntry{}}
	if offset >= len(ordered) {
		return out, nil
	}
	end := offset + perPage
	if end > len(ordered) {
		end = len(ordered)
	}
	out.Entries = append(out.Entries, ordered[offset:end]...)
	return out, nil
}

func (s *MemoryLogStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryLogStore) Drop(context.Context) error {
	s.mu.Lock()
	s.entries = nil
	s.provisioned = false
	s.mu.Unlock()
	return nil
}

// NormalizePaging applies the log listing defaults: page 1, 10 per page.
func NormalizePaging(page int, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	return page, perPage
}
