package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// OptionBag is an in-memory view over one OptionStore namespace. Keys may be
// dotted ("a.b.c") to address nested maps. Mutations mark the bag dirty and
// only reach the store on Flush.
type OptionBag struct {
	mu        sync.RWMutex
	namespace string
	store     OptionStore
	values    map[string]any
	committed map[string]any
	loaded    bool
	dirty     bool
}

func NewOptionBag(namespace string, store OptionStore) *OptionBag {
	return &OptionBag{
		namespace: strings.TrimSpace(namespace),
		store:     store,
		values:    map[string]any{},
		committed: map[string]any{},
	}
}

func (b *OptionBag) Namespace() string {
	if b == nil {
		return ""
	}
	return b.namespace
}

// Load reads the namespace from the store. Pending unflushed changes win over
// the stored copy; Replace keeps those changes whole so a concurrent Load never
// observes a half-built map.
func (b *OptionBag) Load(ctx context.Context) error {
	if b == nil {
		return fmt.Errorf("core: option bag is nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dirty {
		return nil
	}
	if b.store == nil {
		b.loaded = true
		return nil
	}
	values, err := b.store.Load(ctx, b.namespace)
	if err != nil {
		return fmt.Errorf("core: load options %q: %w", b.namespace, err)
	}
	b.values = copyAnyMap(values)
	b.committed = copyAnyMap(values)
	b.loaded = true
	return nil
}

func (b *OptionBag) Get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return lookupDotted(b.values, key)
}

func (b *OptionBag) String(key string, fallback string) string {
	value, ok := b.Get(key)
	if !ok || value == nil {
		return fallback
	}
	switch typed := value.(type) {
	case string:
		return typed
	case []byte:
		return string(typed)
	default:
		return fmt.Sprint(typed)
	}
}

func (b *OptionBag) Has(key string) bool {
	_, ok := b.Get(key)
	return ok
}

func (b *OptionBag) HasAny(keys ...string) bool {
	for _, key := range keys {
		if b.Has(key) {
			return true
		}
	}
	return false
}

// Pick returns the requested keys that are present, addressed by their
// original (possibly dotted) names.
func (b *OptionBag) Pick(keys ...string) map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		if value, ok := lookupDotted(b.values, key); ok {
			out[key] = value
		}
	}
	return out
}

func (b *OptionBag) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.values))
	for key := range b.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (b *OptionBag) All() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copyAnyMap(b.values)
}

func (b *OptionBag) Set(key string, value any) {
	parts := splitDotted(key)
	if len(parts) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	node := b.values
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[part] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = value
	b.dirty = true
}

func (b *OptionBag) Unset(key string) {
	parts := splitDotted(key)
	if len(parts) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	node := b.values
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]any)
		if !ok {
			return
		}
		node = next
	}
	if _, ok := node[parts[len(parts)-1]]; !ok {
		return
	}
	delete(node, parts[len(parts)-1])
	b.dirty = true
}

// Replace swaps the whole namespace for values in one step.
func (b *OptionBag) Replace(values map[string]any) {
	next := copyAnyMap(values)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values = next
	b.dirty = true
}

func (b *OptionBag) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values = map[string]any{}
	b.dirty = true
}

func (b *OptionBag) Dirty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dirty
}

// Flush persists pending changes. An emptied bag deletes the namespace. A
// failed write rolls the bag back to the last loaded or flushed state.
func (b *OptionBag) Flush(ctx context.Context) error {
	if b == nil {
		return fmt.Errorf("core: option bag is nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.dirty {
		return nil
	}
	if b.store == nil {
		b.committed = copyAnyMap(b.values)
		b.dirty = false
		return nil
	}
	var err error
	if len(b.values) == 0 {
		err = b.store.Delete(ctx, b.namespace)
	} else {
		err = b.store.Save(ctx, b.namespace, copyAnyMap(b.values))
	}
	if err != nil {
		b.values = copyAnyMap(b.committed)
		b.dirty = false
		return fmt.Errorf("core: flush options %q: %w", b.namespace, err)
	}
	b.committed = copyAnyMap(b.values)
	b.dirty = false
	return nil
}

func splitDotted(key string) []string {
	key = strings.Trim(strings.TrimSpace(key), ".")
	if key == "" {
		return nil
	}
	parts := strings.Split(key, ".")
	out := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func lookupDotted(values map[string]any, key string) (any, bool) {
	parts := splitDotted(key)
	if len(parts) == 0 {
		return nil, false
	}
	var current any = values
	for _, part := range parts {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
