package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gate4ai/a2a/schema"
)

// DefaultKeyPrefix namespaces task keys in a shared keyspace.
const DefaultKeyPrefix = "a2a:task:"

// KV is the minimal key-value surface the cache-backed task store needs.
// Get returns (nil, nil) for a missing key. Keys returns every key matching
// the prefix.
type KV interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// ExpiringKV is a KV whose entries can carry a TTL.
type ExpiringKV interface {
	KV
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CacheTaskStore persists tasks as compact JSON values in a key-value
// backend. Tasks round-trip through serialization, so the deep-copy contract
// holds structurally.
type CacheTaskStore struct {
	kv     KV
	prefix string
	ttl    time.Duration
}

var _ TaskStore = (*CacheTaskStore)(nil)

type CacheOption func(*CacheTaskStore)

// WithKeyPrefix overrides the default "a2a:task:" key prefix.
func WithKeyPrefix(prefix string) CacheOption {
	return func(s *CacheTaskStore) { s.prefix = prefix }
}

// WithTTL expires stored tasks after the given duration. Requires a backend
// implementing ExpiringKV.
func WithTTL(ttl time.Duration) CacheOption {
	return func(s *CacheTaskStore) { s.ttl = ttl }
}

func NewCacheTaskStore(kv KV, opts ...CacheOption) (*CacheTaskStore, error) {
	s := &CacheTaskStore{kv: kv, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	if s.ttl > 0 {
		if _, ok := kv.(ExpiringKV); !ok {
			return nil, fmt.Errorf("task TTL %s requires a backend with expiry support", s.ttl)
		}
	}
	return s, nil
}

func (s *CacheTaskStore) key(id string) string {
	return s.prefix + id
}

func (s *CacheTaskStore) put(ctx context.Context, task *schema.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", task.ID, err)
	}
	if s.ttl > 0 {
		return s.kv.(ExpiringKV).SetWithTTL(ctx, s.key(task.ID), data, s.ttl)
	}
	return s.kv.Set(ctx, s.key(task.ID), data)
}

func (s *CacheTaskStore) Create(ctx context.Context, task *schema.Task) error {
	return s.put(ctx, task)
}

func (s *CacheTaskStore) Get(ctx context.Context, id string) (*schema.Task, error) {
	data, err := s.kv.Get(ctx, s.key(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read task %s: %w", id, err)
	}
	if data == nil {
		return nil, nil
	}
	var task schema.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task %s: %w", id, err)
	}
	return &task, nil
}

func (s *CacheTaskStore) Update(ctx context.Context, id string, update TaskUpdate) error {
	task, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return nil
	}
	applyUpdate(task, update)
	return s.put(ctx, task)
}

func (s *CacheTaskStore) List(ctx context.Context, filter ListFilter) ([]*schema.Task, error) {
	keys, err := s.kv.Keys(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan task keys: %w", err)
	}
	matched := make([]*schema.Task, 0, len(keys))
	for _, key := range keys {
		data, err := s.kv.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read key %s: %w", key, err)
		}
		if data == nil {
			// Expired between scan and read.
			continue
		}
		var task schema.Task
		if err := json.Unmarshal(data, &task); err != nil {
			return nil, fmt.Errorf("failed to unmarshal key %s: %w", key, err)
		}
		if matchesFilter(&task, filter) {
			matched = append(matched, &task)
		}
	}
	sortByStatusTimestampDesc(matched)
	return paginate(matched, filter), nil
}

func (s *CacheTaskStore) Delete(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, s.key(id))
}
