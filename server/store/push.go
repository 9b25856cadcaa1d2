package store

import (
	"context"
	"sort"
	"sync"

	"github.com/gate4ai/a2a/schema"
)

// MemoryPushConfigStore keeps webhook configs in memory, keyed by task id
// then config id.
type MemoryPushConfigStore struct {
	mu      sync.RWMutex
	configs map[string]map[string]*schema.PushNotificationConfig
}

var _ PushConfigStore = (*MemoryPushConfigStore)(nil)

func NewMemoryPushConfigStore() *MemoryPushConfigStore {
	return &MemoryPushConfigStore{configs: make(map[string]map[string]*schema.PushNotificationConfig)}
}

func (s *MemoryPushConfigStore) Create(_ context.Context, taskID string, config *schema.PushNotificationConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.configs[taskID]
	if !ok {
		byID = make(map[string]*schema.PushNotificationConfig)
		s.configs[taskID] = byID
	}
	byID[config.ID] = config.Clone()
	return nil
}

func (s *MemoryPushConfigStore) Get(_ context.Context, taskID, configID string) (*schema.PushNotificationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	config, ok := s.configs[taskID][configID]
	if !ok {
		return nil, nil
	}
	return config.Clone(), nil
}

func (s *MemoryPushConfigStore) List(_ context.Context, taskID string) ([]*schema.PushNotificationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := s.configs[taskID]
	out := make([]*schema.PushNotificationConfig, 0, len(byID))
	for _, config := range byID {
		out = append(out, config.Clone())
	}
	// Stable listing order for clients.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryPushConfigStore) Delete(_ context.Context, taskID, configID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.configs[taskID]
	if !ok {
		return false, nil
	}
	if _, ok := byID[configID]; !ok {
		return false, nil
	}
	delete(byID, configID)
	if len(byID) == 0 {
		delete(s.configs, taskID)
	}
	return true, nil
}
