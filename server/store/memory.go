package store

import (
	"context"
	"sort"
	"sync"

	"github.com/gate4ai/a2a/schema"
)

// MemoryTaskStore keeps tasks in a map guarded by a RWMutex. It is the
// default driver and the reference for the store contract.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*schema.Task
}

var _ TaskStore = (*MemoryTaskStore)(nil)

func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[string]*schema.Task)}
}

func (s *MemoryTaskStore) Create(_ context.Context, task *schema.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task.Clone()
	return nil
}

func (s *MemoryTaskStore) Get(_ context.Context, id string) (*schema.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	return task.Clone(), nil
}

func (s *MemoryTaskStore) Update(_ context.Context, id string, update TaskUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil
	}
	applyUpdate(task, update)
	return nil
}

func (s *MemoryTaskStore) List(_ context.Context, filter ListFilter) ([]*schema.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]*schema.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		if matchesFilter(task, filter) {
			matched = append(matched, task.Clone())
		}
	}
	sortByStatusTimestampDesc(matched)
	return paginate(matched, filter), nil
}

func (s *MemoryTaskStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
	return nil
}

func applyUpdate(task *schema.Task, update TaskUpdate) {
	snapshot := schema.Task{
		Status:    valueOrKeep(update.Status, task.Status),
		History:   update.History,
		Artifacts: update.Artifacts,
		Metadata:  update.Metadata,
	}
	clone := snapshot.Clone()
	task.Status = clone.Status
	if update.History != nil {
		task.History = clone.History
	}
	if update.Artifacts != nil {
		task.Artifacts = clone.Artifacts
	}
	if update.Metadata != nil {
		task.Metadata = clone.Metadata
	}
}

func valueOrKeep(update *schema.TaskStatus, current schema.TaskStatus) schema.TaskStatus {
	if update != nil {
		return *update
	}
	return current
}

func sortByStatusTimestampDesc(tasks []*schema.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Status.Timestamp.After(tasks[j].Status.Timestamp)
	})
}
