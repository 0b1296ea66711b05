package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mediafetch/api/internal/model"
)

// MemoryRegistry is a mutex-guarded in-process registry. It backs tests and
// single-process development runs; production uses RedisRegistry.
type MemoryRegistry struct {
	mu    sync.RWMutex
	tasks map[string]*model.Task
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{tasks: make(map[string]*model.Task)}
}

func (r *MemoryRegistry) Create(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *task
	r.tasks[task.ID] = &clone

	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}

	clone := *task

	return &clone, nil
}

func (r *MemoryRegistry) MarkProcessing(_ context.Context, id string) error {
	return r.mutate(id, func(task *model.Task) {
		now := time.Now()
		task.Status = model.TaskStatusProcessing
		task.StartedAt = &now
	})
}

func (r *MemoryRegistry) UpdateProgress(_ context.Context, id string, p model.Progress) error {
	return r.mutate(id, func(task *model.Task) {
		task.Status = model.TaskStatusProcessing
		task.Progress = p
	})
}

func (r *MemoryRegistry) Complete(_ context.Context, id string, result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("registry encode result: %w", err)
	}

	return r.mutate(id, func(task *model.Task) {
		now := time.Now()
		task.Status = model.TaskStatusCompleted
		task.Result = data
		task.Progress = model.Progress{Stage: model.StageCompleted, Percent: 100}
		task.CompletedAt = &now
	})
}

func (r *MemoryRegistry) Fail(_ context.Context, id string, reason string) error {
	return r.mutate(id, func(task *model.Task) {
		now := time.Now()
		task.Status = model.TaskStatusFailed
		task.Error = &reason
		task.Progress = model.Progress{Stage: model.StageError, Message: reason}
		task.CompletedAt = &now
	})
}

func (r *MemoryRegistry) mutate(id string, fn func(*model.Task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if task.Status.Terminal() {
		return ErrTaskTerminal
	}

	fn(task)

	return nil
}
