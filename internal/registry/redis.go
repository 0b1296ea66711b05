package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mediafetch/api/internal/model"
)

// RedisRegistry stores task records as JSON blobs under task:<id> with a TTL,
// so status stays pollable after the submitting process restarts.
type RedisRegistry struct {
	redis     *redis.Client
	retention time.Duration
}

func NewRedisRegistry(redisClient *redis.Client, retention time.Duration) *RedisRegistry {
	return &RedisRegistry{redis: redisClient, retention: retention}
}

func (r *RedisRegistry) Create(ctx context.Context, task *model.Task) error {
	return r.save(ctx, task)
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (*model.Task, error) {
	data, err := r.redis.Get(ctx, taskKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("registry get: %w", err)
	}

	var task model.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("registry decode: %w", err)
	}

	return &task, nil
}

func (r *RedisRegistry) MarkProcessing(ctx context.Context, id string) error {
	return r.mutate(ctx, id, func(task *model.Task) {
		now := time.Now()
		task.Status = model.TaskStatusProcessing
		task.StartedAt = &now
	})
}

func (r *RedisRegistry) UpdateProgress(ctx context.Context, id string, p model.Progress) error {
	return r.mutate(ctx, id, func(task *model.Task) {
		task.Status = model.TaskStatusProcessing
		task.Progress = p
	})
}

func (r *RedisRegistry) Complete(ctx context.Context, id string, result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("registry encode result: %w", err)
	}

	return r.mutate(ctx, id, func(task *model.Task) {
		now := time.Now()
		task.Status = model.TaskStatusCompleted
		task.Result = data
		task.Progress = model.Progress{Stage: model.StageCompleted, Percent: 100}
		task.CompletedAt = &now
	})
}

func (r *RedisRegistry) Fail(ctx context.Context, id string, reason string) error {
	return r.mutate(ctx, id, func(task *model.Task) {
		now := time.Now()
		task.Status = model.TaskStatusFailed
		task.Error = &reason
		task.Progress = model.Progress{Stage: model.StageError, Message: reason}
		task.CompletedAt = &now
	})
}

// mutate is read-modify-write without a lock: a task has exactly one owning
// worker, so no two writers ever race on the same record.
func (r *RedisRegistry) mutate(ctx context.Context, id string, fn func(*model.Task)) error {
	task, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if task.Status.Terminal() {
		return ErrTaskTerminal
	}

	fn(task)

	return r.save(ctx, task)
}

func (r *RedisRegistry) save(ctx context.Context, task *model.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("registry encode: %w", err)
	}
	if err := r.redis.Set(ctx, taskKey(task.ID), data, r.retention).Err(); err != nil {
		return fmt.Errorf("registry save: %w", err)
	}
	return nil
}

func taskKey(id string) string {
	return "task:" + id
}
