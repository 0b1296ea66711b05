package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/mediafetch/api/internal/model"
	"github.com/mediafetch/api/internal/registry"
	"github.com/mediafetch/api/internal/worker"
)

// QueueMedia is the asynq queue all media tasks go through.
const QueueMedia = "media"

const (
	maxRetry      = 2
	taskRetention = 24 * time.Hour
	pollInterval  = 250 * time.Millisecond
)

// ErrAwaitTimeout means the task did not reach a terminal state within the
// sync window. The task keeps running; the caller polls later.
var ErrAwaitTimeout = errors.New("task still processing")

// TaskEnqueuer is the slice of asynq.Client the coordinator needs.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// MediaService coordinates the synchronous request path: submit a task, wait
// up to a bounded timeout, and hand back a deferred handle when the wait runs
// out. It never writes task state after submission; that belongs to the
// owning worker.
type MediaService struct {
	registry registry.Registry
	enqueuer TaskEnqueuer
	baseURL  string
}

func NewMediaService(reg registry.Registry, enqueuer TaskEnqueuer, baseURL string) *MediaService {
	return &MediaService{
		registry: reg,
		enqueuer: enqueuer,
		baseURL:  baseURL,
	}
}

// Submit registers a task and enqueues it. Returns immediately with the task
// id; identical inputs are never coalesced, each submission is its own task.
func (s *MediaService) Submit(ctx context.Context, req *model.MediaRequest) (string, error) {
	taskID := uuid.New().String()

	kind := model.TaskKindSingle
	if worker.IsPlaylistURL(req.URL) {
		kind = model.TaskKindPlaylist
	}

	task := &model.Task{
		ID:     taskID,
		Kind:   kind,
		Status: model.TaskStatusPending,
		Input:  req.URL,
		Options: model.MediaOptions{
			Kind:    req.Type,
			Quality: req.Quality,
			Bitrate: req.Bitrate,
		},
		CreatedAt: time.Now(),
	}

	payload, err := json.Marshal(model.MediaTaskPayload{
		TaskID:  taskID,
		Input:   req.URL,
		Options: task.Options,
	})
	if err != nil {
		return "", fmt.Errorf("marshal task payload: %w", err)
	}

	if err := s.registry.Create(ctx, task); err != nil {
		return "", fmt.Errorf("register task: %w", err)
	}

	if err := s.enqueue(asynq.NewTask(model.TaskTypeMedia, payload)); err != nil {
		return "", err
	}

	return taskID, nil
}

// SubmitBatch registers and enqueues an explicit URL list.
func (s *MediaService) SubmitBatch(ctx context.Context, req *model.BatchRequest) (string, error) {
	taskID := uuid.New().String()

	task := &model.Task{
		ID:     taskID,
		Kind:   model.TaskKindBatch,
		Status: model.TaskStatusPending,
		URLs:   req.URLs,
		Options: model.MediaOptions{
			Kind:     req.Type,
			Quality:  req.Quality,
			Bitrate:  req.Bitrate,
			FolderID: req.FolderID,
		},
		CreatedAt: time.Now(),
	}

	payload, err := json.Marshal(model.BatchTaskPayload{
		TaskID:  taskID,
		URLs:    req.URLs,
		Options: task.Options,
	})
	if err != nil {
		return "", fmt.Errorf("marshal batch payload: %w", err)
	}

	if err := s.registry.Create(ctx, task); err != nil {
		return "", fmt.Errorf("register task: %w", err)
	}

	if err := s.enqueue(asynq.NewTask(model.TaskTypeBatch, payload)); err != nil {
		return "", err
	}

	return taskID, nil
}

func (s *MediaService) enqueue(task *asynq.Task) error {
	_, err := s.enqueuer.Enqueue(task,
		asynq.Queue(QueueMedia),
		asynq.MaxRetry(maxRetry),
		asynq.Retention(taskRetention),
	)
	if err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// Await polls the registry until the task reaches a terminal state or the
// timeout elapses. On timeout the task is left running (fire-and-forget);
// there is no cancellation of in-flight tasks.
func (s *MediaService) Await(ctx context.Context, taskID string, timeout time.Duration) (*model.Task, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		task, err := s.registry.Get(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if task.Status.Terminal() {
			return task, nil
		}

		select {
		case <-ticker.C:
		case <-deadline.C:
			return nil, ErrAwaitTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Status maps a registry record onto the public status envelope.
func (s *MediaService) Status(ctx context.Context, taskID string) (*model.TaskStatusResponse, error) {
	task, err := s.registry.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	switch task.Status {
	case model.TaskStatusPending:
		return &model.TaskStatusResponse{
			Status:  model.TaskStatusPending,
			Message: "Task has not started yet",
		}, nil
	case model.TaskStatusCompleted:
		return &model.TaskStatusResponse{
			Status: model.TaskStatusCompleted,
			Result: task.Result,
		}, nil
	case model.TaskStatusFailed:
		msg := "Task failed"
		if task.Error != nil {
			msg = *task.Error
		}
		return &model.TaskStatusResponse{
			Status:  model.TaskStatusFailed,
			Message: msg,
		}, nil
	default:
		progress := task.Progress
		return &model.TaskStatusResponse{
			Status:   model.TaskStatusProcessing,
			Progress: &progress,
		}, nil
	}
}

// CheckStatusURL is the poll URL handed out with a deferred handle.
func (s *MediaService) CheckStatusURL(taskID string) string {
	return fmt.Sprintf("%s/api/tasks/%s", s.baseURL, taskID)
}
