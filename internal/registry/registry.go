package registry

import (
	"context"
	"errors"

	"github.com/mediafetch/api/internal/model"
)

var (
	// ErrTaskNotFound means no record exists for the id (or it expired).
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskTerminal rejects writes to a task whose state is already final.
	ErrTaskTerminal = errors.New("task already in a terminal state")
)

// Registry is the durable task-state store, queryable across process
// boundaries. After Create, only the worker that owns the task may write to
// it; terminal states are immutable.
type Registry interface {
	Create(ctx context.Context, task *model.Task) error
	Get(ctx context.Context, id string) (*model.Task, error)
	MarkProcessing(ctx context.Context, id string) error
	UpdateProgress(ctx context.Context, id string, p model.Progress) error
	Complete(ctx context.Context, id string, result interface{}) error
	Fail(ctx context.Context, id string, reason string) error
}
