package model

import (
	"encoding/json"
	"time"
)

// Task represents one logical unit of asynchronous work. A record is created
// at submission time and from then on mutated only by the worker that owns it.
type Task struct {
	ID          string          `json:"id"`
	Kind        TaskKind        `json:"kind"`
	Status      TaskStatus      `json:"status"`
	Progress    Progress        `json:"progress"`
	Input       string          `json:"input,omitempty"` // URL or search expression
	URLs        []string        `json:"urls,omitempty"`  // batch only
	Options     MediaOptions    `json:"options"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       *string         `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// MediaOptions carries the fetch options chosen by the caller.
type MediaOptions struct {
	Kind     MediaKind `json:"kind"`
	Quality  string    `json:"quality,omitempty"` // vertical resolution cap, e.g. "720p"
	Bitrate  string    `json:"bitrate,omitempty"` // audio bitrate in kbps, e.g. "192"
	FolderID string    `json:"folderId,omitempty"`
}

// Asynq task type names.
const (
	TaskTypeMedia = "media:download"
	TaskTypeBatch = "media:batch"
)

// MediaTaskPayload is the queue payload for single/playlist downloads.
type MediaTaskPayload struct {
	TaskID  string       `json:"taskId"`
	Input   string       `json:"input"`
	Options MediaOptions `json:"options"`
}

// BatchTaskPayload is the queue payload for explicit URL lists.
type BatchTaskPayload struct {
	TaskID  string       `json:"taskId"`
	URLs    []string     `json:"urls"`
	Options MediaOptions `json:"options"`
}

// SubItemResult records the outcome of one playlist/batch member, appended by
// the owning worker in processing order. Order is significant: the first
// successful item supplies the representative download link.
type SubItemResult struct {
	URL         string        `json:"url"`
	Status      SubItemStatus `json:"status"`
	Filename    string        `json:"filename,omitempty"`
	Title       string        `json:"title,omitempty"`
	DownloadURL string        `json:"download_url,omitempty"`
	Duration    string        `json:"duration,omitempty"`
	Uploader    string        `json:"uploader,omitempty"`
	Error       string        `json:"error,omitempty"`
}
