package model

import (
	"encoding/json"
	"time"
)

// MediaRequest is the body of POST /api/media.
type MediaRequest struct {
	Type    MediaKind `json:"type" validate:"required,oneof=audio video"`
	URL     string    `json:"url" validate:"required"`
	Quality string    `json:"quality,omitempty" validate:"omitempty,oneof=144p 240p 360p 480p 720p 1080p 1440p 2160p"`
	Bitrate string    `json:"bitrate,omitempty" validate:"omitempty,oneof=64 96 128 160 192 256 320"`
}

// BatchRequest is the body of POST /api/media/batch.
type BatchRequest struct {
	Type     MediaKind `json:"type" validate:"required,oneof=audio video"`
	URLs     []string  `json:"urls" validate:"required,min=1,max=50,dive,required"`
	Quality  string    `json:"quality,omitempty" validate:"omitempty,oneof=144p 240p 360p 480p 720p 1080p 1440p 2160p"`
	Bitrate  string    `json:"bitrate,omitempty" validate:"omitempty,oneof=64 96 128 160 192 256 320"`
	FolderID string    `json:"folder_id,omitempty"`
}

// SingleResult is the payload of a completed single-item task.
type SingleResult struct {
	Playlist       bool   `json:"playlist"`
	DownloadURL    string `json:"download_url"`
	Title          string `json:"title"`
	Uploader       string `json:"uploader"`
	Thumbnail      string `json:"thumbnail,omitempty"`
	DurationString string `json:"duration_string"`
	WebpageURL     string `json:"webpage_url"`
	ViewCount      *int64 `json:"view_count"`
	LikeCount      *int64 `json:"like_count"`
	Description    string `json:"description,omitempty"`
	UploadDate     string `json:"upload_date"`
	TimeSpend      string `json:"time_spend"`
}

// PlaylistResult is the payload of a completed playlist task. DownloadURL
// points at the first successful item as a representative link.
type PlaylistResult struct {
	Playlist       bool            `json:"playlist"`
	PlaylistTitle  string          `json:"playlist_title"`
	PlaylistCount  int             `json:"playlist_count"`
	Videos         []SubItemResult `json:"videos"`
	DownloadURL    string          `json:"download_url"`
	Title          string          `json:"title"`
	Uploader       string          `json:"uploader"`
	Thumbnail      string          `json:"thumbnail,omitempty"`
	DurationString string          `json:"duration_string"`
	WebpageURL     string          `json:"webpage_url"`
	TimeSpend      string          `json:"time_spend"`
}

// BatchResult is the payload of a completed batch task.
type BatchResult struct {
	Batch       bool            `json:"batch"`
	TotalURLs   int             `json:"total_urls"`
	Completed   int             `json:"completed"`
	Failed      int             `json:"failed"`
	Results     []SubItemResult `json:"results"`
	TimeSpend   string          `json:"time_spend"`
	SuccessRate float64         `json:"success_rate"`
}

// CompletedResponse is returned when a task finishes within the sync window.
type CompletedResponse struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
}

// ProcessingResponse is the deferred handle returned on sync-wait timeout.
type ProcessingResponse struct {
	Status         string `json:"status"`
	TaskID         string `json:"task_id"`
	CheckStatusURL string `json:"check_status_url"`
}

// FailedResponse is returned when the task failed within the sync window.
type FailedResponse struct {
	Status string `json:"status"`
	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}

// TaskStatusResponse is the body of GET /api/tasks/:id.
type TaskStatusResponse struct {
	Status   TaskStatus      `json:"status"`
	Progress *Progress       `json:"progress,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// MediaFile is one persisted artifact metadata row, as listed by GET /api/files.
type MediaFile struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	Title      string    `json:"title"`
	Uploader   string    `json:"uploader"`
	MediaType  MediaKind `json:"media_type"`
	SizeMB     float64   `json:"size_mb"`
	Duration   string    `json:"duration"`
	WebpageURL string    `json:"webpage_url"`
	Thumbnail  string    `json:"thumbnail,omitempty"`
	UploadDate string    `json:"upload_date,omitempty"`
	FolderID   string    `json:"folder_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
