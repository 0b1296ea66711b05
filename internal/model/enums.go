package model

// MediaKind selects the produced container: mp3 for audio, mp4 for video.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// Extension returns the extension of the finalized artifact for this kind.
func (k MediaKind) Extension() string {
	if k == MediaAudio {
		return ".mp3"
	}
	return ".mp4"
}

// TaskKind distinguishes how the input is interpreted.
type TaskKind string

const (
	TaskKindSingle   TaskKind = "single"
	TaskKindPlaylist TaskKind = "playlist"
	TaskKindBatch    TaskKind = "batch"
)

// TaskStatus is the externally visible lifecycle of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// SubItemStatus is the outcome of one playlist/batch member.
type SubItemStatus string

const (
	SubItemSuccess SubItemStatus = "success"
	SubItemFailed  SubItemStatus = "failed"
)
