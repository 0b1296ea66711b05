package worker

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/mediafetch/api/internal/fetch"
	"github.com/mediafetch/api/internal/model"
	"github.com/mediafetch/api/internal/registry"
	"github.com/mediafetch/api/internal/store"
)

// ProgressBroadcaster is the observational progress side-channel. Satisfied
// by the websocket hub; may be nil.
type ProgressBroadcaster interface {
	BroadcastProgress(taskID string, p model.Progress)
	BroadcastComplete(taskID string, result interface{})
	BroadcastError(taskID string, code, message string)
}

// MediaWorker executes media tasks pulled from the queue. Exactly one worker
// owns a task at a time; all registry writes for a task happen here.
type MediaWorker struct {
	registry    registry.Registry
	store       *store.Store
	repo        store.Repository
	fetcher     fetch.Fetcher
	hub         ProgressBroadcaster
	baseURL     string
	playlistMax int
}

func NewMediaWorker(reg registry.Registry, st *store.Store, repo store.Repository, fetcher fetch.Fetcher, hub ProgressBroadcaster, baseURL string, playlistMax int) *MediaWorker {
	return &MediaWorker{
		registry:    reg,
		store:       st,
		repo:        repo,
		fetcher:     fetcher,
		hub:         hub,
		baseURL:     baseURL,
		playlistMax: playlistMax,
	}
}

// ProcessTask handles single and playlist downloads.
func (w *MediaWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.MediaTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal media payload: %v: %w", err, asynq.SkipRetry)
	}

	taskID := payload.TaskID
	log.Printf("[%s] Starting download: kind=%s input=%q", taskID, payload.Options.Kind, payload.Input)

	w.markProcessing(ctx, taskID)

	var (
		result interface{}
		err    error
	)
	if IsPlaylistURL(payload.Input) {
		result, err = w.processPlaylist(ctx, taskID, payload.Input, payload.Options)
	} else {
		result, err = w.processSingle(ctx, taskID, payload.Input, payload.Options)
	}
	if err != nil {
		w.failTask(ctx, taskID, err)
		return err
	}

	return w.completeTask(ctx, taskID, result)
}

// ProcessBatchTask handles explicit URL lists.
func (w *MediaWorker) ProcessBatchTask(ctx context.Context, t *asynq.Task) error {
	var payload model.BatchTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal batch payload: %v: %w", err, asynq.SkipRetry)
	}

	taskID := payload.TaskID
	log.Printf("[%s] Starting batch download: kind=%s urls=%d", taskID, payload.Options.Kind, len(payload.URLs))

	w.markProcessing(ctx, taskID)

	result, err := w.processBatch(ctx, taskID, payload.URLs, payload.Options)
	if err != nil {
		w.failTask(ctx, taskID, err)
		return err
	}

	return w.completeTask(ctx, taskID, result)
}

// markProcessing is best-effort: a redelivered task whose first run already
// reached a terminal state must not be blocked from running again.
func (w *MediaWorker) markProcessing(ctx context.Context, taskID string) {
	if err := w.registry.MarkProcessing(ctx, taskID); err != nil {
		log.Printf("[%s] Failed to mark processing: %v", taskID, err)
	}
}

// progress reports a state transition to the registry and the hub. Errors are
// logged, never propagated: a slow or absent observer must not block the task.
func (w *MediaWorker) progress(ctx context.Context, taskID string, p model.Progress) {
	if err := w.registry.UpdateProgress(ctx, taskID, p); err != nil && !errors.Is(err, registry.ErrTaskTerminal) {
		log.Printf("[%s] Failed to update progress: %v", taskID, err)
	}
	if w.hub != nil {
		w.hub.BroadcastProgress(taskID, p)
	}
}

func (w *MediaWorker) completeTask(ctx context.Context, taskID string, result interface{}) error {
	if err := w.registry.Complete(ctx, taskID, result); err != nil {
		if errors.Is(err, registry.ErrTaskTerminal) {
			// Redelivered task; the first run already recorded an outcome.
			log.Printf("[%s] Duplicate completion ignored", taskID)
			return nil
		}
		// A result we cannot record is a failed task, not a silent success.
		w.failTask(ctx, taskID, fmt.Errorf("record result: %w", err))
		return err
	}

	if w.hub != nil {
		w.hub.BroadcastComplete(taskID, result)
	}

	log.Printf("[%s] Completed", taskID)
	return nil
}

func (w *MediaWorker) failTask(ctx context.Context, taskID string, taskErr error) {
	log.Printf("[%s] Failed: %v", taskID, taskErr)

	if err := w.registry.Fail(ctx, taskID, taskErr.Error()); err != nil && !errors.Is(err, registry.ErrTaskTerminal) {
		log.Printf("[%s] Failed to record failure: %v", taskID, err)
	}
	if w.hub != nil {
		w.hub.BroadcastError(taskID, "DOWNLOAD_FAILED", taskErr.Error())
	}
}

// recordMetadata persists the artifact's descriptive record for listing.
func (w *MediaWorker) recordMetadata(artifact *store.Artifact, meta *fetch.Metadata, kind model.MediaKind) error {
	return w.repo.Save(&model.MediaFile{
		Filename:   artifact.Filename,
		Title:      meta.Title,
		Uploader:   meta.Uploader,
		MediaType:  kind,
		SizeMB:     artifact.SizeMB(),
		Duration:   meta.DurationString,
		WebpageURL: meta.WebpageURL,
		Thumbnail:  meta.Thumbnail,
		UploadDate: meta.UploadDate,
	})
}

func (w *MediaWorker) downloadURL(filename string) string {
	return fmt.Sprintf("%s/api/download/%s", w.baseURL, filename)
}

// IsPlaylistURL applies the same collection heuristic as the submission path.
func IsPlaylistURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.Contains(lower, "playlist") || strings.Contains(url, "list=")
}

// randSuffix keeps temp prefixes unique across redeliveries of the same task.
func randSuffix() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])[:8]
}
