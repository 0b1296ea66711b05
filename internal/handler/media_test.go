package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/mediafetch/api/internal/model"
	"github.com/mediafetch/api/internal/registry"
	"github.com/mediafetch/api/internal/service"
	"github.com/mediafetch/api/pkg/response"
)

// stubEnqueuer stands in for the queue; onEnqueue plays the worker's role.
type stubEnqueuer struct {
	mu        sync.Mutex
	count     int
	onEnqueue func(task *asynq.Task)
}

func (s *stubEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()

	if s.onEnqueue != nil {
		go s.onEnqueue(task)
	}
	return &asynq.TaskInfo{ID: "queued"}, nil
}

func (s *stubEnqueuer) enqueued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

type mediaFixture struct {
	app      *fiber.App
	registry *registry.MemoryRegistry
	enqueuer *stubEnqueuer
}

func newMediaFixture(t *testing.T, syncTimeout time.Duration) *mediaFixture {
	t.Helper()

	reg := registry.NewMemoryRegistry()
	enq := &stubEnqueuer{}
	svc := service.NewMediaService(reg, enq, "http://localhost:5000")
	h := NewMediaHandler(svc, validator.New(), syncTimeout)

	app := fiber.New()
	app.Post("/api/media", h.Submit)
	app.Post("/api/media/batch", h.SubmitBatch)
	app.Get("/api/tasks/:id", h.Status)

	return &mediaFixture{app: app, registry: reg, enqueuer: enq}
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func TestSubmitRejectsInvalidTypeWithoutCreatingTask(t *testing.T) {
	f := newMediaFixture(t, time.Second)

	resp := postJSON(t, f.app, "/api/media", map[string]string{
		"type": "gif",
		"url":  "https://example.com/a",
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body response.ErrorResponse
	decodeBody(t, resp, &body)
	require.Equal(t, response.CodeValidationError, body.Error.Code)

	// Rejected before submission: nothing was enqueued or registered.
	require.Equal(t, 0, f.enqueuer.enqueued())
}

func TestSubmitRejectsMissingURL(t *testing.T) {
	f := newMediaFixture(t, time.Second)

	resp := postJSON(t, f.app, "/api/media", map[string]string{"type": "audio"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, 0, f.enqueuer.enqueued())
}

func TestSubmitRejectsMalformedBody(t *testing.T) {
	f := newMediaFixture(t, time.Second)

	req := httptest.NewRequest(http.MethodPost, "/api/media", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.app.Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSubmitReturnsResultWithinSyncWindow(t *testing.T) {
	f := newMediaFixture(t, 5*time.Second)

	f.enqueuer.onEnqueue = func(task *asynq.Task) {
		var payload model.MediaTaskPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return
		}
		_ = f.registry.Complete(context.Background(), payload.TaskID, model.SingleResult{
			Playlist:    false,
			DownloadURL: "http://localhost:5000/api/download/aa.mp3",
			Title:       "A Title",
		})
	}

	resp := postJSON(t, f.app, "/api/media", map[string]string{
		"type": "audio",
		"url":  "https://example.com/watch?v=abc",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body model.CompletedResponse
	decodeBody(t, resp, &body)
	require.Equal(t, "completed", body.Status)

	var result model.SingleResult
	require.NoError(t, json.Unmarshal(body.Result, &result))
	require.Equal(t, "A Title", result.Title)
}

func TestSubmitDefersOnSyncTimeout(t *testing.T) {
	// No worker ever runs; the sync window elapses with the task pending.
	f := newMediaFixture(t, 300*time.Millisecond)

	resp := postJSON(t, f.app, "/api/media", map[string]string{
		"type": "video",
		"url":  "https://example.com/watch?v=abc",
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var body model.ProcessingResponse
	decodeBody(t, resp, &body)
	require.Equal(t, "processing", body.Status)
	require.NotEmpty(t, body.TaskID)
	require.Equal(t, "http://localhost:5000/api/tasks/"+body.TaskID, body.CheckStatusURL)

	// The deferred handle stays valid: the task completes later and the
	// status endpoint reports it.
	require.NoError(t, f.registry.Complete(context.Background(), body.TaskID, model.SingleResult{Title: "done"}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+body.TaskID, nil)
	statusResp, err := f.app.Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, statusResp.StatusCode)

	var status model.TaskStatusResponse
	decodeBody(t, statusResp, &status)
	require.Equal(t, model.TaskStatusCompleted, status.Status)
}

func TestSubmitReportsFailureWithinSyncWindow(t *testing.T) {
	f := newMediaFixture(t, 5*time.Second)

	f.enqueuer.onEnqueue = func(task *asynq.Task) {
		var payload model.MediaTaskPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return
		}
		_ = f.registry.Fail(context.Background(), payload.TaskID, "source unavailable")
	}

	resp := postJSON(t, f.app, "/api/media", map[string]string{
		"type": "audio",
		"url":  "https://example.com/watch?v=abc",
	})
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body model.FailedResponse
	decodeBody(t, resp, &body)
	require.Equal(t, "failed", body.Status)
	require.Equal(t, "source unavailable", body.Error)
}

func TestSubmitBatchValidatesURLCount(t *testing.T) {
	f := newMediaFixture(t, time.Second)

	resp := postJSON(t, f.app, "/api/media/batch", map[string]interface{}{
		"type": "audio",
		"urls": []string{},
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	urls := make([]string, 51)
	for i := range urls {
		urls[i] = "https://example.com/v"
	}
	resp = postJSON(t, f.app, "/api/media/batch", map[string]interface{}{
		"type": "audio",
		"urls": urls,
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	require.Equal(t, 0, f.enqueuer.enqueued())
}

func TestSubmitBatchDefers(t *testing.T) {
	f := newMediaFixture(t, 300*time.Millisecond)

	resp := postJSON(t, f.app, "/api/media/batch", map[string]interface{}{
		"type":      "video",
		"urls":      []string{"https://example.com/a", "https://example.com/b"},
		"folder_id": "folder-1",
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var body model.ProcessingResponse
	decodeBody(t, resp, &body)

	task, err := f.registry.Get(context.Background(), body.TaskID)
	require.NoError(t, err)
	require.Equal(t, model.TaskKindBatch, task.Kind)
	require.Equal(t, "folder-1", task.Options.FolderID)
}

func TestStatusUnknownTaskReturns404(t *testing.T) {
	f := newMediaFixture(t, time.Second)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/does-not-exist", nil)
	resp, err := f.app.Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var body response.ErrorResponse
	decodeBody(t, resp, &body)
	require.Equal(t, response.CodeNotFound, body.Error.Code)
}

func TestStatusProcessingIncludesProgress(t *testing.T) {
	f := newMediaFixture(t, 200*time.Millisecond)

	resp := postJSON(t, f.app, "/api/media", map[string]string{
		"type": "audio",
		"url":  "https://example.com/watch?v=abc",
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var deferred model.ProcessingResponse
	decodeBody(t, resp, &deferred)

	require.NoError(t, f.registry.UpdateProgress(context.Background(), deferred.TaskID, model.Progress{
		Stage:   model.StageDownloading,
		Percent: 50,
		Message: "Downloading media...",
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+deferred.TaskID, nil)
	statusResp, err := f.app.Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, statusResp.StatusCode)

	var status model.TaskStatusResponse
	decodeBody(t, statusResp, &status)
	require.Equal(t, model.TaskStatusProcessing, status.Status)
	require.NotNil(t, status.Progress)
	require.Equal(t, 50, status.Progress.Percent)
	require.Equal(t, model.StageDownloading, status.Progress.Stage)
}
