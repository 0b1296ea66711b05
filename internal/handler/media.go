package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mediafetch/api/internal/model"
	"github.com/mediafetch/api/internal/registry"
	"github.com/mediafetch/api/internal/service"
	"github.com/mediafetch/api/pkg/response"
)

type MediaHandler struct {
	service     *service.MediaService
	validator   *validator.Validate
	syncTimeout time.Duration
}

func NewMediaHandler(svc *service.MediaService, v *validator.Validate, syncTimeout time.Duration) *MediaHandler {
	return &MediaHandler{
		service:     svc,
		validator:   v,
		syncTimeout: syncTimeout,
	}
}

// Submit handles POST /api/media
func (h *MediaHandler) Submit(c *fiber.Ctx) error {
	var req model.MediaRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	taskID, err := h.service.Submit(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return h.awaitOrDefer(c, taskID)
}

// SubmitBatch handles POST /api/media/batch
func (h *MediaHandler) SubmitBatch(c *fiber.Ctx) error {
	var req model.BatchRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	taskID, err := h.service.SubmitBatch(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return h.awaitOrDefer(c, taskID)
}

// awaitOrDefer blocks up to the sync window, then either returns the terminal
// outcome or a deferred handle. The task keeps running after a timeout.
func (h *MediaHandler) awaitOrDefer(c *fiber.Ctx, taskID string) error {
	task, err := h.service.Await(c.Context(), taskID, h.syncTimeout)
	if err != nil {
		if errors.Is(err, service.ErrAwaitTimeout) {
			return response.Accepted(c, model.ProcessingResponse{
				Status:         "processing",
				TaskID:         taskID,
				CheckStatusURL: h.service.CheckStatusURL(taskID),
			})
		}
		return response.ServiceError(c, err.Error())
	}

	if task.Status == model.TaskStatusFailed {
		reason := "task failed"
		if task.Error != nil {
			reason = *task.Error
		}
		return c.Status(fiber.StatusInternalServerError).JSON(model.FailedResponse{
			Status: "failed",
			TaskID: taskID,
			Error:  reason,
		})
	}

	return response.OK(c, model.CompletedResponse{
		Status: "completed",
		Result: task.Result,
	})
}

// Status handles GET /api/tasks/:id. It only reads; a task is never created
// here.
func (h *MediaHandler) Status(c *fiber.Ctx) error {
	taskID := c.Params("id")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	status, err := h.service.Status(c.Context(), taskID)
	if err != nil {
		if errors.Is(err, registry.ErrTaskNotFound) {
			return response.NotFound(c, "Task not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, status)
}
