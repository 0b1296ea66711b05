package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mediafetch/api/internal/store"
	"github.com/mediafetch/api/pkg/response"
)

type FilesHandler struct {
	store *store.Store
	repo  store.Repository
}

func NewFilesHandler(st *store.Store, repo store.Repository) *FilesHandler {
	return &FilesHandler{store: st, repo: repo}
}

// Download handles GET /api/download/:filename. Only generated names are
// accepted, so user input can never walk the filesystem.
func (h *FilesHandler) Download(c *fiber.Ctx) error {
	filename := c.Params("filename")
	if !store.ValidFilename(filename) {
		return response.NotFound(c, "File not found")
	}

	if !h.store.Exists(filename) {
		return response.NotFound(c, "File not found")
	}

	return c.Download(h.store.Path(filename), filename)
}

// List handles GET /api/files
func (h *FilesHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	if limit < 1 || limit > 500 {
		limit = 100
	}

	files, err := h.repo.List(limit)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, fiber.Map{
		"files": files,
		"count": len(files),
	})
}
