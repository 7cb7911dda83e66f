package handlers

import (
	"context"
	"io"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/attachments"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/i18n"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

type AttachmentStore interface {
	Upload(ctx context.Context, citizenID, filename string, r io.Reader, size int64, contentType string) (*attachments.File, error)
	List(ctx context.Context, citizenID string) ([]attachments.File, error)
	Remove(ctx context.Context, citizenID, filename string) error
}

type AttachmentsHandler struct {
	files AttachmentStore
}

func NewAttachmentsHandler(files AttachmentStore) *AttachmentsHandler {
	return &AttachmentsHandler{files: files}
}

func (h *AttachmentsHandler) List(c *fiber.Ctx) error {
	files, err := h.files.List(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err, "")
	}
	return c.JSON(fiber.Map{"items": files})
}

// Upload takes a multipart form with the file under "file".
func (h *AttachmentsHandler) Upload(c *fiber.Ctx) error {
	l := middleware.Localizer(c)

	header, err := c.FormFile("file")
	if err != nil {
		return fail(c, apperr.ValidationFields("invalid input", map[string]string{"file": "is required"}), l.T(i18n.FileFailed))
	}
	f, err := header.Open()
	if err != nil {
		return fail(c, apperr.Internal("Error reading upload.", err), l.T(i18n.FileFailed))
	}
	defer f.Close()

	file, err := h.files.Upload(c.UserContext(), c.Params("id"), header.Filename, f, header.Size, header.Header.Get(fiber.HeaderContentType))
	if err != nil {
		return fail(c, err, l.T(i18n.FileFailed))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"file":    file,
		"message": l.T(i18n.FileUploaded),
	})
}

func (h *AttachmentsHandler) Remove(c *fiber.Ctx) error {
	l := middleware.Localizer(c)
	if err := h.files.Remove(c.UserContext(), c.Params("id"), c.Params("name")); err != nil {
		return fail(c, err, l.T(i18n.FileFailed))
	}
	return c.JSON(dto.MessageResponse{Message: l.T(i18n.FileRemoved)})
}
