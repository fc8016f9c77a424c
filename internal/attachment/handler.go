package attachment

import (
	"errors"
	"fmt"

	"github.com/Kyz7/requestdesk/internal/access"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/request"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/gofiber/fiber/v2"
)

func errorResponse(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, request.ErrNotFound):
		return response.NotFound(c, "Request")
	case errors.Is(err, ErrNotFound):
		return response.NotFound(c, "Attachment")
	case errors.Is(err, ErrFileNotFound):
		return response.NotFound(c, "File")
	case errors.Is(err, ErrForbidden):
		return response.Forbidden(c, "Unauthorized - You cannot delete this attachment")
	case errors.Is(err, request.ErrForbidden):
		return response.Forbidden(c, "Unauthorized")
	case errors.Is(err, ErrTooLarge):
		return response.BadRequest(c, "File too large", map[string]interface{}{
			"max_size_mb": MaxUploadSize / (1024 * 1024),
		})
	case errors.Is(err, request.ErrStorageUnavailable):
		return response.ServiceUnavailable(c, response.CodeStorageUnavailable, "File storage is not configured")
	}

	logging.Component("attachment").WithError(err).Error(fallback)
	return response.InternalError(c, fallback)
}

func ListAttachmentsHandler(c *fiber.Ctx) error {
	requestID, err := c.ParamsInt("request_id")
	if err != nil || requestID <= 0 {
		return response.BadRequest(c, "Invalid request ID", nil)
	}

	items, err := List(access.CurrentUser(c), uint(requestID))
	if err != nil {
		return errorResponse(c, err, "Failed to fetch attachments")
	}
	return response.Success(c, items, "Attachments retrieved successfully")
}

func UploadAttachmentHandler(c *fiber.Ctx) error {
	requestID, err := c.ParamsInt("request_id")
	if err != nil || requestID <= 0 {
		return response.BadRequest(c, "Invalid request ID", nil)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, map[string]string{"file": "file is required"})
	}

	att, err := Upload(access.CurrentUser(c), uint(requestID), file)
	if err != nil {
		return errorResponse(c, err, "Failed to upload file")
	}
	return response.Created(c, att, "File uploaded successfully")
}

func DownloadAttachmentHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid attachment ID", nil)
	}

	att, rc, err := Open(access.CurrentUser(c), uint(id))
	if err != nil {
		return errorResponse(c, err, "Failed to download file")
	}

	if att.MimeType != "" {
		c.Set(fiber.HeaderContentType, att.MimeType)
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", att.FileName))
	return c.SendStream(rc)
}

func DeleteAttachmentHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid attachment ID", nil)
	}

	if _, err := Delete(access.CurrentUser(c), uint(id)); err != nil {
		return errorResponse(c, err, "Failed to delete attachment")
	}
	return response.Success(c, nil, "Attachment deleted successfully")
}
