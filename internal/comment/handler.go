package comment

import (
	"errors"

	"github.com/Kyz7/requestdesk/internal/access"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/request"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/Kyz7/requestdesk/internal/utils"
	"github.com/gofiber/fiber/v2"
)

type contentInput struct {
	Content string `json:"content" validate:"required,max=5000"`
}

func errorResponse(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, request.ErrNotFound):
		return response.NotFound(c, "Request")
	case errors.Is(err, ErrNotFound):
		return response.NotFound(c, "Comment")
	case errors.Is(err, request.ErrForbidden), errors.Is(err, ErrForbidden):
		return response.Forbidden(c, "Unauthorized")
	}

	logging.Component("comment").WithError(err).Error(fallback)
	return response.InternalError(c, fallback)
}

func parseContent(c *fiber.Ctx) (string, error) {
	var in contentInput
	if err := c.BodyParser(&in); err != nil {
		return "", response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(in); errs != nil {
		return "", response.ValidationError(c, errs)
	}

	content := utils.SanitizeRich(in.Content)
	if content == "" {
		return "", response.ValidationError(c, map[string]string{"content": "content is required"})
	}
	return content, nil
}

func ListCommentsHandler(c *fiber.Ctx) error {
	requestID, err := c.ParamsInt("request_id")
	if err != nil || requestID <= 0 {
		return response.BadRequest(c, "Invalid request ID", nil)
	}

	comments, err := List(access.CurrentUser(c), uint(requestID))
	if err != nil {
		return errorResponse(c, err, "Failed to fetch comments")
	}
	return response.Success(c, comments, "Comments retrieved successfully")
}

func CreateCommentHandler(c *fiber.Ctx) error {
	requestID, err := c.ParamsInt("request_id")
	if err != nil || requestID <= 0 {
		return response.BadRequest(c, "Invalid request ID", nil)
	}

	content, err := parseContent(c)
	if content == "" {
		return err
	}

	cm, err := Create(access.CurrentUser(c), uint(requestID), content)
	if err != nil {
		return errorResponse(c, err, "Failed to add comment")
	}
	return response.Created(c, cm, "Comment added successfully")
}

func UpdateCommentHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid comment ID", nil)
	}

	content, err := parseContent(c)
	if content == "" {
		return err
	}

	cm, err := Update(access.CurrentUser(c), uint(id), content)
	if err != nil {
		return errorResponse(c, err, "Failed to update comment")
	}
	return response.Success(c, cm, "Comment updated successfully")
}

func DeleteCommentHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid comment ID", nil)
	}

	if err := Delete(access.CurrentUser(c), uint(id)); err != nil {
		return errorResponse(c, err, "Failed to delete comment")
	}
	return response.Success(c, nil, "Comment deleted successfully")
}
