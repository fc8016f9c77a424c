package mcp

import (
	"encoding/json"
	"errors"

	"github.com/Kyz7/requestdesk/internal/access"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/Kyz7/requestdesk/internal/utils"
	"github.com/gofiber/fiber/v2"
)

type createBody struct {
	Month string `json:"month" validate:"required,datetime=2006-01"`
}

func errorResponse(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return response.NotFound(c, "MCP")
	case errors.Is(err, ErrPostNotFound):
		return response.NotFound(c, "MCP post")
	case errors.Is(err, ErrForbidden):
		return response.Forbidden(c, "Unauthorized")
	case errors.Is(err, ErrMonthTaken):
		return response.Conflict(c, "An MCP already exists for this month")
	case errors.Is(err, ErrInvalidAssignee):
		return response.ValidationError(c, map[string]string{"assigned_to": "The selected assigned_to is invalid"})
	}

	logging.Component("mcp").WithError(err).Error(fallback)
	return response.InternalError(c, fallback)
}

// ListMcpsHandler runs behind access.BusinessFromParam.
func ListMcpsHandler(c *fiber.Ctx) error {
	b := access.CurrentBusiness(c)
	page, limit, offset := response.Paging(c, 15, 100)

	list, total, err := List(b.ID, c.Query("month"), limit, offset)
	if err != nil {
		return errorResponse(c, err, "Failed to fetch MCPs")
	}
	return response.SuccessWithMeta(c, list, response.CalculateMeta(page, limit, total), "MCPs retrieved successfully")
}

func CreateMcpHandler(c *fiber.Ctx) error {
	b := access.CurrentBusiness(c)

	var body createBody
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(body); errs != nil {
		return response.ValidationError(c, errs)
	}

	m, err := Create(b.ID, body.Month)
	if err != nil {
		return errorResponse(c, err, "Failed to create MCP")
	}
	return response.Created(c, m, "MCP created successfully")
}

func CreatePostHandler(c *fiber.Ctx) error {
	mcpID, err := c.ParamsInt("mcp_id")
	if err != nil || mcpID <= 0 {
		return response.BadRequest(c, "Invalid MCP ID", nil)
	}

	var in CreatePostInput
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(in); errs != nil {
		return response.ValidationError(c, errs)
	}
	in.Title = utils.SanitizeText(in.Title)
	in.Caption = utils.SanitizeRich(in.Caption)

	post, err := CreatePost(uint(mcpID), in)
	if err != nil {
		return errorResponse(c, err, "Failed to create MCP post")
	}
	return response.Created(c, post, "MCP post created successfully")
}

func UpdatePostHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid MCP post ID", nil)
	}

	var in UpdatePostInput
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(in); errs != nil {
		return response.ValidationError(c, errs)
	}
	var present map[string]json.RawMessage
	_ = json.Unmarshal(c.Body(), &present)
	if raw, ok := present["scheduled_at"]; ok && string(raw) == "null" {
		in.ClearSchedule = true
	}
	if in.Title != nil {
		t := utils.SanitizeText(*in.Title)
		in.Title = &t
	}
	if in.Caption != nil {
		cp := utils.SanitizeRich(*in.Caption)
		in.Caption = &cp
	}

	post, err := UpdatePost(access.CurrentUser(c), uint(id), in)
	if err != nil {
		return errorResponse(c, err, "Failed to update MCP post")
	}
	return response.Success(c, post, "MCP post updated successfully")
}
