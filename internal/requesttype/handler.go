package requesttype

import (
	"encoding/json"
	"errors"

	"github.com/Kyz7/requestdesk/internal/audit"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/Kyz7/requestdesk/internal/utils"
	"github.com/gofiber/fiber/v2"
)

const entityType = "request_type"

func errorResponse(c *fiber.Ctx, err error, fallback string) error {
	var inputErrs InputErrors
	var inUse *FieldInUseError

	switch {
	case errors.As(err, &inputErrs):
		return response.ValidationError(c, map[string]string(inputErrs))
	case errors.As(err, &inUse):
		return response.ConflictWithDetails(c,
			"Cannot remove fields that requests have already answered", fiber.Map{"field_keys": inUse.Keys})
	case errors.Is(err, ErrNotFound):
		return response.NotFound(c, "Request type")
	case errors.Is(err, ErrUnavailable):
		return response.Forbidden(c, "Request type is not available")
	}

	logging.Component("requesttype").WithError(err).Error(fallback)
	return response.InternalError(c, fallback)
}

func AdminListRequestTypesHandler(c *fiber.Ctx) error {
	page, limit, offset := response.Paging(c, 15, 100)

	types, total, err := List(limit, offset)
	if err != nil {
		return errorResponse(c, err, "Failed to fetch request types")
	}
	return response.SuccessWithMeta(c, types, response.CalculateMeta(page, limit, total), "Request types retrieved successfully")
}

func CreateRequestTypeHandler(c *fiber.Ctx) error {
	var in CreateInput
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(in); errs != nil {
		return response.ValidationError(c, errs)
	}
	in.Name = utils.SanitizeText(in.Name)

	rt, err := Create(in)
	if err != nil {
		return errorResponse(c, err, "Failed to create request type")
	}

	audit.Log(c, audit.ActionRequestTypeCreated, entityType, rt.ID, nil, rt)
	return response.Created(c, rt, "Request type created successfully")
}

func GetRequestTypeHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid request type ID", nil)
	}

	rt, err := Find(uint(id))
	if err != nil {
		return errorResponse(c, err, "Failed to fetch request type")
	}
	return response.Success(c, rt, "Request type retrieved successfully")
}

func UpdateRequestTypeHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid request type ID", nil)
	}

	var in UpdateInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(in); errs != nil {
		return response.ValidationError(c, errs)
	}

	var present map[string]json.RawMessage
	_ = json.Unmarshal(c.Body(), &present)
	if raw, ok := present["default_team_id"]; ok && string(raw) == "null" {
		in.ClearDefaultTeam = true
	}
	if in.Name != nil {
		name := utils.SanitizeText(*in.Name)
		in.Name = &name
	}

	before, after, err := Update(uint(id), in)
	if err != nil {
		return errorResponse(c, err, "Failed to update request type")
	}

	audit.Log(c, audit.ActionRequestTypeUpdated, entityType, after.ID, before, after)
	return response.Success(c, after, "Request type updated successfully")
}

func DeleteRequestTypeHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid request type ID", nil)
	}

	rt, err := Delete(uint(id))
	if err != nil {
		return errorResponse(c, err, "Failed to delete request type")
	}

	audit.Log(c, audit.ActionRequestTypeDeleted, entityType, rt.ID, rt, nil)
	return response.Success(c, nil, "Request type deleted successfully")
}

// ListPublishedRequestTypesHandler is the client catalogue.
func ListPublishedRequestTypesHandler(c *fiber.Ctx) error {
	types, err := ListPublished()
	if err != nil {
		return errorResponse(c, err, "Failed to fetch request types")
	}
	return response.Success(c, types, "Request types retrieved successfully")
}

func RequestTypeSchemaHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid request type ID", nil)
	}

	rt, err := FindPublished(uint(id))
	if err != nil {
		return errorResponse(c, err, "Failed to fetch request type")
	}
	return response.Success(c, BuildSchema(rt, c.BaseURL()), "Form schema retrieved successfully")
}
