package business

import (
	"errors"

	"github.com/Kyz7/requestdesk/internal/access"
	"github.com/Kyz7/requestdesk/internal/audit"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/Kyz7/requestdesk/internal/utils"
	"github.com/gofiber/fiber/v2"
)

const entityType = "business"

func errorResponse(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return response.NotFound(c, "Business")
	case errors.Is(err, ErrForbidden):
		return response.Forbidden(c, "Unauthorized")
	case errors.Is(err, ErrInvalidOwner):
		return response.ValidationError(c, map[string]string{"owner_user_id": "The selected owner_user_id is invalid"})
	case errors.Is(err, ErrInvalidMember):
		return response.ValidationError(c, map[string]string{"user_id": "The selected user_id is invalid"})
	case errors.Is(err, ErrOwnerMember):
		return response.Conflict(c, "The owner is already part of the business")
	}

	logging.Component("business").WithError(err).Error(fallback)
	return response.InternalError(c, fallback)
}

func ListBusinessesHandler(c *fiber.Ctx) error {
	page, limit, offset := response.Paging(c, 15, 100)

	list, total, err := List(access.CurrentUser(c), c.Query("status"), limit, offset)
	if err != nil {
		return errorResponse(c, err, "Failed to fetch businesses")
	}
	return response.SuccessWithMeta(c, list, response.CalculateMeta(page, limit, total), "Businesses retrieved successfully")
}

func CreateBusinessHandler(c *fiber.Ctx) error {
	var in CreateInput
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(in); errs != nil {
		return response.ValidationError(c, errs)
	}
	in.Name = utils.SanitizeText(in.Name)
	in.Industry = utils.SanitizeText(in.Industry)
	in.Description = utils.SanitizeRich(in.Description)

	b, err := Create(access.CurrentUser(c), in)
	if err != nil {
		return errorResponse(c, err, "Failed to create business")
	}

	audit.Log(c, audit.ActionBusinessCreated, entityType, b.ID, nil, b)
	return response.Created(c, b, "Business created successfully")
}

// GetBusinessHandler runs behind access.BusinessFromParam.
func GetBusinessHandler(c *fiber.Ctx) error {
	b, err := Find(access.CurrentBusiness(c).ID)
	if err != nil {
		return errorResponse(c, err, "Failed to fetch business")
	}
	return response.Success(c, b, "Business retrieved successfully")
}

func UpdateBusinessHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid business ID", nil)
	}

	var in UpdateInput
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(in); errs != nil {
		return response.ValidationError(c, errs)
	}
	if in.Name != nil {
		name := utils.SanitizeText(*in.Name)
		in.Name = &name
	}
	if in.Description != nil {
		desc := utils.SanitizeRich(*in.Description)
		in.Description = &desc
	}

	before, after, err := Update(access.CurrentUser(c), uint(id), in)
	if err != nil {
		return errorResponse(c, err, "Failed to update business")
	}

	audit.Log(c, audit.ActionBusinessUpdated, entityType, after.ID, before, after)
	return response.Success(c, after, "Business updated successfully")
}

func DeleteBusinessHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid business ID", nil)
	}

	b, err := Delete(access.CurrentUser(c), uint(id))
	if err != nil {
		return errorResponse(c, err, "Failed to delete business")
	}

	audit.Log(c, audit.ActionBusinessDeleted, entityType, b.ID, b, nil)
	return response.Success(c, nil, "Business deleted successfully")
}

func AddMemberHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid business ID", nil)
	}

	var in struct {
		UserID         uint   `json:"user_id" validate:"required"`
		RoleInBusiness string `json:"role_in_business" validate:"omitempty,max=50"`
	}
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(in); errs != nil {
		return response.ValidationError(c, errs)
	}

	member, err := AddMember(access.CurrentUser(c), uint(id), in.UserID, utils.SanitizeText(in.RoleInBusiness))
	if err != nil {
		return errorResponse(c, err, "Failed to add member")
	}

	audit.Log(c, audit.ActionBusinessUpdated, entityType, uint(id), nil, member)
	return response.Created(c, member, "Member added successfully")
}

func RemoveMemberHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid business ID", nil)
	}
	userID, err := c.ParamsInt("user_id")
	if err != nil || userID <= 0 {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	if err := RemoveMember(access.CurrentUser(c), uint(id), uint(userID)); err != nil {
		return errorResponse(c, err, "Failed to remove member")
	}

	audit.Log(c, audit.ActionBusinessUpdated, entityType, uint(id), fiber.Map{"removed_user_id": userID}, nil)
	return response.Success(c, nil, "Member removed successfully")
}
