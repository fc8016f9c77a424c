package team

import (
	"errors"

	"github.com/Kyz7/requestdesk/internal/audit"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/Kyz7/requestdesk/internal/utils"
	"github.com/gofiber/fiber/v2"
)

const entityType = "team"

type createInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	UserIDs     []uint `json:"user_ids" validate:"omitempty,dive,min=1"`
}

type updateInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
}

type assignInput struct {
	UserIDs []uint `json:"user_ids" validate:"required,dive,min=1"`
}

func errorResponse(c *fiber.Ctx, err error, fallback string) error {
	var inUse *InUseError
	switch {
	case errors.As(err, &inUse):
		return response.Conflict(c, inUse.Error())
	case errors.Is(err, ErrNotFound):
		return response.NotFound(c, "Team")
	case errors.Is(err, ErrInvalidUser):
		return response.ValidationError(c, map[string]string{"user_ids": "The selected user_ids are invalid"})
	}

	logging.Component("team").WithError(err).Error(fallback)
	return response.InternalError(c, fallback)
}

func ListTeamsHandler(c *fiber.Ctx) error {
	page, limit, offset := response.Paging(c, 15, 100)

	teams, total, err := List(limit, offset)
	if err != nil {
		return errorResponse(c, err, "Failed to fetch teams")
	}
	return response.SuccessWithMeta(c, teams, response.CalculateMeta(page, limit, total), "Teams retrieved successfully")
}

func CreateTeamHandler(c *fiber.Ctx) error {
	var in createInput
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(in); errs != nil {
		return response.ValidationError(c, errs)
	}

	t, err := Create(utils.SanitizeText(in.Name), utils.SanitizeText(in.Description), in.UserIDs)
	if err != nil {
		return errorResponse(c, err, "Failed to create team")
	}

	audit.Log(c, audit.ActionTeamCreated, entityType, t.ID, nil, t)
	return response.Created(c, t, "Team created successfully")
}

func GetTeamHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid team ID", nil)
	}

	d, err := Show(uint(id))
	if err != nil {
		return errorResponse(c, err, "Failed to fetch team")
	}
	return response.Success(c, d, "Team retrieved successfully")
}

func UpdateTeamHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid team ID", nil)
	}

	var in updateInput
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

	before, after, err := Update(uint(id), in.Name, in.Description)
	if err != nil {
		return errorResponse(c, err, "Failed to update team")
	}

	audit.Log(c, audit.ActionTeamUpdated, entityType, after.ID, before, after)
	return response.Success(c, after, "Team updated successfully")
}

func DeleteTeamHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid team ID", nil)
	}

	t, err := Delete(uint(id))
	if err != nil {
		return errorResponse(c, err, "Failed to delete team")
	}

	audit.Log(c, audit.ActionTeamDeleted, entityType, t.ID, t, nil)
	return response.Success(c, nil, "Team deleted successfully")
}

func AssignUsersHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid team ID", nil)
	}

	var in assignInput
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(in); errs != nil {
		return response.ValidationError(c, errs)
	}

	before, err := Find(uint(id))
	if err != nil {
		return errorResponse(c, err, "Failed to assign users")
	}

	t, err := AssignUsers(uint(id), in.UserIDs)
	if err != nil {
		return errorResponse(c, err, "Failed to assign users")
	}

	audit.Log(c, audit.ActionTeamUpdated, entityType, t.ID, before.Members, t.Members)
	return response.Success(c, t, "Users assigned successfully")
}
