package user

import (
	"errors"

	"github.com/Kyz7/requestdesk/internal/access"
	"github.com/Kyz7/requestdesk/internal/audit"
	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/Kyz7/requestdesk/internal/utils"
	"github.com/gofiber/fiber/v2"
)

const entityType = "user"

func errorResponse(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return response.NotFound(c, "User")
	case errors.Is(err, ErrEmailTaken):
		return response.Conflict(c, "User with this email already exists")
	case errors.Is(err, ErrSelf):
		return response.BadRequest(c, "Cannot change the role, status or existence of your own account", nil)
	}

	logging.Component("user").WithError(err).Error(fallback)
	return response.InternalError(c, fallback)
}

func CreateUserHandler(c *fiber.Ctx) error {
	var in CreateInput
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(in); errs != nil {
		return response.ValidationError(c, errs)
	}
	in.Name = utils.SanitizeText(in.Name)

	u, err := CreateUser(database.DB, in)
	if err != nil {
		return errorResponse(c, err, "Failed to create user")
	}

	audit.Log(c, audit.ActionUserCreated, entityType, u.ID, nil, u)
	return response.Created(c, u, "User created successfully")
}

func ListUsersHandler(c *fiber.Ctx) error {
	page, limit, offset := response.Paging(c, 15, 100)

	users, total, err := List(ListFilter{
		Role:   c.Query("role"),
		Status: c.Query("status"),
		Query:  c.Query("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return errorResponse(c, err, "Failed to fetch users")
	}
	return response.SuccessWithMeta(c, users, response.CalculateMeta(page, limit, total), "Users retrieved successfully")
}

func GetUserHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	u, err := Find(uint(id))
	if err != nil {
		return errorResponse(c, err, "Failed to fetch user")
	}
	return response.Success(c, u, "User retrieved successfully")
}

func UpdateUserHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid user ID", nil)
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

	before, after, err := Update(access.CurrentUser(c), uint(id), in)
	if err != nil {
		return errorResponse(c, err, "Failed to update user")
	}

	audit.Log(c, audit.ActionUserUpdated, entityType, after.ID, before, after)
	return response.Success(c, after, "User updated successfully")
}

func DeleteUserHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	u, err := Delete(access.CurrentUser(c), uint(id))
	if err != nil {
		return errorResponse(c, err, "Failed to delete user")
	}

	audit.Log(c, audit.ActionUserDeleted, entityType, u.ID, u, nil)
	return response.Success(c, nil, "User deleted successfully")
}
