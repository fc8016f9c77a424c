package auth

import (
	"errors"

	"github.com/Kyz7/requestdesk/internal/access"
	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/Kyz7/requestdesk/internal/utils"
	"github.com/gofiber/fiber/v2"
)

type registerInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshInput struct {
	UserID       uint   `json:"user_id" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type resetInput struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

func tokenResponse(u *models.User, accessToken, refreshToken string) fiber.Map {
	return fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    int(utils.AccessTokenTTL.Seconds()),
		"user":          u,
	}
}

func RegisterHandler(c *fiber.Ctx) error {
	var body registerInput
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(body); errs != nil {
		return response.ValidationError(c, errs)
	}

	u, err := RegisterUser(utils.SanitizeText(body.Name), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return response.Conflict(c, "Email already registered")
		}
		logging.Component("auth").WithError(err).Error("failed to create user")
		return response.InternalError(c, "Failed to create user")
	}

	accessToken, refreshToken, err := issueTokens(u)
	if err != nil {
		return response.InternalError(c, "Failed to generate tokens")
	}

	return response.Created(c, tokenResponse(u, accessToken, refreshToken), "Registration successful")
}

func LoginHandler(c *fiber.Ctx) error {
	var body loginInput
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(body); errs != nil {
		return response.ValidationError(c, errs)
	}

	u, accessToken, refreshToken, err := LoginUser(body.Email, body.Password)
	switch {
	case errors.Is(err, ErrSuspended):
		return response.Forbidden(c, "Account suspended")
	case err != nil:
		return response.Unauthorized(c, "Invalid email or password")
	}

	return response.Success(c, tokenResponse(u, accessToken, refreshToken), "Login successful")
}

func RefreshHandler(c *fiber.Ctx) error {
	var body refreshInput
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(body); errs != nil {
		return response.ValidationError(c, errs)
	}

	user, accessToken, newRefreshToken, err := utils.RefreshTokenPair(body.UserID, body.RefreshToken)
	switch {
	case errors.Is(err, utils.ErrRefreshTokenInvalid), errors.Is(err, utils.ErrAccountSuspended):
		return response.Unauthorized(c, err.Error())
	case err != nil:
		logging.Component("auth").WithError(err).WithField("user_id", body.UserID).Error("failed to rotate refresh token")
		return response.InternalError(c, "Failed to refresh token")
	}

	return response.Success(c, tokenResponse(user, accessToken, newRefreshToken), "Token refreshed successfully")
}

func LogoutHandler(c *fiber.Ctx) error {
	u := access.CurrentUser(c)
	if u == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	if err := utils.RevokeRefreshTokens(u.ID); err != nil {
		logging.Component("auth").WithError(err).WithField("user_id", u.ID).Error("failed to revoke refresh tokens")
		return response.InternalError(c, "Failed to logout")
	}

	return response.Success(c, fiber.Map{"user_id": u.ID}, "Logout successful")
}

func MeHandler(c *fiber.Ctx) error {
	u := access.CurrentUser(c)
	if u == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var user models.User
	if err := database.DB.Preload("Teams").First(&user, u.ID).Error; err != nil {
		return response.NotFound(c, "User")
	}

	var businesses []models.Business
	database.DB.Scopes(access.ScopeBusinesses(database.DB, &user)).Order("name ASC").Find(&businesses)

	return response.Success(c, fiber.Map{
		"user":       user,
		"businesses": businesses,
	}, "")
}

func ForgotPasswordHandler(c *fiber.Ctx) error {
	var body struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(body); errs != nil {
		return response.ValidationError(c, errs)
	}

	if err := RequestPasswordReset(body.Email); err != nil {
		logging.Component("auth").WithError(err).Error("failed to create reset token")
		return response.InternalError(c, "Failed to generate reset token")
	}

	return response.Success(c, nil, "If account exists, reset link has been sent")
}

func ResetPasswordHandler(c *fiber.Ctx) error {
	var body resetInput
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(body); errs != nil {
		return response.ValidationError(c, errs)
	}

	if err := ResetPassword(body.Token, body.NewPassword); err != nil {
		if errors.Is(err, ErrInvalidResetToken) {
			return response.BadRequest(c, "Invalid or expired token", nil)
		}
		logging.Component("auth").WithError(err).Error("failed to reset password")
		return response.InternalError(c, "Failed to reset password")
	}

	return response.Success(c, nil, "Password reset successful")
}
