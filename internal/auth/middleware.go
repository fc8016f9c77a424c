package auth

import (
	"strings"

	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/Kyz7/requestdesk/internal/utils"

	"github.com/gofiber/fiber/v2"
)

func unauthorized(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": message,
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// JWTProtected verifies the bearer token and loads the caller. Suspended or deleted
// users are rejected here so downstream handlers can trust Locals("user").
func JWTProtected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "UNAUTHORIZED", "Missing authorization token")
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return unauthorized(c, "INVALID_TOKEN_FORMAT", "Invalid token format")
		}

		userID, err := utils.ParseJWT(tokenParts[1])
		if err != nil {
			return unauthorized(c, "INVALID_TOKEN", "Invalid or expired token")
		}

		var u models.User
		if err := database.DB.First(&u, userID).Error; err != nil {
			return unauthorized(c, "UNAUTHORIZED", "User not found")
		}
		if u.Status == models.UserStatusSuspended {
			return response.Forbidden(c, "Account suspended")
		}

		c.Locals("user_id", u.ID)
		c.Locals("user", &u)
		return c.Next()
	}
}

func RoleProtected(allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, ok := c.Locals("user").(*models.User)
		if !ok || u == nil {
			return response.Unauthorized(c, "User not found")
		}

		for _, role := range allowedRoles {
			if u.Role == role {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}
