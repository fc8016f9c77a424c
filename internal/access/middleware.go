package access

import (
	"errors"
	"strconv"

	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// CurrentUser returns the user loaded by the JWT middleware.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals("user").(*models.User)
	return u
}

// BusinessFromParam loads the business named by the route param and checks business
// access. The business is stored in Locals("business").
func BusinessFromParam(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params(param), 10, 64)
		if err != nil || id == 0 {
			return response.BadRequest(c, "Invalid business ID", nil)
		}

		var business models.Business
		if err := database.DB.First(&business, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NotFound(c, "Business")
			}
			return response.InternalError(c, "Failed to fetch business")
		}

		if !HasBusinessAccess(database.DB, CurrentUser(c), business.ID) {
			return response.Forbidden(c, "Unauthorized access to business")
		}

		c.Locals("business", &business)
		return c.Next()
	}
}

func CurrentBusiness(c *fiber.Ctx) *models.Business {
	b, _ := c.Locals("business").(*models.Business)
	return b
}
