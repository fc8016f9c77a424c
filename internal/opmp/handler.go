package opmp

import (
	"encoding/json"
	"errors"

	"github.com/Kyz7/requestdesk/internal/access"
	"github.com/Kyz7/requestdesk/internal/audit"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/gofiber/fiber/v2"
)

type saveBody struct {
	Data json.RawMessage `json:"data"`
}

func errorResponse(c *fiber.Ctx, err error, fallback string) error {
	if errors.Is(err, ErrNotFound) {
		return response.NotFound(c, "OPMP")
	}
	logging.Component("opmp").WithError(err).Error(fallback)
	return response.InternalError(c, fallback)
}

// The handlers below run behind access.BusinessFromParam.

func GetOpmpHandler(c *fiber.Ctx) error {
	plan, err := Find(access.CurrentBusiness(c).ID)
	if err != nil {
		return errorResponse(c, err, "Failed to fetch OPMP")
	}
	return response.Success(c, plan, "OPMP retrieved successfully")
}

func UpdateOpmpHandler(c *fiber.Ctx) error {
	var body saveBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	var decoded interface{}
	_ = json.Unmarshal(body.Data, &decoded)
	switch decoded.(type) {
	case map[string]interface{}, []interface{}:
	default:
		return response.ValidationError(c, map[string]string{"data": "data is required and must be an object"})
	}

	b := access.CurrentBusiness(c)
	before, after, err := Save(access.CurrentUser(c), b.ID, body.Data)
	if err != nil {
		return errorResponse(c, err, "Failed to update OPMP")
	}

	var prev interface{}
	if before != nil {
		prev = before
	}
	audit.Log(c, audit.ActionOpmpUpdated, "opmp", after.ID, prev, after)
	return response.Success(c, after, "OPMP updated successfully")
}

func ListVersionsHandler(c *fiber.Ctx) error {
	page, limit, offset := response.Paging(c, 15, 100)

	list, total, err := Versions(access.CurrentBusiness(c).ID, limit, offset)
	if err != nil {
		return errorResponse(c, err, "Failed to fetch OPMP versions")
	}
	return response.SuccessWithMeta(c, list, response.CalculateMeta(page, limit, total), "OPMP versions retrieved successfully")
}
