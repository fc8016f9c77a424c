package setting

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/Kyz7/requestdesk/internal/audit"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/gofiber/fiber/v2"
)

type setBody struct {
	Value       json.RawMessage `json:"value"`
	Description *string         `json:"description"`
}

func ListSettingsHandler(c *fiber.Ctx) error {
	all, err := All()
	if err != nil {
		logging.Component("setting").WithError(err).Error("Failed to fetch settings")
		return response.InternalError(c, "Failed to fetch settings")
	}
	return response.Success(c, all, "Settings retrieved successfully")
}

func GetSettingHandler(c *fiber.Ctx) error {
	s, err := Get(c.Params("key"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return response.NotFound(c, "Setting")
		}
		logging.Component("setting").WithError(err).Error("Failed to fetch setting")
		return response.InternalError(c, "Failed to fetch setting")
	}
	return response.Success(c, s, "Setting retrieved successfully")
}

func UpdateSettingHandler(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Params("key"))
	if key == "" || len(key) > 100 {
		return response.BadRequest(c, "Invalid setting key", nil)
	}

	var body setBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if len(body.Value) == 0 || string(body.Value) == "null" {
		return response.ValidationError(c, map[string]string{"value": "value is required"})
	}

	var before interface{}
	if prev, err := Get(key); err == nil {
		before = prev
	}

	s, err := Set(key, body.Value, body.Description)
	if err != nil {
		logging.Component("setting").WithError(err).WithField("key", key).Error("Failed to update setting")
		return response.InternalError(c, "Failed to update setting")
	}

	audit.Log(c, audit.ActionSettingUpdated, "setting", 0, before, s)
	return response.Success(c, s, "Setting updated successfully")
}
