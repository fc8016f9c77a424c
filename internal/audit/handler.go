package audit

import (
	"errors"
	"time"

	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func ListAuditLogsHandler(c *fiber.Ctx) error {
	page, limit, offset := response.Paging(c, 15, 100)

	query := database.DB.Model(&models.AuditLog{})
	if v := c.QueryInt("actor_id"); v > 0 {
		query = query.Where("actor_id = ?", v)
	}
	if v := c.Query("action"); v != "" {
		query = query.Where("action = ?", v)
	}
	if v := c.Query("entity_type"); v != "" {
		query = query.Where("entity_type = ?", v)
	}
	if v := c.QueryInt("entity_id"); v > 0 {
		query = query.Where("entity_id = ?", v)
	}
	if v := c.Query("start_date"); v != "" {
		start, err := time.Parse("2006-01-02", v)
		if err != nil {
			return response.ValidationError(c, map[string]string{"start_date": "start_date must match the format 2006-01-02"})
		}
		query = query.Where("created_at >= ?", start)
	}
	if v := c.Query("end_date"); v != "" {
		end, err := time.Parse("2006-01-02", v)
		if err != nil {
			return response.ValidationError(c, map[string]string{"end_date": "end_date must match the format 2006-01-02"})
		}
		query = query.Where("created_at < ?", end.AddDate(0, 0, 1))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalError(c, "Failed to count audit logs")
	}

	var logs []models.AuditLog
	if err := query.Preload("Actor").Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return response.InternalError(c, "Failed to fetch audit logs")
	}

	return response.SuccessWithMeta(c, logs, response.CalculateMeta(page, limit, total), "Audit logs retrieved successfully")
}

func GetAuditLogHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid audit log ID", nil)
	}

	var entry models.AuditLog
	if err := database.DB.Preload("Actor").First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Audit log")
		}
		return response.InternalError(c, "Failed to fetch audit log")
	}

	return response.Success(c, entry, "Audit log retrieved successfully")
}
