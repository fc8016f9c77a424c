package webhook

import (
	"errors"
	"time"

	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func ListDeliveriesHandler(c *fiber.Ctx) error {
	page, limit, offset := response.Paging(c, 20, 100)

	query := database.DB.Model(&models.WebhookDelivery{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if event := c.Query("event"); event != "" {
		query = query.Where("event = ?", event)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalError(c, "Failed to count deliveries")
	}

	var deliveries []models.WebhookDelivery
	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&deliveries).Error; err != nil {
		return response.InternalError(c, "Failed to fetch deliveries")
	}

	return response.SuccessWithMeta(c, deliveries, response.CalculateMeta(page, limit, total), "Deliveries retrieved successfully")
}

func RetryDeliveryHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid delivery ID", nil)
	}

	delivery, err := Requeue(database.DB, uint(id), time.Now())
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return response.NotFound(c, "Delivery")
	case errors.Is(err, ErrNotRetryable):
		return response.Conflict(c, "Only dead or skipped deliveries can be retried")
	case err != nil:
		return response.InternalError(c, "Failed to requeue delivery")
	}

	return response.Success(c, delivery, "Delivery requeued")
}
