package notification

import (
	"errors"

	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/gofiber/fiber/v2"
)

func errorResponse(c *fiber.Ctx, err error, fallback string) error {
	if errors.Is(err, ErrNotFound) {
		return response.NotFound(c, "Notification")
	}
	logging.Component("notification").WithError(err).Error(fallback)
	return response.InternalError(c, fallback)
}

func ListNotificationsHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	page, limit, offset := response.Paging(c, 20, 100)

	list, total, err := List(userID, ListFilter{
		Read:   c.Query("read"),
		Type:   c.Query("type"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return errorResponse(c, err, "Failed to fetch notifications")
	}
	return response.SuccessWithMeta(c, list, response.CalculateMeta(page, limit, total), "Notifications retrieved successfully")
}

func UnreadCountHandler(c *fiber.Ctx) error {
	count, err := UnreadCount(c.Locals("user_id").(uint))
	if err != nil {
		return errorResponse(c, err, "Failed to count notifications")
	}
	return response.Success(c, fiber.Map{"count": count}, "Unread count retrieved successfully")
}

func MarkReadHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid notification ID", nil)
	}

	n, err := MarkRead(c.Locals("user_id").(uint), uint(id))
	if err != nil {
		return errorResponse(c, err, "Failed to update notification")
	}
	return response.Success(c, n, "Notification marked as read")
}

func MarkAllReadHandler(c *fiber.Ctx) error {
	count, err := MarkAllRead(c.Locals("user_id").(uint))
	if err != nil {
		return errorResponse(c, err, "Failed to update notifications")
	}
	return response.Success(c, fiber.Map{"updated_count": count}, "All notifications marked as read")
}

func DeleteNotificationHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid notification ID", nil)
	}

	if err := Delete(c.Locals("user_id").(uint), uint(id)); err != nil {
		return errorResponse(c, err, "Failed to delete notification")
	}
	return response.Success(c, nil, "Notification deleted successfully")
}
