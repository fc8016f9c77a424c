package feedback

import (
	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/events"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/Kyz7/requestdesk/internal/utils"
	"github.com/gofiber/fiber/v2"
)

type submitBody struct {
	Subject  string `json:"subject" validate:"required,max=255"`
	Category string `json:"category" validate:"omitempty,max=255"`
	Message  string `json:"message" validate:"required"`
	Rating   *int   `json:"rating" validate:"omitempty,min=1,max=5"`
}

func SubmitFeedbackHandler(c *fiber.Ctx) error {
	var body submitBody
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := utils.ValidateStruct(body); errs != nil {
		return response.ValidationError(c, errs)
	}

	fb := models.Feedback{
		UserID:   c.Locals("user_id").(uint),
		Subject:  utils.SanitizeText(body.Subject),
		Category: utils.SanitizeText(body.Category),
		Message:  utils.SanitizeRich(body.Message),
		Rating:   body.Rating,
	}
	if err := database.DB.Create(&fb).Error; err != nil {
		logging.Component("feedback").WithError(err).Error("Failed to store feedback")
		return response.InternalError(c, "Failed to submit feedback")
	}

	events.Publish(events.NewFeedbackSubmitted(&fb))
	return response.Created(c, fb, "Feedback submitted successfully")
}
