package response

import (
	"github.com/gofiber/fiber/v2"
)

// Error codes carried in error.code.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeRequestError       = "REQUEST_ERROR"
)

// StandardResponse is the envelope of every API reply. Errors is only set for
// request submission field errors.
type StandardResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
	Errors  interface{}  `json:"errors,omitempty"`
	Meta    *Meta        `json:"meta,omitempty"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func reply(c *fiber.Ctx, status int, body StandardResponse) error {
	return c.Status(status).JSON(body)
}

func Success(c *fiber.Ctx, data interface{}, message string) error {
	return reply(c, fiber.StatusOK, StandardResponse{Success: true, Message: message, Data: data})
}

func SuccessWithMeta(c *fiber.Ctx, data interface{}, meta *Meta, message string) error {
	return reply(c, fiber.StatusOK, StandardResponse{Success: true, Message: message, Data: data, Meta: meta})
}

func Created(c *fiber.Ctx, data interface{}, message string) error {
	return reply(c, fiber.StatusCreated, StandardResponse{Success: true, Message: message, Data: data})
}

func Error(c *fiber.Ctx, statusCode int, errorCode string, message string, details interface{}) error {
	return reply(c, statusCode, StandardResponse{
		Message: message,
		Error: &ErrorDetail{
			Code:    errorCode,
			Message: message,
			Details: details,
		},
	})
}

func BadRequest(c *fiber.Ctx, message string, details interface{}) error {
	return Error(c, fiber.StatusBadRequest, CodeBadRequest, message, details)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, CodeForbidden, message, nil)
}

// ForbiddenWithDetails is Forbidden plus a details payload, such as the ids that failed a batch check.
func ForbiddenWithDetails(c *fiber.Ctx, message string, details interface{}) error {
	return Error(c, fiber.StatusForbidden, CodeForbidden, message, details)
}

// NotFound renders "<resource> not found".
func NotFound(c *fiber.Ctx, resource string) error {
	return Error(c, fiber.StatusNotFound, CodeNotFound, resource+" not found", nil)
}

func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, CodeConflict, message, nil)
}

func ConflictWithDetails(c *fiber.Ctx, message string, details interface{}) error {
	return Error(c, fiber.StatusConflict, CodeConflict, message, details)
}

func ValidationError(c *fiber.Ctx, errors interface{}) error {
	return ValidationMessage(c, "Validation failed", errors)
}

// ValidationMessage is a 422 with a caller-chosen message.
func ValidationMessage(c *fiber.Ctx, message string, errors interface{}) error {
	return Error(c, fiber.StatusUnprocessableEntity, CodeValidation, message, errors)
}

// FieldValidationError reports per-field submission errors keyed by field key, both under
// errors and error.details.
func FieldValidationError(c *fiber.Ctx, errors interface{}) error {
	const message = "Field validation error"
	return reply(c, fiber.StatusUnprocessableEntity, StandardResponse{
		Message: message,
		Errors:  errors,
		Error:   &ErrorDetail{Code: CodeValidation, Message: message, Details: errors},
	})
}

func ServiceUnavailable(c *fiber.Ctx, code, message string) error {
	return Error(c, fiber.StatusServiceUnavailable, code, message, nil)
}

// InternalError never carries the cause; callers log it.
func InternalError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, CodeInternal, message, nil)
}
