package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

// SendSuccess writes the success envelope with the given payload.
func SendSuccess(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(models.APIResponse{
		Status: "success",
		Data:   data,
	})
}

// SendError writes the error envelope without a specific error type.
func SendError(c *fiber.Ctx, status int, message string) error {
	return SendErrorWithType(c, status, message, models.GeneralErrorType)
}

// SendErrorWithType writes the error envelope with a typed error kind so
// clients can branch without parsing messages.
func SendErrorWithType(c *fiber.Ctx, status int, message string, errorType models.ErrorType) error {
	return c.Status(status).JSON(models.APIError{
		Status:    "error",
		Message:   message,
		ErrorType: errorType,
	})
}
