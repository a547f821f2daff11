package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mr-karan/hawkalert/pkg/models"
)

// SendSuccess writes a {"status":"success","data":...} envelope.
func SendSuccess(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(models.APIResponse{
		Status: "success",
		Data:   data,
	})
}

// SendError writes an error envelope with the general error type.
func SendError(c *fiber.Ctx, status int, message string) error {
	return SendErrorWithType(c, status, message, models.GeneralErrorType)
}

// SendErrorWithType writes an error envelope with an explicit error type.
func SendErrorWithType(c *fiber.Ctx, status int, message string, errorType models.ErrorType) error {
	return c.Status(status).JSON(models.APIResponse{
		Status:    "error",
		Message:   message,
		ErrorType: errorType,
	})
}
