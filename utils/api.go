package utils

import (
	fiber "github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/database"
	"github.com/sahilchouksey/course-marketplace/utils/response"
)

// MakeHTTPHandleFunc adapts a store-bound handler to a fiber.Handler.
// Errors that reach here are rendered through the standard envelope.
func MakeHTTPHandleFunc(handler func(c *fiber.Ctx, store database.Storage) error, store database.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := handler(c, store); err != nil {
			return response.FromError(c, err)
		}
		return nil
	}
}
