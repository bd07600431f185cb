package controller

import (
	"errors"

	"chat-service/chat"
	"chat-service/logger"

	"github.com/gofiber/fiber/v2"
)

func success(c *fiber.Ctx, message string, data any) error {
	var msg any
	if message != "" {
		msg = message
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": msg,
		"data":    data,
	})
}

func failure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"data":    nil,
	})
}

// fail maps protocol errors to 4xx and logs everything else.
func fail(c *fiber.Ctx, log *logger.Logger, err error) error {
	var protocol *chat.ProtocolError
	if errors.As(err, &protocol) {
		switch {
		case errors.Is(err, chat.ErrNotFound):
			return failure(c, fiber.StatusNotFound, protocol.Message)
		case errors.Is(err, chat.ErrForbidden):
			return failure(c, fiber.StatusForbidden, protocol.Message)
		}
		return failure(c, fiber.StatusBadRequest, protocol.Message)
	}

	log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return failure(c, fiber.StatusInternalServerError, "Internal server error")
}
