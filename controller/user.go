package controller

import (
	"chat-service/chat"
	"chat-service/logger"

	"github.com/gofiber/fiber/v2"
)

type User struct {
	chats *chat.Service
	log   *logger.Logger
}

func NewUser(chats *chat.Service, log *logger.Logger) *User {
	if log == nil {
		log = logger.Nop()
	}
	return &User{chats: chats, log: log}
}

// Status reports whether a user has a live connection, or when they were
// last seen.
func (h *User) Status(c *fiber.Ctx) error {
	status, err := h.chats.ActiveStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return success(c, "", status)
}
