package controller

import (
	"strings"

	"chat-service/logger"
	"chat-service/middleware"
	"chat-service/notification"

	"github.com/gofiber/fiber/v2"
)

type Notification struct {
	relay *notification.Relay
	log   *logger.Logger
}

func NewNotification(relay *notification.Relay, log *logger.Logger) *Notification {
	if log == nil {
		log = logger.Nop()
	}
	return &Notification{relay: relay, log: log}
}

func (h *Notification) List(c *fiber.Ctx) error {
	page, err := h.relay.ListPage(c.UserContext(), middleware.UserID(c), c.QueryInt("page", 1), c.QueryInt("pageSize", 0))
	if err != nil {
		return fail(c, h.log, err)
	}
	return success(c, "", page)
}

func (h *Notification) Unread(c *fiber.Ctx) error {
	unread, err := h.relay.ListUnread(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return success(c, "", unread)
}

func (h *Notification) Acknowledge(c *fiber.Ctx) error {
	ack, err := h.relay.AcknowledgeAll(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return success(c, ack.Message, ack)
}

type NotificationCreateInput struct {
	UserID  string `json:"userId"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Link    string `json:"link"`
}

// Create notifies one user, or every admin when no user is given.
func (h *Notification) Create(c *fiber.Ctx) error {
	input := new(NotificationCreateInput)
	if err := c.BodyParser(input); err != nil {
		return failure(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Message) == "" {
		return failure(c, fiber.StatusBadRequest, "Title and message are required")
	}

	if input.UserID == "" {
		created, err := h.relay.NotifyAdmins(c.UserContext(), input.Title, input.Message, input.Type, input.Link)
		if err != nil {
			return fail(c, h.log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"status":  "success",
			"message": nil,
			"data":    created,
		})
	}

	created, err := h.relay.Notify(c.UserContext(), input.UserID, input.Title, input.Message, input.Type, input.Link)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "success",
		"message": nil,
		"data":    created,
	})
}
