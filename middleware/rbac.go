package middleware

import (
	"errors"

	"chat-service/model"
	"chat-service/repository"

	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
)

// RBAC authorizes the request by the caller's admin role. Users without an
// admin role are checked under their id.
func RBAC(enforcer *casbin.Enforcer, users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := users.FindByID(c.UserContext(), UserID(c))
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"status":  "error",
				"message": "Unauthorized",
				"data":    nil,
			})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "Internal server error",
				"data":    nil,
			})
		}

		// Load policy from Database
		if err := enforcer.LoadPolicy(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "Internal server error",
				"data":    nil,
			})
		}

		subject := user.ID
		if user.Role == model.RoleAdmin && user.AdminRole != "" {
			subject = user.AdminRole
		}

		// Casbin enforces policy
		accepted, err := enforcer.Enforce(subject, c.Path(), c.Method())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "Internal server error",
				"data":    nil,
			})
		}

		if !accepted {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"status":  "error",
				"message": "Unauthorized",
				"data":    nil,
			})
		}

		return c.Next()
	}
}
