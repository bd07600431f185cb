package router

import (
	"chat-service/controller"
	"chat-service/middleware"
	"chat-service/repository"

	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RestDeps struct {
	JWTKey        string
	Enforcer      *casbin.Enforcer
	Users         repository.UserRepository
	Gatherer      prometheus.Gatherer
	Health        *controller.Health
	Notifications *controller.Notification
	User          *controller.User
}

func Rest(app *fiber.App, d RestDeps) {
	app.Get("/health", d.Health.Check)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	api := app.Group("/v1", logger.New(), middleware.JWT(d.JWTKey), middleware.OTP())

	// Notifications
	api.Get("/notifications", d.Notifications.List)
	api.Get("/notifications/unread", d.Notifications.Unread)
	api.Delete("/notifications", d.Notifications.Acknowledge)

	// User
	api.Get("/users/:id/status", d.User.Status)

	// Admin
	admin := api.Group("/admin", middleware.RBAC(d.Enforcer, d.Users))
	admin.Post("/notifications", d.Notifications.Create)
}
