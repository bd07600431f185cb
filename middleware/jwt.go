package middleware

import (
	"errors"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func JWT(key string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			JWTAlg: "HS512",
			Key:    []byte(key),
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
				return c.Status(fiber.StatusBadRequest).
					JSON(fiber.Map{
						"status":  "error",
						"message": "Missing or malformed JWT",
						"data":    nil,
					})
			}
			return c.Status(fiber.StatusUnauthorized).
				JSON(fiber.Map{
					"status":  "error",
					"message": "Invalid or expired JWT",
					"data":    nil,
				})
		},
	})
}

// UserID returns the id claim of the verified token, or "".
func UserID(c *fiber.Ctx) string {
	claims, ok := claimsOf(c)
	if !ok {
		return ""
	}
	id, _ := claims["id"].(string)
	return id
}

func claimsOf(c *fiber.Ctx) (jwt.MapClaims, bool) {
	user, ok := c.Locals("user").(*jwt.Token)
	if !ok || user == nil {
		return nil, false
	}
	claims, ok := user.Claims.(jwt.MapClaims)
	return claims, ok
}
