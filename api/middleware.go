package api

import (
	"crypto/subtle"
	"strings"
	"time"

	"dareledger/domain"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// adminAuth requires "Authorization: Bearer <token>" with the operator token
func adminAuth(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if token == "" || !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			log.WithFields(log.Fields{
				"path": c.Path(),
				"ip":   c.IP(),
			}).Warn("Rejected admin request")
			return domain.ErrUnauthorized
		}
		return c.Next()
	}
}

// requestLogger logs one line per request
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusFor(err)
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		entry := log.WithFields(log.Fields{
			"method":   c.Method(),
			"path":     c.Path(),
			"status":   status,
			"duration": time.Since(start),
		})
		if status >= fiber.StatusInternalServerError {
			entry.Warn("Request completed")
		} else {
			entry.Debug("Request completed")
		}
		return err
	}
}
