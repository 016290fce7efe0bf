package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	allowHeaders = "authorization, x-client-info, apikey, content-type"
	allowMethods = "OPTIONS, POST, GET"
)

// corsMiddleware answers preflights with an empty 200, which browser clients of the
// functions endpoints expect, and stamps CORS headers on every response
func corsMiddleware(c *fiber.Ctx) error {
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowHeaders, allowHeaders)
	c.Set(fiber.HeaderAccessControlAllowMethods, allowMethods)

	if c.Method() == fiber.MethodOptions {
		c.Status(fiber.StatusOK)
		return nil
	}
	return c.Next()
}

// requestLogger logs and counts every request once the handler chain has finished
func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		// Let the error handler pick the status before it is recorded
		if herr := s.app.ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	elapsed := time.Since(start)
	status := c.Response().StatusCode()
	endpoint := c.Route().Path

	s.metrics.ObserveRequest(endpoint, status, elapsed)
	s.logger.Info("Request handled",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("elapsed", elapsed),
		zap.String("ip", c.IP()))

	return nil
}
