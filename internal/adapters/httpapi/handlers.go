package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func methodNotAllowed(c *fiber.Ctx) error {
	return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{"error": "Method not allowed"})
}

func (s *Server) handleAnalyzeEmail(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return methodNotAllowed(c)
	}

	ctx, cancel := s.pipelineContext()
	defer cancel()

	record, err := s.service.AnalyzeEmail(ctx, c.Get(fiber.HeaderAuthorization), c.Body())
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(record)
}

func (s *Server) handleExplain(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return methodNotAllowed(c)
	}

	ctx, cancel := s.pipelineContext()
	defer cancel()

	explanation, err := s.service.Explain(ctx, c.Get(fiber.HeaderAuthorization), c.Body())
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(fiber.Map{"explanation": explanation})
}

func (s *Server) handleListScans(c *fiber.Ctx) error {
	records, err := s.service.ListRecords(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(records)
}

func (s *Server) handleGetScan(c *fiber.Ctx) error {
	record, err := s.service.GetRecord(c.UserContext(), c.Get(fiber.HeaderAuthorization), c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(record)
}

// writeError maps pipeline failures to status codes and fixed client messages
func (s *Server) writeError(c *fiber.Ctx, err error) error {
	var validationErr *core.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request data",
			"details": validationErr.Fields,
		})
	case errors.Is(err, core.ErrMissingCredential):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authorization header"})
	case errors.Is(err, core.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	case errors.Is(err, core.ErrProfileNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User profile not found"})
	case errors.Is(err, core.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Scan not found"})
	case errors.Is(err, core.ErrClassifierUnavailable):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Email analysis is currently unavailable"})
	case errors.Is(err, core.ErrPersistenceFailed):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store email analysis"})
	default:
		s.logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}
