package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/soma-labs/go-soma/pkg/hub"
)

// handleStatus returns runtime telemetry.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.engine.Status())
}

// handleFrame returns the most recent control frame.
func (s *Server) handleFrame(c *fiber.Ctx) error {
	return c.JSON(s.engine.Frame())
}

// handleGetConfig returns the active configuration.
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(s.engine.Config())
}

// handlePutConfig replaces the configuration. The body is a full
// config document; partial updates start from GET /api/config.
func (s *Server) handlePutConfig(c *fiber.Ctx) error {
	cfg := s.engine.Config()
	if err := c.BodyParser(&cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err := s.engine.UpdateConfig(cfg); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	s.logger.Info("configuration updated via api")
	return c.JSON(cfg)
}

// handleControlWS attaches a subscriber to the control frame stream.
// The first message is the latest frame so clients render immediately.
func (s *Server) handleControlWS(c *websocket.Conn) {
	c.WriteJSON(s.engine.Frame())
	client := hub.NewClient(s.controlHub, c)
	client.Run()
}
