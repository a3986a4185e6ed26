// Package web serves the diagnostic dashboard: REST endpoints for
// status and configuration, and a websocket stream of control frames.
package web

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/soma-labs/go-soma/pkg/engine"
	"github.com/soma-labs/go-soma/pkg/hub"
)

// Server is the dashboard HTTP/websocket server.
type Server struct {
	app    *fiber.App
	port   int
	logger *slog.Logger

	engine *engine.Engine

	// controlHub fans control frames out to websocket subscribers.
	// The engine broadcasts into it once per tick.
	controlHub *hub.Hub
}

// NewServer creates the dashboard server. controlHub must be the hub
// the engine broadcasts frames into.
func NewServer(port int, eng *engine.Engine, controlHub *hub.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		port:       port,
		logger:     logger.With("component", "web"),
		engine:     eng,
		controlHub: controlHub,
	}

	app := fiber.New(fiber.Config{
		AppName:               "soma dashboard",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/frame", s.handleFrame)
	api.Get("/config", s.handleGetConfig)
	api.Put("/config", s.handlePutConfig)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/control", websocket.New(s.handleControlWS))

	s.app = app
	return s
}

// Start runs the hub and blocks serving HTTP.
func (s *Server) Start() error {
	go s.controlHub.Run()
	s.logger.Info("dashboard listening", "addr", fmt.Sprintf("http://127.0.0.1:%d", s.port))
	return s.app.Listen(fmt.Sprintf("127.0.0.1:%d", s.port))
}

// StartAsync runs the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("dashboard server failed", "err", err)
		}
	}()
}

// Shutdown stops the server and disconnects all subscribers.
func (s *Server) Shutdown() error {
	s.controlHub.Stop()
	return s.app.Shutdown()
}
