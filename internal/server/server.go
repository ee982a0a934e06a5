package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/eazycard/eazycard/internal/config"
	"github.com/eazycard/eazycard/internal/routes"
)

// Server wraps the Fiber application.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, deps routes.Deps, svcs *routes.Services, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		DisableStartupMessage: !cfg.IsDevelopment(),
		ErrorHandler:          errorHandler(logger),
	})

	routes.Setup(app, deps, svcs)

	return &Server{app: app, cfg: cfg}
}

// App exposes the underlying Fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else {
			logger.Error("unhandled error", "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(fiber.Map{"message": msg})
	}
}
