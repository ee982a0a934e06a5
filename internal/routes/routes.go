package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/eazycard/eazycard/internal/config"
	"github.com/eazycard/eazycard/internal/infra"
	"github.com/eazycard/eazycard/internal/metrics"
	"github.com/eazycard/eazycard/internal/middleware"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	AWS     *infra.AWSClients
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps, svcs *Services) {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", d.Metrics.Handler())

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Envelope actions: the key is checked only when the body names an action.
	actions := actionChain(d, svcs, false, svcs.Router.Handler())
	app.Post("/", actions...)
	api.Post("/actions", actions...)

	api.Post("/events/:action", actionChain(d, svcs, true, svcs.Router.EventHandler())...)
}

func actionChain(d Deps, svcs *Services, alwaysKey bool, handler fiber.Handler) []fiber.Handler {
	chain := []fiber.Handler{
		middleware.RateLimit(d.Cache, d.Cfg.RateLimitPerMinute, d.Logger),
		middleware.APIKey(middleware.APIKeyOptions{
			Secrets: svcs.Secrets,
			Field:   d.Cfg.APIKeySecretField,
			Always:  alwaysKey,
			Logger:  d.Logger,
		}),
	}
	if d.Cache != nil {
		chain = append(chain, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	return append(chain, handler)
}
