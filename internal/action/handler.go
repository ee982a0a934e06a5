package action

import (
	"github.com/gofiber/fiber/v2"

	"github.com/eazycard/eazycard/internal/middleware"
)

// Handler serves action envelopes posted as the request body.
func (r *Router) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		middleware.ActionName(c)
		return write(c, r.Dispatch(c.UserContext(), c.Body()))
	}
}

// EventHandler serves top-level events named by the :action route parameter.
func (r *Router) EventHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params("action")
		middleware.SetActionName(c, name)
		return write(c, r.RunEvent(c.UserContext(), name))
	}
}

func write(c *fiber.Ctx, resp Response) error {
	for k, v := range resp.Headers {
		c.Set(k, v)
	}
	return c.Status(resp.Status).JSON(resp.Body)
}
