package middleware

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
)

const actionLocal = "action"

// ActionName returns the envelope action of the current request, reading it
// from the body on first use. It is empty when the body has no action field.
func ActionName(c *fiber.Ctx) string {
	if name, ok := c.Locals(actionLocal).(string); ok {
		return name
	}
	var probe struct {
		Action *string `json:"action"`
	}
	name := ""
	if err := json.Unmarshal(c.Body(), &probe); err == nil && probe.Action != nil {
		name = *probe.Action
	}
	c.Locals(actionLocal, name)
	return name
}

// SetActionName records the action for routes that carry it outside the body.
func SetActionName(c *fiber.Ctx, name string) {
	c.Locals(actionLocal, name)
}

// hasActionField reports whether the body is a JSON object with an action key.
func hasActionField(c *fiber.Ctx) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &probe); err != nil {
		return false
	}
	_, ok := probe["action"]
	return ok
}
