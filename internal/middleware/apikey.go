package middleware

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/eazycard/eazycard/internal/secrets"
)

const apiKeyHeader = "x-api-key"

// APIKeyOptions configures APIKey.
type APIKeyOptions struct {
	Secrets secrets.Provider
	// Field names the secret value holding the expected key.
	Field string
	// Always requires the key even when the body carries no action field.
	Always bool
	Logger *slog.Logger
}

// APIKey checks the x-api-key header against the configured secret. The
// secret may hold the key itself or a bcrypt hash of it.
func APIKey(opts APIKeyOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !opts.Always && !hasActionField(c) {
			return c.Next()
		}
		ActionName(c)

		expected, err := opts.Secrets.Value(c.UserContext(), opts.Field)
		if err != nil {
			opts.Logger.Error("api key secret unavailable", "field", opts.Field, "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid API key"})
		}
		if !keyMatches(expected, c.Get(apiKeyHeader)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid API key"})
		}
		return c.Next()
	}
}

func keyMatches(expected, given string) bool {
	if expected == "" || given == "" {
		return false
	}
	if strings.HasPrefix(expected, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(expected), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}
