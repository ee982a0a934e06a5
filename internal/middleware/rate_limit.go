package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "eazycard:rl:"

// RateLimit caps requests per caller and minute using Redis. Callers are keyed
// by API key when one is sent, by IP otherwise. Without Redis, or when Redis
// fails, requests pass.
func RateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 120
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		caller := "ip:" + c.IP()
		if key := c.Get(apiKeyHeader); key != "" {
			sum := sha256.Sum256([]byte(key))
			caller = "key:" + hex.EncodeToString(sum[:8])
		}
		window := strconv.FormatInt(time.Now().Unix()/60, 10)
		key := rateLimitPrefix + caller + ":" + window

		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			logger.Warn("rate limit lookup failed", "error", err)
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}
