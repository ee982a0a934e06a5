package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveAction("CREATE_CLIENT", "created", time.Millisecond)
		c.AddCredited(decimal.NewFromInt(1))
		c.ObserveNotification("recharge", nil)
		c.StatementFailures(2)
	})
	assert.Nil(t, c.Registry())
}

func TestCollectorCounts(t *testing.T) {
	c := New()
	c.ObserveAction("CARD_RECHARGE", "recharged", 20*time.Millisecond)
	c.ObserveAction("CARD_RECHARGE", "recharged", 10*time.Millisecond)
	c.AddCredited(decimal.RequireFromString("180.50"))
	c.AddCredited(decimal.RequireFromString("-3"))
	c.ObserveNotification("recharge", nil)
	c.ObserveNotification("recharge", errors.New("smtp"))
	c.StatementFailures(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.actions.WithLabelValues("CARD_RECHARGE", "recharged")))
	assert.Equal(t, 180.5, testutil.ToFloat64(c.credited))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.notifications.WithLabelValues("recharge", "failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.statements))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.ObserveAction("HISTORY_RELOAD", "ok", time.Millisecond)

	app := fiber.New()
	app.Get("/metrics", c.Handler())

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `eazycard_actions_total{action="HISTORY_RELOAD",outcome="ok"} 1`)
}
