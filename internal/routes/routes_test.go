package routes

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eazycard/eazycard/internal/config"
	"github.com/eazycard/eazycard/internal/logging"
	"github.com/eazycard/eazycard/internal/metrics"
)

func testApp(t *testing.T) (*fiber.App, *Services) {
	t.Helper()
	t.Setenv("EAZYCARD_API_KEY", "k3y")

	d := Deps{
		Cfg: config.Config{
			AppEnv:              "test",
			Store:               config.StoreMemory,
			Notifier:            config.NotifierLog,
			SecretSource:        config.SecretSourceEnv,
			APIKeySecretField:   "EAZYCARD_API_KEY",
			SettlementCurrency:  "EUR",
			MaxUpdateAttempts:   3,
			RateLimitPerMinute:  100,
			NotificationTimeout: time.Second,
			ExchangeRate:        config.ExchangeRate{APIURL: "http://127.0.0.1:1", HTTPTimeout: time.Second},
		},
		Logger:  logging.Discard(),
		Metrics: metrics.New(),
	}
	svcs, err := NewServices(context.Background(), d)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svcs.Dispatcher.Close(context.Background()) })

	app := fiber.New()
	Setup(app, d, svcs)
	return app, svcs
}

func call(t *testing.T, app *fiber.App, method, path, body, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set("x-api-key", key)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

func TestHealthAndPing(t *testing.T) {
	app, _ := testApp(t)

	status, body := call(t, app, fiber.MethodGet, "/healthz", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `"store":"memory"`)

	status, body = call(t, app, fiber.MethodGet, "/api/v1/ping", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `"status":"ok"`)
}

func TestActionsRequireAPIKey(t *testing.T) {
	app, _ := testApp(t)
	create := `{"action":"CREATE_CLIENT","data":{"ClientID":"42","FirstName":"Awa","LastName":"Ndiaye","Email":"awa@example.com","Limit":1000,"Rate":0.05,"PaymentMethod":"Card"}}`

	status, body := call(t, app, fiber.MethodPost, "/", create, "wrong")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.JSONEq(t, `{"error":"Invalid API key"}`, body)

	status, body = call(t, app, fiber.MethodPost, "/", create, "k3y")
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Contains(t, body, `"new_limit":950.00`)

	status, _ = call(t, app, fiber.MethodPost, "/api/v1/actions", `{"action":"HISTORY_RELOAD","data":{"ClientID":"42"}}`, "k3y")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestEventsAlwaysRequireAPIKey(t *testing.T) {
	app, _ := testApp(t)

	status, _ := call(t, app, fiber.MethodPost, "/api/v1/events/HISTORY_TRANSACTION", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := call(t, app, fiber.MethodPost, "/api/v1/events/HISTORY_TRANSACTION", "", "k3y")
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `"Email history transaction sent successfully"`, body)
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := testApp(t)
	call(t, app, fiber.MethodPost, "/", `{"action":"HISTORY_RELOAD"}`, "k3y")

	status, body := call(t, app, fiber.MethodGet, "/metrics", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "eazycard_actions_total")
}

func TestUnknownStoreIsRejected(t *testing.T) {
	_, err := NewServices(context.Background(), Deps{Cfg: config.Config{Store: "cassandra"}, Logger: logging.Discard()})
	assert.Error(t, err)
}

func TestDynamoStoreNeedsAWS(t *testing.T) {
	_, err := NewServices(context.Background(), Deps{Cfg: config.Config{Store: config.StoreDynamoDB}, Logger: logging.Discard()})
	assert.Error(t, err)
}
