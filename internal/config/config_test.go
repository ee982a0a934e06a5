package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ACCOUNT_STORE", "memory")
	t.Setenv("NOTIFIER", "log")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "EazyCard", cfg.AppName)
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, "EUR", cfg.SettlementCurrency)
	assert.Equal(t, "EAZYCARD_API_KEY", cfg.APIKeySecretField)
	assert.Equal(t, "https://api.exchangerate-api.com/v4/latest", cfg.ExchangeRate.APIURL)
	assert.Equal(t, 10*time.Second, cfg.ExchangeRate.HTTPTimeout)
	assert.Equal(t, 3, cfg.MaxUpdateAttempts)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadParsesAdminEmails(t *testing.T) {
	t.Setenv("ACCOUNT_STORE", "memory")
	t.Setenv("NOTIFIER", "ses")
	t.Setenv("VERIFIED_EMAIL", "no-reply@eazycard.test")
	t.Setenv("ADMIN_EMAILS", "ops@eazycard.test, finance@eazycard.test,")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("SETTLEMENT_CURRENCY", "eur")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"ops@eazycard.test", "finance@eazycard.test"}, cfg.AdminEmails)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, "EUR", cfg.SettlementCurrency)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"ACCOUNT_STORE": "postgres", "NOTIFIER": "log"}},
		{"ses without sender", map[string]string{"ACCOUNT_STORE": "memory", "NOTIFIER": "ses"}},
		{"unknown store", map[string]string{"ACCOUNT_STORE": "mongo", "NOTIFIER": "log"}},
		{"production without redis", map[string]string{"APP_ENV": "production", "NOTIFIER": "log"}},
		{"memory store in production", map[string]string{"APP_ENV": "production", "REDIS_URL": "redis://localhost:6379/0", "ACCOUNT_STORE": "memory", "NOTIFIER": "log"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLogValueMasksURLs(t *testing.T) {
	cfg := Config{DatabaseURL: "postgres://user:secret@db:5432/eazycard"}
	value := cfg.LogValue().String()
	assert.NotContains(t, value, "secret")
}
