package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaults(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("PORT", "")
	t.Setenv("MIN_COURSE_PRICE", "")
	t.Setenv("PAYMENT_CURRENCY", "")
	t.Setenv("CLIENT_BASE_URL", "https://learn.example.com/")
	t.Setenv("CRON_ENABLED", "")

	env, err := Get()
	require.NoError(t, err)

	assert.Equal(t, 8080, env.PORT)
	assert.Equal(t, int64(399), env.MIN_COURSE_PRICE)
	assert.Equal(t, int64(99999), env.MAX_COURSE_PRICE)
	assert.Equal(t, "inr", env.PAYMENT_CURRENCY)
	assert.Equal(t, "https://learn.example.com", env.CLIENT_BASE_URL)
	assert.True(t, env.CRON_ENABLED)
	assert.Equal(t, "development", env.LOG_MODE)
}

func TestValidate(t *testing.T) {
	env := &EnvironmentVariable{JWT_SECRET: "s", MIN_COURSE_PRICE: 399, MAX_COURSE_PRICE: 99999, CHAT_BUS: "local"}
	assert.NoError(t, env.Validate())

	env.JWT_SECRET = ""
	assert.Error(t, env.Validate())

	env.JWT_SECRET = "s"
	env.CHAT_BUS = "kafka"
	assert.Error(t, env.Validate())

	env.CHAT_BUS = "redis"
	env.MAX_COURSE_PRICE = 100
	assert.Error(t, env.Validate())
}
