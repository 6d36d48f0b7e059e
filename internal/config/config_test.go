package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadThrottleConfigDefaults(t *testing.T) {
	cfg := LoadThrottleConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 30, cfg.Capacity)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, "throttle", cfg.Prefix)
}

func TestLoadThrottleConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadThrottleConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 5*time.Minute, cfg.TTL)
}

func TestEnvBool(t *testing.T) {
	t.Setenv("FLAG_ON", "yes")
	t.Setenv("FLAG_OFF", "off")
	t.Setenv("FLAG_JUNK", "maybe")

	assert.True(t, envBool("FLAG_ON", false))
	assert.False(t, envBool("FLAG_OFF", true))
	assert.True(t, envBool("FLAG_JUNK", true))
	assert.False(t, envBool("FLAG_UNSET", false))
}

func TestLoadReadsOptionalProviders(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "identity")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("GOOGLE_CLIENT_ID", "client")
	t.Setenv("AMQP_URL", "amqp://broker:5672/")
	t.Setenv("SESSION_REVOCATION_ENABLED", "true")

	cfg := Load()
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "client", cfg.OAuth.ClientID)
	assert.Empty(t, cfg.OAuth.ClientSecret)
	assert.Equal(t, "amqp://broker:5672/", cfg.AMQPURL)
	assert.True(t, cfg.RevocationEnabled)
	assert.False(t, cfg.OTPQueueEnabled)
	assert.Equal(t, 587, cfg.SMTP.Port)
}
