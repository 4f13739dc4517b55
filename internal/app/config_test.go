package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader() aconfig.Config {
	return aconfig.Config{
		EnvPrefix: "BAZAAR",
		SkipFlags: true,
		SkipFiles: true,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("BAZAAR_STORAGE", "memory")
	t.Setenv("BAZAAR_AUTH_JWT_SECRET", "secret")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.True(t, cfg.Orders.RestockOnCancel)
	assert.Equal(t, 2*time.Second, cfg.Payment.Delay)
	assert.InDelta(t, 0.1, cfg.Payment.FailureRate, 1e-9)
	assert.Equal(t, 10*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, 100, cfg.RateLimit.Max)
}

func TestLoadConfig_PlatformFallbacks(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://bazaar@db/bazaar")
	t.Setenv("JWT_SECRET", "platform-secret")
	t.Setenv("PORT", "9090")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "postgres://bazaar@db/bazaar", cfg.DatabaseURL)
	assert.Equal(t, "platform-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
}

func TestLoadConfig_RequiresDatabaseForPostgres(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("BAZAAR_AUTH_JWT_SECRET", "secret")

	_, err := loadConfig(testLoader())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Storage:   StorageMemory,
			Auth:      AuthConfig{JWTSecret: "s"},
			Payment:   PaymentConfig{FailureRate: 0.1, Timeout: time.Second},
			RateLimit: RateLimitConfig{Max: 1, Window: time.Second},
		}
	}
	cfg := valid()
	require.NoError(t, cfg.Validate())

	for name, mutate := range map[string]func(*Config){
		"unknown storage": func(c *Config) { c.Storage = "mongo" },
		"missing secret":  func(c *Config) { c.Auth.JWTSecret = "" },
		"failure rate":    func(c *Config) { c.Payment.FailureRate = 1.5 },
		"zero timeout":    func(c *Config) { c.Payment.Timeout = 0 },
		"zero rate limit": func(c *Config) { c.RateLimit.Max = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
