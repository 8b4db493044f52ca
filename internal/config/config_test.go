package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenExpires)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Hour, cfg.ResetCodeTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.False(t, cfg.StrictKYCTransition)
	assert.Equal(t, "https://api.bridge.xyz/v0", cfg.Bridge.BaseURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("REDIS_ADDR", "localhost:6380")
	t.Setenv("STRICT_KYC_TRANSITIONS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.TokenExpires)
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr)
	assert.True(t, cfg.StrictKYCTransition)
}

func TestLoad_MissingSecretFailsFast(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			AppPort:             "8080",
			JWTSecret:           testSecret,
			TokenExpires:        time.Hour,
			SessionTTL:          time.Hour,
			ResetCodeTTL:        time.Hour,
			VerificationCodeTTL: time.Minute,
			BcryptCost:          10,
			DBMaxOpenConns:      5,
			DBMaxIdleConns:      1,
			LoginMaxAttempts:    5,
			LoginCooldown:       time.Minute,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"short secret", func(c *Config) { c.JWTSecret = strings.Repeat("a", 8) }, "at least"},
		{"zero ttl", func(c *Config) { c.TokenExpires = 0 }, "JWT_TTL"},
		{"zero session ttl", func(c *Config) { c.SessionTTL = 0 }, "SESSION_TTL"},
		{"cost too low", func(c *Config) { c.BcryptCost = 1 }, "BCRYPT_COST"},
		{"no pool", func(c *Config) { c.DBMaxOpenConns = 0 }, "pool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
