// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/contacts")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", testSecret)
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("REQUIRE_EMAIL_VERIFICATION", "false")

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8081, c.Server.Port)
	assert.Equal(t, 24*time.Hour, c.JWT.SessionExpire)
	assert.Equal(t, 10, c.Auth.BcryptCost)
	assert.False(t, c.Auth.RequireVerification)
	assert.Equal(t, "public", c.Avatar.PublicDir)
	assert.Equal(t, 100, c.Mail.QueueSize)
	assert.Equal(t, testSecret, c.JWT.Secret)
	assert.Equal(t, "0.0.0.0:8081", c.Server.Address())

	assert.Equal(t, LimitConfig{Requests: 30, Burst: 10, Window: time.Hour}, c.RateLimit.Auth)
	assert.Equal(t, 300, c.RateLimit.Tiers["pro"].Requests)
	assert.Equal(t, time.Minute, c.RateLimit.Tiers["business"].Window)
	assert.Equal(t, "starter", c.RateLimit.DefaultTier)
}

func TestLoad_RateLimitFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RATE_LIMIT_REQUESTS", "7")
	t.Setenv("AUTH_RATE_LIMIT_WINDOW", "15m")

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, c.RateLimit.Global.Requests)
	assert.Equal(t, 15*time.Minute, c.RateLimit.Auth.Window)
}

func TestLoad_RetriesAfterFailure(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", testSecret)

	c, err := Load("")
	require.Error(t, err)
	assert.Nil(t, c)

	setRequiredEnv(t)
	c, err = Load("")
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte("app:\n  environment: staging\nmail:\n  workers: 4\n" +
		"rate_limit:\n  default_tier: pro\n  tiers:\n    pro:\n      requests: 5\n")
	require.NoError(t, os.WriteFile(path, yaml, 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", c.App.Environment)
	assert.Equal(t, 4, c.Mail.Workers)
	assert.Equal(t, "pro", c.RateLimit.DefaultTier)
	assert.Equal(t, LimitConfig{Requests: 5, Burst: 50, Window: time.Minute}, c.RateLimit.Tiers["pro"])
	assert.False(t, c.IsProduction())
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing database url",
			env:     map[string]string{"DATABASE_URL": ""},
			wantErr: "DATABASE_URL is required",
		},
		{
			name:    "short secret",
			env:     map[string]string{"JWT_SECRET": "short"},
			wantErr: "JWT_SECRET must be at least",
		},
		{
			name:    "bcrypt cost out of range",
			env:     map[string]string{"BCRYPT_COST": "40"},
			wantErr: "auth.bcrypt_cost",
		},
		{
			name:    "zero global rate",
			env:     map[string]string{"RATE_LIMIT_REQUESTS": "0"},
			wantErr: "rate_limit.global",
		},
		{
			name:    "smtp host without sender",
			env:     map[string]string{"SMTP_HOST": "smtp.example.com"},
			wantErr: "SMTP_FROM is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
