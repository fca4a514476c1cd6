package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("JWT_EXPIRY_DAYS", "")
	cfg := Load()
	assert.Equal(t, "development", cfg.AppEnv)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, "daily_reports", cfg.DynamoTables.Reports)
	assert.Equal(t, 60*time.Second, cfg.OTPCooldown)
	assert.Equal(t, 5, cfg.OTPMaxAttempts)
	assert.False(t, cfg.TrustProxyHeaders)
}

func TestExposeOTPCodes_OptIn(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("OTP_ECHO", "")
	assert.False(t, Load().ExposeOTPCodes(), "unset env must not echo codes")

	t.Setenv("OTP_ECHO", "true")
	assert.True(t, Load().ExposeOTPCodes())

	t.Setenv("APP_ENV", "production")
	assert.False(t, Load().ExposeOTPCodes(), "production never echoes codes")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_EXPIRY_DAYS", "1")
	t.Setenv("OTP_MAX_PER_WINDOW", "not-a-number")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 5, cfg.OTPMaxPerWindow)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLocation_UnknownFallsBackToUTC(t *testing.T) {
	cfg := &Config{AppTimezone: "Not/AZone"}
	assert.Equal(t, time.UTC, cfg.Location())
	cfg.AppTimezone = "Asia/Kolkata"
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
}
