package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBookingConfigDefaults(t *testing.T) {
	t.Setenv("BOOKING_HOLD_DURATION", "")
	t.Setenv("BOOKING_FEE", "")

	bc, err := LoadBookingConfig()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, bc.HoldDuration)
	assert.True(t, bc.Fee.IsZero())
}

func TestLoadBookingConfigOverrides(t *testing.T) {
	t.Setenv("BOOKING_HOLD_DURATION", "15m")
	t.Setenv("BOOKING_FEE", "12.50")

	bc, err := LoadBookingConfig()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, bc.HoldDuration)
	assert.True(t, bc.Fee.Equal(decimal.RequireFromString("12.5")))
}

func TestLoadBookingConfigRejectsInvalid(t *testing.T) {
	cases := map[string][2]string{
		"unparsable duration": {"soon", ""},
		"zero duration":       {"0s", ""},
		"negative duration":   {"-5m", ""},
		"unparsable fee":      {"", "ten"},
		"negative fee":        {"", "-1"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("BOOKING_HOLD_DURATION", tc[0])
			t.Setenv("BOOKING_FEE", tc[1])
			_, err := LoadBookingConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestEnvBool(t *testing.T) {
	t.Setenv("X_FLAG", "off")
	assert.False(t, envBool("X_FLAG", true))
	t.Setenv("X_FLAG", "maybe")
	assert.True(t, envBool("X_FLAG", true))
}

func TestParseMethods(t *testing.T) {
	m := parseMethods(" get, head ,")
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, m)
}
