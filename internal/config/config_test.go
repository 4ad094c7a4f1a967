// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "wellness_loans", cfg.Database.Database)
	assert.Equal(t, "loan-events", cfg.Redis.EventChannel)
	assert.Equal(t, 180, cfg.Loan.MaxDurationMinutes)
	assert.Equal(t, 15, cfg.Loan.NearExpiryMinutes)
}

func TestLoanConfigDurations(t *testing.T) {
	loan := LoanConfig{
		MaxDurationMinutes:  180,
		NearExpiryMinutes:   15,
		SweepIntervalSecond: 120,
	}

	assert.Equal(t, 3*time.Hour, loan.MaxDuration())
	assert.Equal(t, 15*time.Minute, loan.NearExpiryWindow())
	assert.Equal(t, 2*time.Minute, loan.SweepInterval())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Environment: "development",
			JWT:         JWTConfig{SecretKey: "dev-secret"},
			Loan:        LoanConfig{MaxDurationMinutes: 180, NearExpiryMinutes: 15},
		}
	}

	t.Run("ok", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("default secret rejected in production", func(t *testing.T) {
		cfg := base()
		cfg.Environment = "production"
		cfg.JWT.SecretKey = "your-secret-key-change-in-production"
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive duration", func(t *testing.T) {
		cfg := base()
		cfg.Loan.MaxDurationMinutes = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("near-expiry window must fit inside the duration", func(t *testing.T) {
		cfg := base()
		cfg.Loan.NearExpiryMinutes = 180
		assert.Error(t, cfg.Validate())
	})
}
