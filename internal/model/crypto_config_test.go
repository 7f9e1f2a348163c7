package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCryptoConfig_Defaults(t *testing.T) {
	cfg, err := NewCryptoConfig(1, "https://clinic-1.example.com", "store-9", "admin@clinic", []CryptoCurrency{CryptoCurrencyBTC, CryptoCurrencyETH}, 15, 2)
	require.NoError(t, err)

	assert.True(t, cfg.Active)
	assert.Equal(t, HealthStatusUnknown, cfg.HealthStatus)
	assert.Equal(t, "BTC,ETH", cfg.AcceptedCoins)
	assert.Equal(t, 15*time.Minute, cfg.PaymentTimeout())
	assert.True(t, cfg.Accepts(CryptoCurrencyETH))
	assert.False(t, cfg.Accepts(CryptoCurrencyUSDT))
}

func TestNewCryptoConfig_Validation(t *testing.T) {
	cases := []struct {
		name string
		fn   func() (*CryptoConfig, error)
	}{
		{"missing endpoint", func() (*CryptoConfig, error) {
			return NewCryptoConfig(1, "", "store", "admin", []CryptoCurrency{CryptoCurrencyBTC}, 15, 1)
		}},
		{"missing store id", func() (*CryptoConfig, error) {
			return NewCryptoConfig(1, "https://x", "", "admin", []CryptoCurrency{CryptoCurrencyBTC}, 15, 1)
		}},
		{"missing creator", func() (*CryptoConfig, error) {
			return NewCryptoConfig(1, "https://x", "store", "", []CryptoCurrency{CryptoCurrencyBTC}, 15, 1)
		}},
		{"zero timeout", func() (*CryptoConfig, error) {
			return NewCryptoConfig(1, "https://x", "store", "admin", []CryptoCurrency{CryptoCurrencyBTC}, 0, 1)
		}},
		{"zero confirmations", func() (*CryptoConfig, error) {
			return NewCryptoConfig(1, "https://x", "store", "admin", []CryptoCurrency{CryptoCurrencyBTC}, 15, 0)
		}},
		{"no coins", func() (*CryptoConfig, error) {
			return NewCryptoConfig(1, "https://x", "store", "admin", nil, 15, 1)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.fn()
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}
}

func TestRecordHealth(t *testing.T) {
	cfg, err := NewCryptoConfig(1, "https://x", "store", "admin", []CryptoCurrency{CryptoCurrencyBTC}, 15, 1)
	require.NoError(t, err)

	now := time.Now()
	cfg.RecordHealth(HealthStatusDegraded, now)

	assert.Equal(t, HealthStatusDegraded, cfg.HealthStatus)
	require.NotNil(t, cfg.LastHealthCheckAt)
	assert.Equal(t, now, *cfg.LastHealthCheckAt)
}

func TestActivateDeactivate(t *testing.T) {
	cfg, err := NewCryptoConfig(1, "https://x", "store", "admin", []CryptoCurrency{CryptoCurrencyBTC}, 15, 1)
	require.NoError(t, err)

	cfg.Deactivate()
	assert.False(t, cfg.Active)
	cfg.Activate()
	assert.True(t, cfg.Active)
}
