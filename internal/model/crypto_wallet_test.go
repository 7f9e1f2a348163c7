package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCryptoWallet_StartsAtZero(t *testing.T) {
	w, err := NewCryptoWallet(1, CryptoCurrencyBTC, "bc1qtestaddress", "front desk")
	require.NoError(t, err)

	assert.EqualValues(t, 0, w.Balance)
	assert.True(t, w.FiatBalance.IsZero())
	assert.Nil(t, w.LastSyncedAt)
}

func TestNewCryptoWallet_Validation(t *testing.T) {
	_, err := NewCryptoWallet(0, CryptoCurrencyBTC, "bc1qtestaddress", "")
	assert.Error(t, err)

	_, err = NewCryptoWallet(1, CryptoCurrency("DOGE"), "addr", "")
	assert.Error(t, err)

	_, err = NewCryptoWallet(1, CryptoCurrencyETH, "", "")
	assert.Error(t, err)
}

func TestApplyBalance_AccumulatesAndStampsSync(t *testing.T) {
	w, err := NewCryptoWallet(1, CryptoCurrencyBTC, "bc1qtestaddress", "")
	require.NoError(t, err)

	now := time.Now()
	w.ApplyBalance(20000, decimal.RequireFromString("100.00"), now)

	assert.EqualValues(t, 20000, w.Balance)
	assert.True(t, w.FiatBalance.Equal(decimal.RequireFromString("100.00")))
	require.NotNil(t, w.LastSyncedAt)
	assert.Equal(t, now, *w.LastSyncedAt)
}

func TestApplyBalance_ZeroDeltaIsSafe(t *testing.T) {
	w, err := NewCryptoWallet(1, CryptoCurrencyBTC, "bc1qtestaddress", "")
	require.NoError(t, err)

	now := time.Now()
	w.ApplyBalance(20000, decimal.RequireFromString("100.00"), now)
	w.ApplyBalance(0, decimal.Zero, now.Add(time.Minute))

	assert.EqualValues(t, 20000, w.Balance)
	assert.True(t, w.FiatBalance.Equal(decimal.RequireFromString("100.00")))
}
