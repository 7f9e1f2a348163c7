package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction(t *testing.T, now time.Time, expiresIn time.Duration) *CryptoTransaction {
	t.Helper()

	txn, err := NewCryptoTransaction(NewTransactionParams{
		ClinicID:       1,
		InvoiceID:      "inv-test-1",
		WalletAddress:  "bc1qtestaddress",
		FiatAmount:     decimal.RequireFromString("100.00"),
		FiatCurrency:   "BRL",
		CoinAmount:     20000, // 0.0002 BTC in satoshis
		Cryptocurrency: CryptoCurrencyBTC,
		ExpiresAt:      now.Add(expiresIn),
		Now:            now,
	})
	require.NoError(t, err)
	return txn
}

func TestCanTransition_AllowedPairsOnly(t *testing.T) {
	statuses := []TransactionStatus{
		TransactionStatusPending,
		TransactionStatusProcessing,
		TransactionStatusConfirmed,
		TransactionStatusCompleted,
		TransactionStatusExpired,
		TransactionStatusInvalid,
		TransactionStatusRefunded,
	}

	allowed := map[[2]TransactionStatus]bool{
		{TransactionStatusPending, TransactionStatusProcessing}:   true,
		{TransactionStatusPending, TransactionStatusExpired}:      true,
		{TransactionStatusPending, TransactionStatusInvalid}:      true,
		{TransactionStatusProcessing, TransactionStatusConfirmed}: true,
		{TransactionStatusProcessing, TransactionStatusExpired}:   true,
		{TransactionStatusProcessing, TransactionStatusInvalid}:   true,
		{TransactionStatusConfirmed, TransactionStatusCompleted}:  true,
		{TransactionStatusCompleted, TransactionStatusRefunded}:   true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			expected := allowed[[2]TransactionStatus{from, to}]
			assert.Equal(t, expected, CanTransition(from, to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestNewCryptoTransaction_FreezesExchangeRate(t *testing.T) {
	now := time.Now()
	txn := newTestTransaction(t, now, 15*time.Minute)

	// 100.00 BRL for 0.0002 BTC => 500000 BRL/BTC
	assert.True(t, txn.ExchangeRate.Equal(decimal.RequireFromString("500000")),
		"expected rate 500000, got %s", txn.ExchangeRate)
	assert.True(t, txn.CoinAmountDecimal().Equal(decimal.RequireFromString("0.0002")))
	assert.Equal(t, TransactionStatusPending, txn.Status)
}

func TestNewCryptoTransaction_RejectsPastExpiry(t *testing.T) {
	now := time.Now()
	_, err := NewCryptoTransaction(NewTransactionParams{
		ClinicID:       1,
		InvoiceID:      "inv-test-2",
		WalletAddress:  "bc1qtestaddress",
		FiatAmount:     decimal.RequireFromString("50.00"),
		FiatCurrency:   "BRL",
		CoinAmount:     10000,
		Cryptocurrency: CryptoCurrencyBTC,
		ExpiresAt:      now.Add(-time.Minute),
		Now:            now,
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "expires_at", vErr.Field)
}

func TestMarkPaid_IdempotentOnSameHash(t *testing.T) {
	now := time.Now()
	txn := newTestTransaction(t, now, 15*time.Minute)

	require.NoError(t, txn.MarkPaid("hash-1", "onchain", now))
	assert.Equal(t, TransactionStatusProcessing, txn.Status)
	firstPaidAt := txn.PaidAt

	// duplicate delivery of the same hash is a no-op, not an error
	require.NoError(t, txn.MarkPaid("hash-1", "onchain", now.Add(time.Minute)))
	assert.Equal(t, TransactionStatusProcessing, txn.Status)
	assert.Equal(t, firstPaidAt, txn.PaidAt)
}

func TestMarkPaid_RejectedOutsidePending(t *testing.T) {
	now := time.Now()
	txn := newTestTransaction(t, now, 15*time.Minute)

	require.NoError(t, txn.MarkPaid("hash-1", "onchain", now))

	err := txn.MarkPaid("hash-2", "onchain", now)
	var itErr *IllegalTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, TransactionStatusProcessing, itErr.From)
}

func TestAddConfirmation_MonotonicAndThreshold(t *testing.T) {
	now := time.Now()
	txn := newTestTransaction(t, now, 15*time.Minute)
	require.NoError(t, txn.MarkPaid("hash-1", "onchain", now))

	crossed, err := txn.AddConfirmation(1, 800000, 3, now)
	require.NoError(t, err)
	assert.False(t, crossed)
	assert.Equal(t, TransactionStatusProcessing, txn.Status)
	assert.EqualValues(t, 1, txn.Confirmations)

	// out-of-order lower count must not regress
	crossed, err = txn.AddConfirmation(0, 800000, 3, now)
	require.NoError(t, err)
	assert.False(t, crossed)
	assert.EqualValues(t, 1, txn.Confirmations)

	crossed, err = txn.AddConfirmation(3, 800002, 3, now)
	require.NoError(t, err)
	assert.True(t, crossed)
	assert.Equal(t, TransactionStatusConfirmed, txn.Status)
	require.NotNil(t, txn.ConfirmedAt)

	// further confirmations only grow the count; threshold never re-crosses
	crossed, err = txn.AddConfirmation(5, 800004, 3, now)
	require.NoError(t, err)
	assert.False(t, crossed)
	assert.EqualValues(t, 5, txn.Confirmations)
	assert.Equal(t, TransactionStatusConfirmed, txn.Status)
}

func TestAddConfirmation_ThresholdCrossesExactlyOnce(t *testing.T) {
	now := time.Now()
	txn := newTestTransaction(t, now, 15*time.Minute)
	require.NoError(t, txn.MarkPaid("hash-1", "exchange", now))

	crossings := 0
	for i := 0; i < 5; i++ {
		crossed, err := txn.AddConfirmation(1, 800000, 1, now)
		require.NoError(t, err)
		if crossed {
			crossings++
		}
	}
	assert.Equal(t, 1, crossings)
}

func TestAddConfirmation_RejectedFromPending(t *testing.T) {
	now := time.Now()
	txn := newTestTransaction(t, now, 15*time.Minute)

	_, err := txn.AddConfirmation(1, 800000, 1, now)
	var itErr *IllegalTransitionError
	require.ErrorAs(t, err, &itErr)
}

func TestExpire_SweepAfterTimeout(t *testing.T) {
	now := time.Now()
	txn := newTestTransaction(t, now, 15*time.Minute)

	// 16 minutes later, zero confirmations: sweep succeeds
	err := txn.Expire(now.Add(16 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, TransactionStatusExpired, txn.Status)
}

func TestExpire_RejectedBeforeTimeout(t *testing.T) {
	now := time.Now()
	txn := newTestTransaction(t, now, 15*time.Minute)

	err := txn.Expire(now.Add(10 * time.Minute))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, TransactionStatusPending, txn.Status)
}

func TestExpire_RejectedOnceConfirmationsObserved(t *testing.T) {
	now := time.Now()
	txn := newTestTransaction(t, now, 15*time.Minute)
	require.NoError(t, txn.MarkPaid("hash-1", "onchain", now))
	_, err := txn.AddConfirmation(1, 800000, 3, now)
	require.NoError(t, err)

	err = txn.Expire(now.Add(16 * time.Minute))
	var itErr *IllegalTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, TransactionStatusProcessing, txn.Status)
}

func TestExpire_RejectedOnTerminalStates(t *testing.T) {
	now := time.Now()
	txn := newTestTransaction(t, now, 15*time.Minute)
	require.NoError(t, txn.MarkPaid("hash-1", "onchain", now))
	_, err := txn.AddConfirmation(1, 800000, 1, now)
	require.NoError(t, err)
	require.NoError(t, txn.Complete())

	err = txn.Expire(now.Add(time.Hour))
	var itErr *IllegalTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, TransactionStatusCompleted, itErr.From)
	assert.Equal(t, TransactionStatusExpired, itErr.To)
}

func TestRefund_OnlyFromCompleted(t *testing.T) {
	now := time.Now()
	txn := newTestTransaction(t, now, 15*time.Minute)

	err := txn.Refund()
	var itErr *IllegalTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, TransactionStatusPending, itErr.From)

	require.NoError(t, txn.MarkPaid("hash-1", "onchain", now))
	_, err = txn.AddConfirmation(2, 800000, 1, now)
	require.NoError(t, err)
	require.NoError(t, txn.Complete())

	require.NoError(t, txn.Refund())
	assert.Equal(t, TransactionStatusRefunded, txn.Status)
}

func TestInvalidate_FromOpenStatesOnly(t *testing.T) {
	now := time.Now()

	txn := newTestTransaction(t, now, 15*time.Minute)
	require.NoError(t, txn.Invalidate())
	assert.Equal(t, TransactionStatusInvalid, txn.Status)

	err := txn.Invalidate()
	var itErr *IllegalTransitionError
	require.ErrorAs(t, err, &itErr)
}

func TestSecondsToExpiry_Countdown(t *testing.T) {
	now := time.Now()
	txn := newTestTransaction(t, now, 15*time.Minute)

	assert.EqualValues(t, 900, txn.SecondsToExpiry(now))
	assert.EqualValues(t, 0, txn.SecondsToExpiry(now.Add(20*time.Minute)))
}
