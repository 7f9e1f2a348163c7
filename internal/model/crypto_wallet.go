package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CryptoWallet is the watch-only balance record for one clinic+coin pair.
// Balances move only through the settlement path; there is no direct
// mutation from any API surface.
type CryptoWallet struct {
	gorm.Model
	ClinicID       uint            `gorm:"column:clinic_id;not null;uniqueIndex:idx_wallet_clinic_coin"`
	Cryptocurrency CryptoCurrency  `gorm:"column:cryptocurrency;type:varchar(10);not null;uniqueIndex:idx_wallet_clinic_coin;uniqueIndex:idx_wallet_address_coin"`
	Address        string          `gorm:"column:address;type:varchar(255);not null;uniqueIndex:idx_wallet_address_coin"`
	Label          string          `gorm:"column:label;type:varchar(255)"`
	Balance        int64           `gorm:"column:balance;not null;default:0"`
	FiatBalance    decimal.Decimal `gorm:"column:fiat_balance;type:numeric(14,2);not null;default:0"`
	LastSyncedAt   *time.Time      `gorm:"column:last_synced_at"`
}

func (CryptoWallet) TableName() string {
	return "crypto_wallets"
}

func NewCryptoWallet(clinicID uint, coin CryptoCurrency, address, label string) (*CryptoWallet, error) {
	if clinicID == 0 {
		return nil, &ValidationError{Field: "clinic_id", Reason: "required"}
	}
	if !coin.Valid() {
		return nil, &ValidationError{Field: "cryptocurrency", Reason: "unsupported coin " + string(coin)}
	}
	if address == "" {
		return nil, &ValidationError{Field: "address", Reason: "required"}
	}

	return &CryptoWallet{
		ClinicID:       clinicID,
		Cryptocurrency: coin,
		Address:        address,
		Label:          label,
		Balance:        0,
		FiatBalance:    decimal.Zero,
	}, nil
}

// ApplyBalance is the only balance mutator. It is called exclusively from
// the settlement path with amounts already validated as confirmed, and is
// safe to call with a zero delta so retried confirmations do not double
// count.
func (w *CryptoWallet) ApplyBalance(deltaCoin int64, deltaFiat decimal.Decimal, now time.Time) {
	w.Balance += deltaCoin
	w.FiatBalance = w.FiatBalance.Add(deltaFiat)
	w.LastSyncedAt = &now
}
