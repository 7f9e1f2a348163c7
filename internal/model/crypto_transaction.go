package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusConfirmed  TransactionStatus = "confirmed"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusExpired    TransactionStatus = "expired"
	TransactionStatusInvalid    TransactionStatus = "invalid"
	TransactionStatusRefunded   TransactionStatus = "refunded"
)

// allowedTransitions is the full transition table. Everything else is an
// IllegalTransitionError; transitions never move a transaction backward.
var allowedTransitions = map[TransactionStatus]map[TransactionStatus]bool{
	TransactionStatusPending: {
		TransactionStatusProcessing: true,
		TransactionStatusExpired:    true,
		TransactionStatusInvalid:    true,
	},
	TransactionStatusProcessing: {
		TransactionStatusConfirmed: true,
		TransactionStatusExpired:   true,
		TransactionStatusInvalid:   true,
	},
	TransactionStatusConfirmed: {
		TransactionStatusCompleted: true,
	},
	TransactionStatusCompleted: {
		TransactionStatusRefunded: true,
	},
}

func CanTransition(from, to TransactionStatus) bool {
	return allowedTransitions[from][to]
}

// Open reports whether the transaction is still waiting for funds or
// confirmations.
func (s TransactionStatus) Open() bool {
	return s == TransactionStatusPending || s == TransactionStatusProcessing
}

// Settled reports whether a watch on this transaction can be released:
// funds are either irreversibly observed or will never arrive.
func (s TransactionStatus) Settled() bool {
	switch s {
	case TransactionStatusConfirmed, TransactionStatusCompleted,
		TransactionStatusExpired, TransactionStatusInvalid, TransactionStatusRefunded:
		return true
	}
	return false
}

// CryptoTransaction is one invoice-based payment attempt, from creation to
// a terminal state. Rows are never deleted; terminal states are retained
// for reconciliation.
type CryptoTransaction struct {
	gorm.Model
	ClinicID      uint  `gorm:"column:clinic_id;not null;index"`
	WalletID      *uint `gorm:"column:wallet_id"`
	PatientID     *uint `gorm:"column:patient_id"`
	AppointmentID *uint `gorm:"column:appointment_id"`
	ReceivableID  *uint `gorm:"column:receivable_id"`

	InvoiceID       string  `gorm:"column:invoice_id;type:varchar(64);not null;uniqueIndex"`
	CheckoutURL     string  `gorm:"column:checkout_url;type:varchar(512)"`
	QRPayload       string  `gorm:"column:qr_payload;type:varchar(512)"`
	TransactionHash *string `gorm:"column:transaction_hash;type:varchar(128);uniqueIndex"`
	WalletAddress   string  `gorm:"column:wallet_address;type:varchar(255);not null;index"`

	FiatAmount     decimal.Decimal `gorm:"column:fiat_amount;type:numeric(14,2);not null"`
	FiatCurrency   string          `gorm:"column:fiat_currency;type:varchar(3);not null"`
	CoinAmount     int64           `gorm:"column:coin_amount;not null"`
	Cryptocurrency CryptoCurrency  `gorm:"column:cryptocurrency;type:varchar(10);not null"`
	ExchangeRate   decimal.Decimal `gorm:"column:exchange_rate;type:numeric(20,8);not null"`

	Status        TransactionStatus `gorm:"column:status;type:varchar(20);not null;default:'pending';index"`
	Confirmations int64             `gorm:"column:confirmations;not null;default:0"`
	BlockHeight   int64             `gorm:"column:block_height;not null;default:0"`
	NetworkFee    int64             `gorm:"column:network_fee;not null;default:0"`
	PaymentMethod string            `gorm:"column:payment_method;type:varchar(20)"`

	PaidAt              *time.Time `gorm:"column:paid_at"`
	ConfirmedAt         *time.Time `gorm:"column:confirmed_at"`
	ReceivableSettledAt *time.Time `gorm:"column:receivable_settled_at"`
	ExpiresAt           time.Time  `gorm:"column:expires_at;not null;index"`
}

func (CryptoTransaction) TableName() string {
	return "crypto_transactions"
}

type NewTransactionParams struct {
	ClinicID      uint
	WalletID      *uint
	PatientID     *uint
	AppointmentID *uint
	ReceivableID  *uint

	InvoiceID     string
	CheckoutURL   string
	QRPayload     string
	WalletAddress string

	FiatAmount     decimal.Decimal
	FiatCurrency   string
	CoinAmount     int64
	Cryptocurrency CryptoCurrency

	ExpiresAt time.Time
	Now       time.Time
}

// NewCryptoTransaction builds a pending transaction and freezes the
// fiat/coin exchange rate, so later price moves never change what was
// quoted to the payer.
func NewCryptoTransaction(p NewTransactionParams) (*CryptoTransaction, error) {
	if p.ClinicID == 0 {
		return nil, &ValidationError{Field: "clinic_id", Reason: "required"}
	}
	if p.InvoiceID == "" {
		return nil, &ValidationError{Field: "invoice_id", Reason: "required"}
	}
	if p.WalletAddress == "" {
		return nil, &ValidationError{Field: "wallet_address", Reason: "required"}
	}
	if !p.Cryptocurrency.Valid() {
		return nil, &ValidationError{Field: "cryptocurrency", Reason: "unsupported coin " + string(p.Cryptocurrency)}
	}
	if !p.FiatAmount.IsPositive() {
		return nil, &ValidationError{Field: "fiat_amount", Reason: "must be positive"}
	}
	if p.CoinAmount <= 0 {
		return nil, &ValidationError{Field: "coin_amount", Reason: "must be positive"}
	}
	if !p.ExpiresAt.After(p.Now) {
		return nil, &ValidationError{Field: "expires_at", Reason: "must be in the future"}
	}

	// rate = fiat / coins, with the coin amount converted out of minor units
	rate := p.FiatAmount.
		Mul(decimal.NewFromInt(p.Cryptocurrency.MinorUnitsPerCoin())).
		Div(decimal.NewFromInt(p.CoinAmount)).
		Round(8)

	return &CryptoTransaction{
		ClinicID:       p.ClinicID,
		WalletID:       p.WalletID,
		PatientID:      p.PatientID,
		AppointmentID:  p.AppointmentID,
		ReceivableID:   p.ReceivableID,
		InvoiceID:      p.InvoiceID,
		CheckoutURL:    p.CheckoutURL,
		QRPayload:      p.QRPayload,
		WalletAddress:  p.WalletAddress,
		FiatAmount:     p.FiatAmount.Round(2),
		FiatCurrency:   p.FiatCurrency,
		CoinAmount:     p.CoinAmount,
		Cryptocurrency: p.Cryptocurrency,
		ExchangeRate:   rate,
		Status:         TransactionStatusPending,
		ExpiresAt:      p.ExpiresAt,
	}, nil
}

func (t *CryptoTransaction) transition(to TransactionStatus) error {
	if !CanTransition(t.Status, to) {
		return &IllegalTransitionError{From: t.Status, To: to}
	}
	t.Status = to
	return nil
}

// MarkPaid records the observed payment and moves pending -> processing.
// A second call with the same hash is a no-op, not an error: duplicate
// webhook delivery is expected.
func (t *CryptoTransaction) MarkPaid(txHash, method string, now time.Time) error {
	if txHash == "" {
		return &ValidationError{Field: "transaction_hash", Reason: "required"}
	}
	if t.TransactionHash != nil && *t.TransactionHash == txHash && t.Status != TransactionStatusPending {
		return nil
	}
	if err := t.transition(TransactionStatusProcessing); err != nil {
		return err
	}
	t.TransactionHash = &txHash
	t.PaymentMethod = method
	t.PaidAt = &now
	return nil
}

// AddConfirmation applies an absolute confirmation count. Counts are
// monotonic: a lower count than already stored is a no-op. Crossing the
// threshold moves processing -> confirmed and returns true exactly once.
func (t *CryptoTransaction) AddConfirmation(confirmations, blockHeight, threshold int64, now time.Time) (bool, error) {
	if confirmations < 0 {
		return false, &ValidationError{Field: "confirmations", Reason: "must not be negative"}
	}

	switch {
	case t.Status == TransactionStatusProcessing:
		if confirmations <= t.Confirmations && t.Confirmations > 0 {
			return false, nil
		}
		if confirmations > t.Confirmations {
			t.Confirmations = confirmations
		}
		if blockHeight > t.BlockHeight {
			t.BlockHeight = blockHeight
		}
		if t.Confirmations >= threshold {
			if err := t.transition(TransactionStatusConfirmed); err != nil {
				return false, err
			}
			t.ConfirmedAt = &now
			return true, nil
		}
		return false, nil

	case t.Status == TransactionStatusConfirmed || t.Status == TransactionStatusCompleted:
		// funds already applied; only track the growing count
		if confirmations > t.Confirmations {
			t.Confirmations = confirmations
			if blockHeight > t.BlockHeight {
				t.BlockHeight = blockHeight
			}
		}
		return false, nil
	}

	return false, &IllegalTransitionError{From: t.Status, To: TransactionStatusConfirmed}
}

// Complete signals that downstream obligations are satisfied; the wallet
// balance was already applied when the transaction confirmed.
func (t *CryptoTransaction) Complete() error {
	return t.transition(TransactionStatusCompleted)
}

// Expire times out a transaction that never saw funds. It refuses to run
// before expiresAt and refuses once any confirmation has been observed.
func (t *CryptoTransaction) Expire(now time.Time) error {
	if !t.Status.Open() {
		return &IllegalTransitionError{From: t.Status, To: TransactionStatusExpired}
	}
	if !now.After(t.ExpiresAt) {
		return &ValidationError{Field: "expires_at", Reason: "transaction has not reached its expiry"}
	}
	if t.Confirmations > 0 {
		return &IllegalTransitionError{From: t.Status, To: TransactionStatusExpired}
	}
	return t.transition(TransactionStatusExpired)
}

// Invalidate marks an observed payment that failed validation (wrong
// amount, wrong asset).
func (t *CryptoTransaction) Invalidate() error {
	return t.transition(TransactionStatusInvalid)
}

func (t *CryptoTransaction) Refund() error {
	return t.transition(TransactionStatusRefunded)
}

// CoinAmountDecimal returns the expected amount in whole coins.
func (t *CryptoTransaction) CoinAmountDecimal() decimal.Decimal {
	return decimal.NewFromInt(t.CoinAmount).
		Div(decimal.NewFromInt(t.Cryptocurrency.MinorUnitsPerCoin()))
}

// SecondsToExpiry is the payer-facing countdown; zero once expired.
func (t *CryptoTransaction) SecondsToExpiry(now time.Time) int64 {
	remaining := t.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int64(remaining.Seconds())
}
