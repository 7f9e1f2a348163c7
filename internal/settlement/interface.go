package settlement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/orthoplus/crypto-settlement/internal/model"
	"github.com/orthoplus/crypto-settlement/internal/monitor"
)

type CreateInvoiceParams struct {
	ClinicID       uint
	FiatAmount     decimal.Decimal
	Cryptocurrency model.CryptoCurrency

	PatientID     *uint
	AppointmentID *uint
	ReceivableID  *uint
}

// Invoice is what the checkout surface needs to collect a payment.
type Invoice struct {
	InvoiceID      string          `json:"invoice_id"`
	CheckoutURL    string          `json:"checkout_url"`
	QRPayload      string          `json:"qr_payload"`
	WalletAddress  string          `json:"wallet_address"`
	Cryptocurrency string          `json:"cryptocurrency"`
	CoinAmount     int64           `json:"coin_amount"`
	FiatAmount     decimal.Decimal `json:"fiat_amount"`
	FiatCurrency   string          `json:"fiat_currency"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

// InvoiceStatus is the payer-facing view: status plus a countdown, no
// internal retry detail.
type InvoiceStatus struct {
	InvoiceID       string `json:"invoice_id"`
	Status          string `json:"status"`
	Confirmations   int64  `json:"confirmations"`
	SecondsToExpiry int64  `json:"seconds_to_expiry"`
}

// InboundEvent is a webhook delivery from an exchange or payment
// processor, already decoded from the wire payload.
type InboundEvent struct {
	Exchange        string
	TransactionHash string
	WalletAddress   string
	Cryptocurrency  model.CryptoCurrency
	Amount          int64
	Confirmations   int64
	Status          string
	Timestamp       time.Time
	FromAddress     string
	NetworkFee      int64
}

type IngestResult struct {
	Outcome   model.WebhookOutcome `json:"outcome"`
	InvoiceID string               `json:"invoice_id,omitempty"`
}

type RegisterWalletParams struct {
	ClinicID       uint
	Cryptocurrency model.CryptoCurrency
	Address        string
	Label          string
}

type ISettlement interface {
	// CreateInvoice quotes a fiat amount in the requested coin at the
	// current rate, persists a pending transaction and starts watching the
	// clinic's deposit address.
	CreateInvoice(params CreateInvoiceParams) (*Invoice, error)

	// GetInvoice returns the payer-facing status for an invoice.
	GetInvoice(invoiceID string) (*InvoiceStatus, error)

	// ApplyConfirmation is the single idempotent consumer fed by both the
	// polling and the webhook paths.
	ApplyConfirmation(event monitor.ConfirmationEvent) error

	// Ingest applies one webhook delivery and records it in the audit
	// trail regardless of outcome.
	Ingest(event InboundEvent) (*IngestResult, error)

	// ExpireOverdue sweeps open transactions past their expiry with no
	// observed confirmations; returns how many were expired.
	ExpireOverdue() (int, error)

	// ResumeWatches re-registers monitor watches for transactions that
	// were still open when the process last stopped.
	ResumeWatches() error

	// ProbeClinicEndpoints health-checks every active clinic server
	// endpoint and records the outcome.
	ProbeClinicEndpoints()

	RegisterWallet(params RegisterWalletParams) (*model.CryptoWallet, error)
}
