package model

import (
	"gorm.io/gorm"
)

type WebhookOutcome string

const (
	// WebhookOutcomeApplied means the event advanced an existing transaction.
	WebhookOutcomeApplied WebhookOutcome = "applied"
	// WebhookOutcomeCreated means the event materialized a new transaction.
	WebhookOutcomeCreated WebhookOutcome = "created"
	// WebhookOutcomeDuplicate means the event carried nothing newer.
	WebhookOutcomeDuplicate WebhookOutcome = "duplicate"
	// WebhookOutcomeRejected means the payload failed validation.
	WebhookOutcomeRejected WebhookOutcome = "rejected"
	// WebhookOutcomeFailed means processing hit an unexpected error.
	WebhookOutcomeFailed WebhookOutcome = "failed"
)

// WebhookEvent is the audit trail row recorded for every inbound webhook
// delivery, regardless of outcome.
type WebhookEvent struct {
	gorm.Model
	Provider        string         `gorm:"column:provider;type:varchar(64);not null"`
	TransactionHash string         `gorm:"column:transaction_hash;type:varchar(128);index"`
	WalletAddress   string         `gorm:"column:wallet_address;type:varchar(255)"`
	Cryptocurrency  CryptoCurrency `gorm:"column:cryptocurrency;type:varchar(10)"`
	Amount          int64          `gorm:"column:amount;not null;default:0"`
	Confirmations   int64          `gorm:"column:confirmations;not null;default:0"`
	Status          string         `gorm:"column:status;type:varchar(20)"`
	Outcome         WebhookOutcome `gorm:"column:outcome;type:varchar(20);not null"`
	Error           string         `gorm:"column:error;type:text"`
	Payload         string         `gorm:"column:payload;type:text"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
