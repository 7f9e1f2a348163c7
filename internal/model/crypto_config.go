package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type HealthStatus string

const (
	HealthStatusUnknown  HealthStatus = "unknown"
	HealthStatusHealthy  HealthStatus = "healthy"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusDown     HealthStatus = "down"
)

// CryptoConfig is the per-clinic settlement policy. Configs are
// deactivated, never hard-deleted.
type CryptoConfig struct {
	gorm.Model
	ClinicID          uint   `gorm:"column:clinic_id;uniqueIndex;not null"`
	ServerEndpoint    string `gorm:"column:server_endpoint;type:varchar(255);not null"`
	StoreAccountID    string `gorm:"column:store_account_id;type:varchar(255);not null"`
	CreatedBy         string `gorm:"column:created_by;type:varchar(255);not null"`
	AcceptedCoins     string `gorm:"column:accepted_coins;type:varchar(255);not null"`
	AutoConvertFiat   bool   `gorm:"column:auto_convert_fiat;default:false"`
	PaymentTimeoutMin int    `gorm:"column:payment_timeout_min;not null"`
	MinConfirmations  int64  `gorm:"column:min_confirmations;not null"`
	Active            bool   `gorm:"column:active;default:true"`
	HealthStatus      HealthStatus `gorm:"column:health_status;type:varchar(20);default:'unknown'"`
	LastHealthCheckAt *time.Time   `gorm:"column:last_health_check_at"`
}

func (CryptoConfig) TableName() string {
	return "crypto_configs"
}

func NewCryptoConfig(clinicID uint, serverEndpoint, storeAccountID, createdBy string, acceptedCoins []CryptoCurrency, timeoutMin int, minConfirmations int64) (*CryptoConfig, error) {
	if clinicID == 0 {
		return nil, &ValidationError{Field: "clinic_id", Reason: "required"}
	}
	if serverEndpoint == "" {
		return nil, &ValidationError{Field: "server_endpoint", Reason: "required"}
	}
	if storeAccountID == "" {
		return nil, &ValidationError{Field: "store_account_id", Reason: "required"}
	}
	if createdBy == "" {
		return nil, &ValidationError{Field: "created_by", Reason: "required"}
	}
	if len(acceptedCoins) == 0 {
		return nil, &ValidationError{Field: "accepted_coins", Reason: "at least one coin required"}
	}
	coins := make([]string, 0, len(acceptedCoins))
	for _, coin := range acceptedCoins {
		if !coin.Valid() {
			return nil, &ValidationError{Field: "accepted_coins", Reason: "unsupported coin " + string(coin)}
		}
		coins = append(coins, string(coin))
	}
	if timeoutMin <= 0 {
		return nil, &ValidationError{Field: "payment_timeout_min", Reason: "must be positive"}
	}
	if minConfirmations < 1 {
		return nil, &ValidationError{Field: "min_confirmations", Reason: "must be at least 1"}
	}

	return &CryptoConfig{
		ClinicID:          clinicID,
		ServerEndpoint:    serverEndpoint,
		StoreAccountID:    storeAccountID,
		CreatedBy:         createdBy,
		AcceptedCoins:     strings.Join(coins, ","),
		PaymentTimeoutMin: timeoutMin,
		MinConfirmations:  minConfirmations,
		Active:            true,
		HealthStatus:      HealthStatusUnknown,
	}, nil
}

func (c *CryptoConfig) Accepts(coin CryptoCurrency) bool {
	for _, accepted := range strings.Split(c.AcceptedCoins, ",") {
		if accepted == string(coin) {
			return true
		}
	}
	return false
}

func (c *CryptoConfig) Activate() {
	c.Active = true
}

func (c *CryptoConfig) Deactivate() {
	c.Active = false
}

// RecordHealth stamps the outcome of a health probe. Probe cadence is the
// caller's concern.
func (c *CryptoConfig) RecordHealth(status HealthStatus, now time.Time) {
	c.HealthStatus = status
	c.LastHealthCheckAt = &now
}

func (c *CryptoConfig) PaymentTimeout() time.Duration {
	return time.Duration(c.PaymentTimeoutMin) * time.Minute
}
