package webhook

import (
	"github.com/gin-gonic/gin"
)

type IHandler interface {
	// Ingest applies one inbound payment notification
	Ingest(c *gin.Context)
}

// WebhookRequest is the wire payload pushed by exchanges and payment
// processors.
type WebhookRequest struct {
	Exchange        string `json:"exchange" binding:"required"`
	TransactionHash string `json:"transaction_hash" binding:"required"`
	WalletAddress   string `json:"wallet_address" binding:"required"`
	CoinType        string `json:"coin_type" binding:"required"`
	Amount          int64  `json:"amount" binding:"required"`
	Confirmations   int64  `json:"confirmations"`
	Status          string `json:"status" binding:"required,oneof=PENDING CONFIRMED"`
	Timestamp       int64  `json:"timestamp"`
	FromAddress     string `json:"from_address"`
	NetworkFee      int64  `json:"network_fee"`
}
