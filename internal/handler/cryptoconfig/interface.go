package cryptoconfig

import (
	"github.com/gin-gonic/gin"
)

type IHandler interface {
	// Create registers the settlement policy for a clinic
	Create(c *gin.Context)
	// Get returns a clinic's settlement policy
	Get(c *gin.Context)
	// Activate re-enables crypto payments for a clinic
	Activate(c *gin.Context)
	// Deactivate disables crypto payments without deleting the config
	Deactivate(c *gin.Context)
}

type CreateConfigRequest struct {
	ClinicID          uint     `json:"clinic_id" binding:"required"`
	ServerEndpoint    string   `json:"server_endpoint" binding:"required,url"`
	StoreAccountID    string   `json:"store_account_id" binding:"required"`
	CreatedBy         string   `json:"created_by" binding:"required"`
	AcceptedCoins     []string `json:"accepted_coins" binding:"required,min=1"`
	PaymentTimeoutMin int      `json:"payment_timeout_min" binding:"required,min=1"`
	MinConfirmations  int64    `json:"min_confirmations" binding:"required,min=1"`
}
