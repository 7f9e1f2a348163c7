package wallet

import (
	"github.com/gin-gonic/gin"
)

type IHandler interface {
	// Create registers a watch-only deposit wallet for a clinic
	Create(c *gin.Context)
	// Get returns one clinic wallet with its settled balances
	Get(c *gin.Context)
}

type CreateWalletRequest struct {
	ClinicID       uint   `json:"clinic_id" binding:"required"`
	Cryptocurrency string `json:"cryptocurrency" binding:"required"`
	Address        string `json:"address" binding:"required"`
	Label          string `json:"label"`
}

type GetWalletRequest struct {
	ClinicID       uint   `form:"clinic_id" binding:"required"`
	Cryptocurrency string `form:"cryptocurrency" binding:"required"`
}
