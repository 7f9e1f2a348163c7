package transaction

import (
	"github.com/gin-gonic/gin"

	"github.com/orthoplus/crypto-settlement/internal/model"
)

type IHandler interface {
	// List retrieves settlement transactions with optional filtering
	List(c *gin.Context)
}

type ListTransactionsRequest struct {
	Limit    int    `form:"limit" json:"limit"`
	Offset   int    `form:"offset" json:"offset"`
	ClinicID uint   `form:"clinic_id" json:"clinic_id"`
	Status   string `form:"status" json:"status"`
	Coin     string `form:"coin" json:"coin"`
	Address  string `form:"address" json:"address"`
}

type ListTransactionsResponse struct {
	Total        int64                     `json:"total"`
	Transactions []model.CryptoTransaction `json:"transactions"`
}
