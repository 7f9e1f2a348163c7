package transaction

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/orthoplus/crypto-settlement/internal/store/cryptotransaction"
	"github.com/orthoplus/crypto-settlement/internal/view"
)

type handler struct {
	db               *gorm.DB
	transactionStore cryptotransaction.IStore
}

func New(db *gorm.DB, transactionStore cryptotransaction.IStore) IHandler {
	return &handler{
		db:               db,
		transactionStore: transactionStore,
	}
}

// List godoc
// @Summary List settlement transactions
// @Description Retrieves settlement transactions with optional filtering by clinic, status, coin or address
// @id listTransactions
// @Tags Transaction
// @Produce json
// @Param limit query int false "Page size, defaults to 5, capped at 100"
// @Param offset query int false "Page offset"
// @Param clinic_id query int false "Clinic ID"
// @Param status query string false "Transaction status"
// @Param coin query string false "Coin symbol"
// @Param address query string false "Wallet address"
// @Success 200 {object} ListTransactionsResponse
// @Failure 400 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /transactions [get]
func (h *handler) List(c *gin.Context) {
	var req ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return
	}

	if req.Limit <= 0 {
		req.Limit = 5
	}
	if req.Limit > 100 {
		req.Limit = 100
	}

	transactions, total, err := h.transactionStore.List(h.db, cryptotransaction.ListFilter{
		Limit:    req.Limit,
		Offset:   req.Offset,
		ClinicID: req.ClinicID,
		Status:   req.Status,
		Coin:     req.Coin,
		Address:  req.Address,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, nil, "failed to fetch transactions"))
		return
	}

	c.JSON(http.StatusOK, ListTransactionsResponse{
		Total:        total,
		Transactions: transactions,
	})
}
