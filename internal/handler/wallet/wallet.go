package wallet

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/orthoplus/crypto-settlement/internal/model"
	"github.com/orthoplus/crypto-settlement/internal/settlement"
	"github.com/orthoplus/crypto-settlement/internal/store/cryptowallet"
	"github.com/orthoplus/crypto-settlement/internal/utils/logger"
	"github.com/orthoplus/crypto-settlement/internal/view"
)

type handler struct {
	settlement  settlement.ISettlement
	db          *gorm.DB
	walletStore cryptowallet.IStore
	logger      *logger.Logger
}

func New(settlement settlement.ISettlement, db *gorm.DB, walletStore cryptowallet.IStore, logger *logger.Logger) IHandler {
	return &handler{
		settlement:  settlement,
		db:          db,
		walletStore: walletStore,
		logger:      logger,
	}
}

// Create godoc
// @Summary Register a clinic wallet
// @Description Registers a watch-only deposit address for a clinic and coin
// @id createWallet
// @Tags Wallet
// @Accept json
// @Produce json
// @Param request body CreateWalletRequest true "Wallet parameters"
// @Success 200 {object} view.MessageResponse
// @Failure 400 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /wallets [post]
func (h *handler) Create(c *gin.Context) {
	var req CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("[Create][ShouldBindJSON]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return
	}

	wallet, err := h.settlement.RegisterWallet(settlement.RegisterWalletParams{
		ClinicID:       req.ClinicID,
		Cryptocurrency: model.CryptoCurrency(req.Cryptocurrency),
		Address:        req.Address,
		Label:          req.Label,
	})
	if err != nil {
		h.logger.Error("[Create][RegisterWallet]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(view.ErrorStatus(err), view.CreateResponse[any](nil, err, req, "failed to register wallet"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse[any](wallet, nil, nil, ""))
}

// Get godoc
// @Summary Get a clinic wallet
// @Description Returns the wallet for a clinic and coin with its settled balances
// @id getWallet
// @Tags Wallet
// @Produce json
// @Param clinic_id query int true "Clinic ID"
// @Param cryptocurrency query string true "Coin symbol"
// @Success 200 {object} view.MessageResponse
// @Failure 404 {object} view.ErrorResponse
// @Router /wallets [get]
func (h *handler) Get(c *gin.Context) {
	var req GetWalletRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return
	}

	wallet, err := h.walletStore.GetByClinicAndCoin(h.db, req.ClinicID, model.CryptoCurrency(req.Cryptocurrency))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			nfErr := &model.NotFoundError{Entity: "crypto_wallet", Key: req.Cryptocurrency}
			c.JSON(http.StatusNotFound, view.CreateResponse[any](nil, nfErr, req, "wallet not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, nil, "failed to get wallet"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse[any](wallet, nil, nil, ""))
}
