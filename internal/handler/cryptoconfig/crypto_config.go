package cryptoconfig

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/orthoplus/crypto-settlement/internal/model"
	"github.com/orthoplus/crypto-settlement/internal/store/cryptoconfig"
	"github.com/orthoplus/crypto-settlement/internal/utils/logger"
	"github.com/orthoplus/crypto-settlement/internal/view"
)

type handler struct {
	db          *gorm.DB
	configStore cryptoconfig.IStore
	logger      *logger.Logger
}

func New(db *gorm.DB, configStore cryptoconfig.IStore, logger *logger.Logger) IHandler {
	return &handler{
		db:          db,
		configStore: configStore,
		logger:      logger,
	}
}

// Create godoc
// @Summary Create a clinic settlement config
// @Description Registers accepted coins, confirmation threshold and payment timeout for a clinic
// @id createConfig
// @Tags Config
// @Accept json
// @Produce json
// @Param request body CreateConfigRequest true "Config parameters"
// @Success 200 {object} view.MessageResponse
// @Failure 400 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /configs [post]
func (h *handler) Create(c *gin.Context) {
	var req CreateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("[Create][ShouldBindJSON]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return
	}

	coins := make([]model.CryptoCurrency, 0, len(req.AcceptedCoins))
	for _, coin := range req.AcceptedCoins {
		coins = append(coins, model.CryptoCurrency(coin))
	}

	cfg, err := model.NewCryptoConfig(
		req.ClinicID,
		req.ServerEndpoint,
		req.StoreAccountID,
		req.CreatedBy,
		coins,
		req.PaymentTimeoutMin,
		req.MinConfirmations,
	)
	if err != nil {
		c.JSON(view.ErrorStatus(err), view.CreateResponse[any](nil, err, req, "invalid config"))
		return
	}

	if _, err := h.configStore.Create(h.db, cfg); err != nil {
		h.logger.Error("[Create][Create]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, nil, "failed to create config"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse[any](cfg, nil, nil, ""))
}

// Get godoc
// @Summary Get a clinic settlement config
// @id getConfig
// @Tags Config
// @Produce json
// @Param clinic_id path int true "Clinic ID"
// @Success 200 {object} view.MessageResponse
// @Failure 404 {object} view.ErrorResponse
// @Router /configs/{clinic_id} [get]
func (h *handler) Get(c *gin.Context) {
	cfg, ok := h.loadConfig(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, view.CreateResponse[any](cfg, nil, nil, ""))
}

// Activate godoc
// @Summary Activate crypto payments for a clinic
// @id activateConfig
// @Tags Config
// @Produce json
// @Param clinic_id path int true "Clinic ID"
// @Success 200 {object} view.MessageResponse
// @Failure 404 {object} view.ErrorResponse
// @Router /configs/{clinic_id}/activate [put]
func (h *handler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate godoc
// @Summary Deactivate crypto payments for a clinic
// @id deactivateConfig
// @Tags Config
// @Produce json
// @Param clinic_id path int true "Clinic ID"
// @Success 200 {object} view.MessageResponse
// @Failure 404 {object} view.ErrorResponse
// @Router /configs/{clinic_id}/deactivate [put]
func (h *handler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *handler) setActive(c *gin.Context, active bool) {
	cfg, ok := h.loadConfig(c)
	if !ok {
		return
	}

	if active {
		cfg.Activate()
	} else {
		cfg.Deactivate()
	}

	if err := h.configStore.Update(h.db, cfg); err != nil {
		h.logger.Error("[setActive][Update]", map[string]string{
			"clinic_id": strconv.FormatUint(uint64(cfg.ClinicID), 10),
			"error":     err.Error(),
		})
		c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, nil, "failed to update config"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse[any](cfg, nil, nil, ""))
}

func (h *handler) loadConfig(c *gin.Context) (*model.CryptoConfig, bool) {
	clinicID, err := strconv.ParseUint(c.Param("clinic_id"), 10, 64)
	if err != nil || clinicID == 0 {
		verr := &model.ValidationError{Field: "clinic_id", Reason: "must be a positive integer"}
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, verr, nil, "invalid request"))
		return nil, false
	}

	cfg, err := h.configStore.GetByClinicID(h.db, uint(clinicID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			nfErr := &model.NotFoundError{Entity: "crypto_config", Key: c.Param("clinic_id")}
			c.JSON(http.StatusNotFound, view.CreateResponse[any](nil, nfErr, nil, "config not found"))
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, nil, "failed to load config"))
		return nil, false
	}
	return cfg, true
}
