package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/orthoplus/crypto-settlement/internal/model"
	"github.com/orthoplus/crypto-settlement/internal/settlement"
	"github.com/orthoplus/crypto-settlement/internal/utils/config"
	"github.com/orthoplus/crypto-settlement/internal/utils/logger"
	"github.com/orthoplus/crypto-settlement/internal/view"
)

const signatureHeader = "x-webhook-signature"

type handler struct {
	settlement settlement.ISettlement
	appConfig  *config.AppConfig
	logger     *logger.Logger
}

func New(settlement settlement.ISettlement, appConfig *config.AppConfig, logger *logger.Logger) IHandler {
	return &handler{
		settlement: settlement,
		appConfig:  appConfig,
		logger:     logger,
	}
}

// Ingest godoc
// @Summary Ingest a payment webhook
// @Description Applies an externally-pushed payment notification; duplicate deliveries are acknowledged with 200
// @id ingestWebhook
// @Tags Webhook
// @Accept json
// @Produce json
// @Param x-webhook-signature header string false "HMAC-SHA256 signature of the raw body"
// @Param request body WebhookRequest true "Payment notification"
// @Success 200 {object} view.MessageResponse
// @Failure 400 {object} view.ErrorResponse
// @Failure 401 {object} view.ErrorResponse
// @Failure 404 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /webhooks/crypto [post]
func (h *handler) Ingest(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, nil, "cannot read request body"))
		return
	}

	if !h.verifySignature(body, c.GetHeader(signatureHeader)) {
		verr := &model.ValidationError{Field: signatureHeader, Reason: "missing or invalid signature"}
		c.JSON(http.StatusUnauthorized, view.CreateResponse[any](nil, verr, nil, "unauthorized"))
		return
	}

	// the raw body was consumed for signature verification, so bind it
	// directly to keep the binding tags enforced
	var req WebhookRequest
	if err := binding.JSON.BindBody(body, &req); err != nil {
		h.logger.Error("[Ingest][BindBody]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, nil, "invalid request"))
		return
	}

	result, err := h.settlement.Ingest(settlement.InboundEvent{
		Exchange:        req.Exchange,
		TransactionHash: req.TransactionHash,
		WalletAddress:   req.WalletAddress,
		Cryptocurrency:  model.CryptoCurrency(req.CoinType),
		Amount:          req.Amount,
		Confirmations:   req.Confirmations,
		Status:          req.Status,
		Timestamp:       time.Unix(req.Timestamp, 0),
		FromAddress:     req.FromAddress,
		NetworkFee:      req.NetworkFee,
	})
	if err != nil {
		h.logger.Error("[Ingest][Ingest]", map[string]string{
			"hash":  req.TransactionHash,
			"error": err.Error(),
		})
		c.JSON(view.ErrorStatus(err), view.CreateResponse[any](nil, err, req, "failed to ingest webhook"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse[any](result, nil, nil, ""))
}

// verifySignature checks the HMAC-SHA256 hex signature of the raw body.
// With no secret configured every request passes, which is tolerated for
// development only.
func (h *handler) verifySignature(body []byte, signature string) bool {
	secret := h.appConfig.Settlement.WebhookSecret
	if secret == "" {
		h.logger.Warn("[Ingest] accepting unsigned webhook, no secret configured")
		return true
	}
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
