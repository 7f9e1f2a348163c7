package invoice

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/orthoplus/crypto-settlement/internal/model"
	"github.com/orthoplus/crypto-settlement/internal/settlement"
	"github.com/orthoplus/crypto-settlement/internal/utils/logger"
	"github.com/orthoplus/crypto-settlement/internal/view"
)

type handler struct {
	settlement settlement.ISettlement
	logger     *logger.Logger
}

func New(settlement settlement.ISettlement, logger *logger.Logger) IHandler {
	return &handler{
		settlement: settlement,
		logger:     logger,
	}
}

// Create godoc
// @Summary Create a payment invoice
// @Description Quotes a fiat amount in the requested cryptocurrency and starts watching the clinic's deposit address
// @id createInvoice
// @Tags Invoice
// @Accept json
// @Produce json
// @Param request body CreateInvoiceRequest true "Invoice parameters"
// @Success 200 {object} view.MessageResponse
// @Failure 400 {object} view.ErrorResponse
// @Failure 404 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /invoices [post]
func (h *handler) Create(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("[Create][ShouldBindJSON]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return
	}

	fiatAmount, err := decimal.NewFromString(req.FiatAmount)
	if err != nil {
		verr := &model.ValidationError{Field: "fiat_amount", Reason: "not a decimal amount"}
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, verr, req, "invalid request"))
		return
	}

	inv, err := h.settlement.CreateInvoice(settlement.CreateInvoiceParams{
		ClinicID:       req.ClinicID,
		FiatAmount:     fiatAmount,
		Cryptocurrency: model.CryptoCurrency(req.Cryptocurrency),
		PatientID:      req.PatientID,
		AppointmentID:  req.AppointmentID,
		ReceivableID:   req.ReceivableID,
	})
	if err != nil {
		h.logger.Error("[Create][CreateInvoice]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(view.ErrorStatus(err), view.CreateResponse[any](nil, err, req, "failed to create invoice"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse[any](inv, nil, nil, ""))
}

// Get godoc
// @Summary Get invoice status
// @Description Returns the invoice status and the countdown to expiry
// @id getInvoice
// @Tags Invoice
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} view.MessageResponse
// @Failure 404 {object} view.ErrorResponse
// @Router /invoices/{id} [get]
func (h *handler) Get(c *gin.Context) {
	invoiceID := c.Param("id")

	status, err := h.settlement.GetInvoice(invoiceID)
	if err != nil {
		c.JSON(view.ErrorStatus(err), view.CreateResponse[any](nil, err, nil, "failed to get invoice"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse[any](status, nil, nil, ""))
}
