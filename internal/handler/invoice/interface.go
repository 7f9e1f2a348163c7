package invoice

import (
	"github.com/gin-gonic/gin"
)

type IHandler interface {
	// Create quotes and persists a new payment invoice
	Create(c *gin.Context)
	// Get returns the payer-facing invoice status
	Get(c *gin.Context)
}

type CreateInvoiceRequest struct {
	ClinicID       uint   `json:"clinic_id" binding:"required"`
	FiatAmount     string `json:"fiat_amount" binding:"required"`
	Cryptocurrency string `json:"cryptocurrency" binding:"required"`

	PatientID     *uint `json:"patient_id"`
	AppointmentID *uint `json:"appointment_id"`
	ReceivableID  *uint `json:"receivable_id"`
}
