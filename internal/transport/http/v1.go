package http

import (
	"github.com/gin-gonic/gin"

	"github.com/orthoplus/crypto-settlement/internal/handler"
	"github.com/orthoplus/crypto-settlement/internal/utils/config"
	"github.com/orthoplus/crypto-settlement/internal/utils/logger"
)

func loadV1Routes(r *gin.Engine, h *handler.Handler, appConfig *config.AppConfig, logger *logger.Logger) {
	v1 := r.Group("/api/v1")

	invoices := v1.Group("/invoices")
	{
		invoices.POST("", h.InvoiceHandler.Create)
		invoices.GET("/:id", h.InvoiceHandler.Get)
	}

	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("/crypto", h.WebhookHandler.Ingest)
	}

	wallets := v1.Group("/wallets")
	{
		wallets.POST("", h.WalletHandler.Create)
		wallets.GET("", h.WalletHandler.Get)
	}

	configs := v1.Group("/configs")
	{
		configs.POST("", h.ConfigHandler.Create)
		configs.GET("/:clinic_id", h.ConfigHandler.Get)
		configs.PUT("/:clinic_id/activate", h.ConfigHandler.Activate)
		configs.PUT("/:clinic_id/deactivate", h.ConfigHandler.Deactivate)
	}

	transactions := v1.Group("/transactions")
	{
		transactions.GET("", h.TransactionHandler.List)
	}

	// prometheus scrape target
	r.GET("/metrics", h.MetricsHandler.Handler())

	// health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "ok",
		})
	})
}
