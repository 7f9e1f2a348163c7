package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/orthoplus/crypto-settlement/internal/handler/cryptoconfig"
	"github.com/orthoplus/crypto-settlement/internal/handler/invoice"
	"github.com/orthoplus/crypto-settlement/internal/handler/metrics"
	"github.com/orthoplus/crypto-settlement/internal/handler/transaction"
	"github.com/orthoplus/crypto-settlement/internal/handler/wallet"
	"github.com/orthoplus/crypto-settlement/internal/handler/webhook"
	settlementService "github.com/orthoplus/crypto-settlement/internal/settlement"
	"github.com/orthoplus/crypto-settlement/internal/store"
	"github.com/orthoplus/crypto-settlement/internal/utils/config"
	"github.com/orthoplus/crypto-settlement/internal/utils/logger"
)

type Handler struct {
	InvoiceHandler     invoice.IHandler
	WebhookHandler     webhook.IHandler
	WalletHandler      wallet.IHandler
	ConfigHandler      cryptoconfig.IHandler
	TransactionHandler transaction.IHandler
	MetricsHandler     *metrics.MetricsHandler
}

func New(appConfig *config.AppConfig, logger *logger.Logger,
	settlement settlementService.ISettlement,
	store *store.Store,
	db *gorm.DB,
	metricsRegistry *prometheus.Registry) *Handler {
	return &Handler{
		InvoiceHandler:     invoice.New(settlement, logger),
		WebhookHandler:     webhook.New(settlement, appConfig, logger),
		WalletHandler:      wallet.New(settlement, db, store.CryptoWallet, logger),
		ConfigHandler:      cryptoconfig.New(db, store.CryptoConfig, logger),
		TransactionHandler: transaction.New(db, store.CryptoTransaction),
		MetricsHandler:     metrics.NewMetricsHandler(metricsRegistry),
	}
}
