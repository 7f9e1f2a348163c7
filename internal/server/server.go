package server

import (
	"context"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/orthoplus/crypto-settlement/internal/explorer"
	"github.com/orthoplus/crypto-settlement/internal/explorer/accountrpc"
	"github.com/orthoplus/crypto-settlement/internal/explorer/blockstream"
	"github.com/orthoplus/crypto-settlement/internal/model"
	"github.com/orthoplus/crypto-settlement/internal/monitor"
	"github.com/orthoplus/crypto-settlement/internal/monitoring"
	"github.com/orthoplus/crypto-settlement/internal/oracle"
	"github.com/orthoplus/crypto-settlement/internal/settlement"
	"github.com/orthoplus/crypto-settlement/internal/store"
	pgstore "github.com/orthoplus/crypto-settlement/internal/store/postgres"
	"github.com/orthoplus/crypto-settlement/internal/transport/http"
	"github.com/orthoplus/crypto-settlement/internal/utils/config"
	"github.com/orthoplus/crypto-settlement/internal/utils/logger"
	"github.com/orthoplus/crypto-settlement/internal/utils/webhook"
)

func Init() {
	appConfig := config.New()
	logger := logger.New(appConfig.Environment)

	db := pgstore.New(appConfig, logger)
	s := store.New()

	metricsRegistry := prometheus.NewRegistry()
	metrics := monitoring.NewSettlementMetrics(metricsRegistry)

	registry := explorer.NewRegistry()

	btcExplorer := blockstream.New(appConfig, logger)
	registry.Register(model.CryptoCurrencyBTC, monitoring.NewCircuitBreakerExplorer(
		btcExplorer, "blockstream_api", monitoring.ConfigFor("blockstream_api"), logger))

	accountRPC, err := accountrpc.New(appConfig, logger)
	if err != nil {
		// BTC-only operation still works; account coins stay unregistered
		logger.Error("failed to init account rpc, ETH and USDT are disabled", map[string]string{
			"error": err.Error(),
		})
	} else {
		registry.Register(model.CryptoCurrencyETH, monitoring.NewCircuitBreakerExplorer(
			accountRPC.NativeExplorer(), "account_rpc", monitoring.ConfigFor("account_rpc"), logger))
		registry.Register(model.CryptoCurrencyUSDT, monitoring.NewCircuitBreakerExplorer(
			accountRPC.TokenExplorer(appConfig.Blockchain.USDTContractAddr), "account_rpc", monitoring.ConfigFor("account_rpc"), logger))
	}

	rateOracle := oracle.New(appConfig, logger)
	chainMonitor := monitor.New(registry, appConfig, logger, metrics)
	notifier := webhook.New(logger)

	settlementSvc := settlement.New(db, s, rateOracle, chainMonitor, notifier, appConfig, logger, metrics)

	if err := settlementSvc.ResumeWatches(); err != nil {
		logger.Error("failed to resume address watches", map[string]string{
			"error": err.Error(),
		})
	}

	c := cron.New()

	c.AddFunc("@every 1m", func() {
		if _, err := settlementSvc.ExpireOverdue(); err != nil {
			logger.Error("[cron][ExpireOverdue] sweep failed", map[string]string{
				"error": err.Error(),
			})
		}
	})

	c.AddFunc("@every 2m", func() {
		rateOracle.RefreshAll()
	})

	c.AddFunc("@every 5m", func() {
		settlementSvc.ProbeClinicEndpoints()
	})

	c.Start()

	router := http.NewHttpServer(appConfig, logger, settlementSvc, s, db, metricsRegistry)
	httpServer := &nethttp.Server{
		Addr:    ":" + appConfig.ApiServer.Port,
		Handler: router,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
			logger.Fatal("http server stopped", map[string]string{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	c.Stop()
	chainMonitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown failed", map[string]string{
			"error": err.Error(),
		})
	}
}
