package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orthoplus/crypto-settlement/internal/model"
	"github.com/orthoplus/crypto-settlement/internal/monitor"
	"github.com/orthoplus/crypto-settlement/internal/monitoring"
	"github.com/orthoplus/crypto-settlement/internal/oracle"
	"github.com/orthoplus/crypto-settlement/internal/store"
	"github.com/orthoplus/crypto-settlement/internal/utils/config"
	"github.com/orthoplus/crypto-settlement/internal/utils/logger"
	"github.com/orthoplus/crypto-settlement/internal/utils/webhook"
)

const (
	defaultConfirmationThreshold = 1
	notifyTimeout                = 15 * time.Second
)

type Settlement struct {
	db        *gorm.DB
	store     *store.Store
	oracle    oracle.IOracle
	monitor   monitor.IMonitor
	notifier  webhook.INotifier
	appConfig *config.AppConfig
	logger    *logger.Logger
	metrics   *monitoring.SettlementMetrics
}

func New(
	db *gorm.DB,
	store *store.Store,
	oracle oracle.IOracle,
	monitor monitor.IMonitor,
	notifier webhook.INotifier,
	appConfig *config.AppConfig,
	logger *logger.Logger,
	metrics *monitoring.SettlementMetrics,
) ISettlement {
	return &Settlement{
		db:        db,
		store:     store,
		oracle:    oracle,
		monitor:   monitor,
		notifier:  notifier,
		appConfig: appConfig,
		logger:    logger,
		metrics:   metrics,
	}
}

func (s *Settlement) CreateInvoice(p CreateInvoiceParams) (*Invoice, error) {
	if p.ClinicID == 0 {
		return nil, &model.ValidationError{Field: "clinic_id", Reason: "required"}
	}
	if !p.FiatAmount.IsPositive() {
		return nil, &model.ValidationError{Field: "fiat_amount", Reason: "must be positive"}
	}
	if !p.Cryptocurrency.Valid() {
		return nil, &model.ValidationError{Field: "cryptocurrency", Reason: "unsupported coin " + string(p.Cryptocurrency)}
	}

	cfg, err := s.store.CryptoConfig.GetByClinicID(s.db, p.ClinicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &model.NotFoundError{Entity: "crypto_config", Key: strconv.FormatUint(uint64(p.ClinicID), 10)}
		}
		return nil, errors.Wrap(err, "failed to load clinic config")
	}
	if !cfg.Active {
		return nil, &model.ValidationError{Field: "clinic_id", Reason: "crypto payments are deactivated for this clinic"}
	}
	if !cfg.Accepts(p.Cryptocurrency) {
		return nil, &model.ValidationError{Field: "cryptocurrency", Reason: string(p.Cryptocurrency) + " is not accepted by this clinic"}
	}

	wallet, err := s.store.CryptoWallet.GetByClinicAndCoin(s.db, p.ClinicID, p.Cryptocurrency)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &model.NotFoundError{Entity: "crypto_wallet", Key: string(p.Cryptocurrency)}
		}
		return nil, errors.Wrap(err, "failed to load clinic wallet")
	}

	rate, err := s.oracle.GetRate(p.Cryptocurrency)
	if err != nil {
		return nil, err
	}

	coinAmount := quoteCoinAmount(p.FiatAmount, rate, p.Cryptocurrency)
	if coinAmount <= 0 {
		return nil, &model.ValidationError{Field: "fiat_amount", Reason: "amount is below the smallest payable unit"}
	}

	now := time.Now()
	invoiceID := uuid.New().String()
	checkoutURL := fmt.Sprintf("%s/crypto/checkout/%s", strings.TrimSuffix(cfg.ServerEndpoint, "/"), invoiceID)

	txn, err := model.NewCryptoTransaction(model.NewTransactionParams{
		ClinicID:       p.ClinicID,
		WalletID:       &wallet.ID,
		PatientID:      p.PatientID,
		AppointmentID:  p.AppointmentID,
		ReceivableID:   p.ReceivableID,
		InvoiceID:      invoiceID,
		CheckoutURL:    checkoutURL,
		QRPayload:      buildQRPayload(p.Cryptocurrency, wallet.Address, coinAmount),
		WalletAddress:  wallet.Address,
		FiatAmount:     p.FiatAmount,
		FiatCurrency:   strings.ToUpper(s.appConfig.RateOracle.FiatCurrency),
		CoinAmount:     coinAmount,
		Cryptocurrency: p.Cryptocurrency,
		ExpiresAt:      now.Add(cfg.PaymentTimeout()),
		Now:            now,
	})
	if err != nil {
		return nil, err
	}

	err = store.DoInTx(s.db, func(tx *gorm.DB) error {
		_, err := s.store.CryptoTransaction.Create(tx, txn)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to persist invoice")
	}

	if err := s.monitor.Watch(s.watchParamsFor(txn)); err != nil {
		// webhook ingestion still covers this invoice
		s.logger.Error("[CreateInvoice][Watch] failed to start address watch", map[string]string{
			"invoice_id": invoiceID,
			"address":    wallet.Address,
			"error":      err.Error(),
		})
	}

	s.logger.Info("[CreateInvoice] invoice created", map[string]string{
		"invoice_id":  invoiceID,
		"clinic_id":   strconv.FormatUint(uint64(p.ClinicID), 10),
		"coin":        string(p.Cryptocurrency),
		"coin_amount": strconv.FormatInt(coinAmount, 10),
		"fiat_amount": p.FiatAmount.StringFixed(2),
	})

	return &Invoice{
		InvoiceID:      invoiceID,
		CheckoutURL:    checkoutURL,
		QRPayload:      txn.QRPayload,
		WalletAddress:  wallet.Address,
		Cryptocurrency: string(p.Cryptocurrency),
		CoinAmount:     coinAmount,
		FiatAmount:     txn.FiatAmount,
		FiatCurrency:   txn.FiatCurrency,
		ExchangeRate:   txn.ExchangeRate,
		ExpiresAt:      txn.ExpiresAt,
	}, nil
}

func (s *Settlement) GetInvoice(invoiceID string) (*InvoiceStatus, error) {
	txn, err := s.store.CryptoTransaction.GetByInvoiceID(s.db, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &model.NotFoundError{Entity: "invoice", Key: invoiceID}
		}
		return nil, errors.Wrap(err, "failed to load invoice")
	}

	return &InvoiceStatus{
		InvoiceID:       txn.InvoiceID,
		Status:          string(txn.Status),
		Confirmations:   txn.Confirmations,
		SecondsToExpiry: txn.SecondsToExpiry(time.Now()),
	}, nil
}

func (s *Settlement) ApplyConfirmation(event monitor.ConfirmationEvent) error {
	now := time.Now()

	var crossed bool
	var applied *model.CryptoTransaction
	err := store.DoInTx(s.db, func(tx *gorm.DB) error {
		txn, err := s.lookupForConfirm(tx, event.TxHash, event.Address, event.Cryptocurrency)
		if err != nil {
			return err
		}

		crossed, err = s.confirmLocked(tx, txn, event.TxHash, "onchain_poll", event.Confirmations, event.BlockHeight, now)
		if err != nil {
			return err
		}
		applied = txn
		return nil
	})
	if err != nil {
		return err
	}

	s.afterConfirm(applied, crossed)
	return nil
}

// lookupForConfirm finds the transaction a confirmation event belongs to.
// The first poll observation arrives before the invoice has a hash, so a
// miss on hash falls back to the open invoice watching that address.
func (s *Settlement) lookupForConfirm(tx *gorm.DB, hash, address string, coin model.CryptoCurrency) (*model.CryptoTransaction, error) {
	txn, err := s.store.CryptoTransaction.GetByHashForUpdate(tx, hash)
	if err == nil {
		return txn, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	txn, err = s.store.CryptoTransaction.GetOpenByAddressForUpdate(tx, address, coin)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &model.NotFoundError{Entity: "crypto_transaction", Key: hash}
		}
		return nil, err
	}
	if txn.TransactionHash != nil && *txn.TransactionHash != hash {
		return nil, &model.ValidationError{Field: "transaction_hash", Reason: "open invoice is bound to a different payment"}
	}
	return txn, nil
}

// confirmLocked runs the observe -> maybe transition -> maybe apply balance
// sequence. The caller must hold the row lock on txn; the wallet balance is
// applied exactly on the transition into confirmed and never again.
func (s *Settlement) confirmLocked(tx *gorm.DB, txn *model.CryptoTransaction, hash, method string, confirmations, blockHeight int64, now time.Time) (bool, error) {
	if txn.Status == model.TransactionStatusPending {
		if err := txn.MarkPaid(hash, method, now); err != nil {
			return false, err
		}
	}

	crossed, err := txn.AddConfirmation(confirmations, blockHeight, s.thresholdFor(tx, txn.ClinicID), now)
	if err != nil {
		return false, err
	}

	if crossed {
		wallet, err := s.lockedWallet(tx, txn)
		if err != nil {
			return false, err
		}
		wallet.ApplyBalance(txn.CoinAmount, txn.FiatAmount, now)
		if err := s.store.CryptoWallet.Update(tx, wallet); err != nil {
			return false, errors.Wrap(err, "failed to apply wallet balance")
		}
		if txn.ReceivableID != nil {
			txn.ReceivableSettledAt = &now
		}
	}

	if err := s.store.CryptoTransaction.Update(tx, txn); err != nil {
		return false, errors.Wrap(err, "failed to update transaction")
	}
	return crossed, nil
}

func (s *Settlement) lockedWallet(tx *gorm.DB, txn *model.CryptoTransaction) (*model.CryptoWallet, error) {
	if txn.WalletID != nil {
		return s.store.CryptoWallet.GetByIDForUpdate(tx, *txn.WalletID)
	}

	wallet, err := s.store.CryptoWallet.GetByAddressAndCoin(tx, txn.WalletAddress, txn.Cryptocurrency)
	if err != nil {
		return nil, err
	}
	return s.store.CryptoWallet.GetByIDForUpdate(tx, wallet.ID)
}

func (s *Settlement) thresholdFor(tx *gorm.DB, clinicID uint) int64 {
	cfg, err := s.store.CryptoConfig.GetByClinicID(tx, clinicID)
	if err != nil {
		s.logger.Warn("[thresholdFor] falling back to default confirmation threshold", map[string]string{
			"clinic_id": strconv.FormatUint(uint64(clinicID), 10),
			"error":     err.Error(),
		})
		return defaultConfirmationThreshold
	}
	return cfg.MinConfirmations
}

// afterConfirm handles the side effects that must not run inside the
// database transaction: metrics, watch release and the clinic callback.
func (s *Settlement) afterConfirm(txn *model.CryptoTransaction, crossed bool) {
	if txn == nil {
		return
	}

	s.metrics.ConfirmationsApplied.Inc()
	if txn.Status.Settled() {
		// watches are keyed by address and a clinic wallet address hosts at
		// most one watch. A second open invoice on the same address loses
		// polling here and is carried by webhook ingestion alone.
		s.monitor.Unwatch(txn.WalletAddress)
	}
	if !crossed {
		return
	}

	s.metrics.BalanceApplications.Inc()
	s.logger.Info("[afterConfirm] invoice settled", map[string]string{
		"invoice_id":    txn.InvoiceID,
		"clinic_id":     strconv.FormatUint(uint64(txn.ClinicID), 10),
		"coin":          string(txn.Cryptocurrency),
		"coin_amount":   strconv.FormatInt(txn.CoinAmount, 10),
		"confirmations": strconv.FormatInt(txn.Confirmations, 10),
	})

	cfg, err := s.store.CryptoConfig.GetByClinicID(s.db, txn.ClinicID)
	if err != nil {
		s.logger.Error("[afterConfirm][GetByClinicID] cannot resolve clinic endpoint for callback", map[string]string{
			"clinic_id": strconv.FormatUint(uint64(txn.ClinicID), 10),
			"error":     err.Error(),
		})
		return
	}

	notification := webhook.SettlementNotification{
		InvoiceID:      txn.InvoiceID,
		ClinicID:       strconv.FormatUint(uint64(txn.ClinicID), 10),
		Cryptocurrency: string(txn.Cryptocurrency),
		CoinAmount:     txn.CoinAmount,
		FiatAmount:     txn.FiatAmount.StringFixed(2),
		Confirmations:  txn.Confirmations,
		SettledAt:      time.Now(),
	}
	if txn.TransactionHash != nil {
		notification.TxHash = *txn.TransactionHash
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.NotifySettlement(ctx, cfg.ServerEndpoint, notification); err != nil {
			s.logger.Error("[afterConfirm][NotifySettlement] clinic callback failed", map[string]string{
				"invoice_id": txn.InvoiceID,
				"endpoint":   cfg.ServerEndpoint,
				"error":      err.Error(),
			})
		}
	}()
}

func (s *Settlement) Ingest(event InboundEvent) (*IngestResult, error) {
	now := time.Now()
	result, err := s.ingest(event, now)

	outcome := result.Outcome
	s.metrics.WebhookEvents.WithLabelValues(string(outcome)).Inc()
	s.recordAudit(event, outcome, err)

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Settlement) ingest(event InboundEvent, now time.Time) (*IngestResult, error) {
	if err := validateEvent(event); err != nil {
		return &IngestResult{Outcome: model.WebhookOutcomeRejected}, err
	}

	wallet, err := s.store.CryptoWallet.GetByAddressAndCoin(s.db, event.WalletAddress, event.Cryptocurrency)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &IngestResult{Outcome: model.WebhookOutcomeRejected},
				&model.NotFoundError{Entity: "crypto_wallet", Key: event.WalletAddress}
		}
		return &IngestResult{Outcome: model.WebhookOutcomeFailed}, errors.Wrap(err, "failed to resolve wallet")
	}

	var outcome model.WebhookOutcome
	var crossed, invalidated bool
	var applied *model.CryptoTransaction
	err = store.DoInTx(s.db, func(tx *gorm.DB) error {
		txn, existing, err := s.resolveIngestTarget(tx, event, wallet, now)
		if err != nil {
			return err
		}

		// an observed payment below the accepted fraction of the invoiced
		// amount invalidates the invoice instead of settling it
		if existing && txn.Status.Open() && s.belowTolerance(txn, event.Amount) {
			if err := txn.Invalidate(); err != nil {
				return err
			}
			if err := s.store.CryptoTransaction.Update(tx, txn); err != nil {
				return errors.Wrap(err, "failed to invalidate transaction")
			}
			outcome = model.WebhookOutcomeRejected
			invalidated = true
			applied = txn
			return nil
		}

		prevStatus := txn.Status
		prevConfirmations := txn.Confirmations

		crossed, err = s.confirmLocked(tx, txn, event.TransactionHash, event.Exchange, event.Confirmations, 0, now)
		if err != nil {
			return err
		}
		applied = txn

		switch {
		case !existing:
			outcome = model.WebhookOutcomeCreated
		case txn.Status == prevStatus && txn.Confirmations == prevConfirmations:
			outcome = model.WebhookOutcomeDuplicate
		default:
			outcome = model.WebhookOutcomeApplied
		}
		return nil
	})
	if err != nil {
		outcome = model.WebhookOutcomeFailed
		var illegalErr *model.IllegalTransitionError
		var validationErr *model.ValidationError
		if errors.As(err, &illegalErr) || errors.As(err, &validationErr) {
			outcome = model.WebhookOutcomeRejected
		}
		return &IngestResult{Outcome: outcome}, err
	}

	if invalidated {
		s.monitor.Unwatch(applied.WalletAddress)
		s.logger.Warn("[Ingest] payment below tolerance, invoice invalidated", map[string]string{
			"invoice_id":  applied.InvoiceID,
			"hash":        event.TransactionHash,
			"amount":      strconv.FormatInt(event.Amount, 10),
			"coin_amount": strconv.FormatInt(applied.CoinAmount, 10),
		})
		return &IngestResult{Outcome: outcome, InvoiceID: applied.InvoiceID}, nil
	}

	s.afterConfirm(applied, crossed)

	result := &IngestResult{Outcome: outcome}
	if applied != nil {
		result.InvoiceID = applied.InvoiceID
	}
	return result, nil
}

// belowTolerance reports whether an observed amount falls short of the
// accepted fraction of the invoiced amount, in basis points. Uninvoiced
// deposits carry the observed amount and are never gated.
func (s *Settlement) belowTolerance(txn *model.CryptoTransaction, amount int64) bool {
	if txn.CoinAmount <= 0 {
		return false
	}
	required := txn.CoinAmount * s.appConfig.Settlement.ToleranceBps / 10000
	return amount < required
}

// resolveIngestTarget locates the transaction a webhook event applies to,
// creating one when the hash is new and no open invoice is waiting on the
// address. The returned flag reports whether the transaction pre-existed.
func (s *Settlement) resolveIngestTarget(tx *gorm.DB, event InboundEvent, wallet *model.CryptoWallet, now time.Time) (*model.CryptoTransaction, bool, error) {
	txn, err := s.store.CryptoTransaction.GetByHashForUpdate(tx, event.TransactionHash)
	if err == nil {
		return txn, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	txn, err = s.store.CryptoTransaction.GetOpenByAddressForUpdate(tx, event.WalletAddress, event.Cryptocurrency)
	if err == nil && (txn.TransactionHash == nil || *txn.TransactionHash == event.TransactionHash) {
		return txn, true, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	created, err := s.materializeDeposit(tx, event, wallet, now)
	if err != nil {
		return nil, false, err
	}
	return created, false, nil
}

// materializeDeposit creates a transaction for a payment this system never
// invoiced, valued at the current rate so wallet fiat accounting stays
// consistent.
func (s *Settlement) materializeDeposit(tx *gorm.DB, event InboundEvent, wallet *model.CryptoWallet, now time.Time) (*model.CryptoTransaction, error) {
	rate, err := s.oracle.GetRate(event.Cryptocurrency)
	if err != nil {
		return nil, err
	}
	fiatAmount := decimal.NewFromInt(event.Amount).
		Div(decimal.NewFromInt(event.Cryptocurrency.MinorUnitsPerCoin())).
		Mul(rate).
		Round(2)

	timeout := time.Duration(defaultDepositTimeoutMin) * time.Minute
	if cfg, err := s.store.CryptoConfig.GetByClinicID(tx, wallet.ClinicID); err == nil {
		timeout = cfg.PaymentTimeout()
	}

	txn, err := model.NewCryptoTransaction(model.NewTransactionParams{
		ClinicID:       wallet.ClinicID,
		WalletID:       &wallet.ID,
		InvoiceID:      uuid.New().String(),
		WalletAddress:  wallet.Address,
		FiatAmount:     fiatAmount,
		FiatCurrency:   strings.ToUpper(s.appConfig.RateOracle.FiatCurrency),
		CoinAmount:     event.Amount,
		Cryptocurrency: event.Cryptocurrency,
		ExpiresAt:      now.Add(timeout),
		Now:            now,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.store.CryptoTransaction.Create(tx, txn); err != nil {
		return nil, errors.Wrap(err, "failed to create transaction from webhook")
	}

	s.logger.Info("[Ingest] materialized uninvoiced deposit", map[string]string{
		"invoice_id": txn.InvoiceID,
		"clinic_id":  strconv.FormatUint(uint64(wallet.ClinicID), 10),
		"coin":       string(event.Cryptocurrency),
		"amount":     strconv.FormatInt(event.Amount, 10),
		"hash":       event.TransactionHash,
	})
	return txn, nil
}

func (s *Settlement) recordAudit(event InboundEvent, outcome model.WebhookOutcome, ingestErr error) {
	payload, err := json.Marshal(map[string]any{
		"exchange":         event.Exchange,
		"transaction_hash": event.TransactionHash,
		"wallet_address":   event.WalletAddress,
		"coin_type":        event.Cryptocurrency,
		"amount":           event.Amount,
		"confirmations":    event.Confirmations,
		"status":           event.Status,
		"timestamp":        event.Timestamp,
		"from_address":     event.FromAddress,
		"network_fee":      event.NetworkFee,
	})
	if err != nil {
		payload = []byte("{}")
	}

	audit := &model.WebhookEvent{
		Provider:        event.Exchange,
		TransactionHash: event.TransactionHash,
		WalletAddress:   event.WalletAddress,
		Cryptocurrency:  event.Cryptocurrency,
		Amount:          event.Amount,
		Confirmations:   event.Confirmations,
		Status:          event.Status,
		Outcome:         outcome,
		Payload:         string(payload),
	}
	if ingestErr != nil {
		audit.Error = ingestErr.Error()
	}

	if _, err := s.store.WebhookEvent.Create(s.db, audit); err != nil {
		s.logger.Error("[Ingest][recordAudit] failed to persist audit row", map[string]string{
			"hash":  event.TransactionHash,
			"error": err.Error(),
		})
	}
}

func (s *Settlement) ExpireOverdue() (int, error) {
	now := time.Now()

	candidates, err := s.store.CryptoTransaction.ListExpirable(s.db, now)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list expirable transactions")
	}

	expired := 0
	for i := range candidates {
		candidate := candidates[i]
		err := store.DoInTx(s.db, func(tx *gorm.DB) error {
			txn, err := s.store.CryptoTransaction.GetByIDForUpdate(tx, candidate.ID)
			if err != nil {
				return err
			}
			if err := txn.Expire(now); err != nil {
				// a confirmation won the race; leave it alone
				s.logger.Info("[ExpireOverdue] skipping transaction no longer expirable", map[string]string{
					"invoice_id": txn.InvoiceID,
					"status":     string(txn.Status),
				})
				return nil
			}
			expired++
			return s.store.CryptoTransaction.Update(tx, txn)
		})
		if err != nil {
			s.logger.Error("[ExpireOverdue] failed to expire transaction", map[string]string{
				"invoice_id": candidate.InvoiceID,
				"error":      err.Error(),
			})
			continue
		}
		s.monitor.Unwatch(candidate.WalletAddress)
	}

	if expired > 0 {
		s.logger.Info("[ExpireOverdue] expired overdue invoices", map[string]string{
			"count": strconv.Itoa(expired),
		})
	}
	return expired, nil
}

func (s *Settlement) ResumeWatches() error {
	txns, err := s.store.CryptoTransaction.ListOpen(s.db)
	if err != nil {
		return errors.Wrap(err, "failed to list open transactions")
	}

	now := time.Now()
	resumed := 0
	for i := range txns {
		txn := txns[i]
		if !txn.ExpiresAt.After(now) {
			// the expiry sweep owns this one
			continue
		}
		if err := s.monitor.Watch(s.watchParamsFor(&txn)); err != nil {
			s.logger.Error("[ResumeWatches] failed to resume watch", map[string]string{
				"invoice_id": txn.InvoiceID,
				"address":    txn.WalletAddress,
				"error":      err.Error(),
			})
			continue
		}
		resumed++
	}

	s.logger.Info("[ResumeWatches] resumed address watches", map[string]string{
		"count": strconv.Itoa(resumed),
	})
	return nil
}

func (s *Settlement) ProbeClinicEndpoints() {
	configs, err := s.store.CryptoConfig.ListActive(s.db)
	if err != nil {
		s.logger.Error("[ProbeClinicEndpoints] failed to list active configs", map[string]string{
			"error": err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	for i := range configs {
		cfg := configs[i]
		status := s.notifier.Probe(ctx, cfg.ServerEndpoint)
		cfg.RecordHealth(status, time.Now())
		if err := s.store.CryptoConfig.Update(s.db, &cfg); err != nil {
			s.logger.Error("[ProbeClinicEndpoints] failed to record health", map[string]string{
				"clinic_id": strconv.FormatUint(uint64(cfg.ClinicID), 10),
				"error":     err.Error(),
			})
		}
	}
}

func (s *Settlement) RegisterWallet(p RegisterWalletParams) (*model.CryptoWallet, error) {
	if err := validateAddress(p.Cryptocurrency, p.Address); err != nil {
		return nil, err
	}

	wallet, err := model.NewCryptoWallet(p.ClinicID, p.Cryptocurrency, p.Address, p.Label)
	if err != nil {
		return nil, err
	}

	err = store.DoInTx(s.db, func(tx *gorm.DB) error {
		_, err := s.store.CryptoWallet.Create(tx, wallet)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create wallet")
	}

	s.logger.Info("[RegisterWallet] wallet registered", map[string]string{
		"clinic_id": strconv.FormatUint(uint64(p.ClinicID), 10),
		"coin":      string(p.Cryptocurrency),
		"address":   p.Address,
	})
	return wallet, nil
}

func (s *Settlement) watchParamsFor(txn *model.CryptoTransaction) monitor.WatchParams {
	invoiceID := txn.InvoiceID
	address := txn.WalletAddress
	return monitor.WatchParams{
		Address:        address,
		Cryptocurrency: txn.Cryptocurrency,
		ExpectedAmount: txn.CoinAmount,
		OnConfirmed: func(event monitor.ConfirmationEvent) {
			if err := s.ApplyConfirmation(event); err != nil {
				s.logger.Error("[Watch][ApplyConfirmation] failed to apply poll observation", map[string]string{
					"invoice_id": invoiceID,
					"hash":       event.TxHash,
					"error":      err.Error(),
				})
			}
		},
		OnError: func(err error) {
			s.logger.Warn("[Watch] poll tick failed", map[string]string{
				"invoice_id": invoiceID,
				"address":    address,
				"error":      err.Error(),
			})
		},
	}
}

const defaultDepositTimeoutMin = 15

func validateEvent(event InboundEvent) error {
	if !event.Cryptocurrency.Valid() {
		return &model.ValidationError{Field: "coin_type", Reason: "unsupported coin " + string(event.Cryptocurrency)}
	}
	if event.WalletAddress == "" {
		return &model.ValidationError{Field: "wallet_address", Reason: "required"}
	}
	if event.Amount <= 0 {
		return &model.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if event.Confirmations < 0 {
		return &model.ValidationError{Field: "confirmations", Reason: "must not be negative"}
	}
	return validateTxHash(event.Cryptocurrency, event.TransactionHash)
}

func validateTxHash(coin model.CryptoCurrency, hash string) error {
	if hash == "" {
		return &model.ValidationError{Field: "transaction_hash", Reason: "required"}
	}

	switch coin.Family() {
	case model.CoinFamilyUTXO:
		if _, err := chainhash.NewHashFromStr(hash); err != nil {
			return &model.ValidationError{Field: "transaction_hash", Reason: "malformed hash"}
		}
	case model.CoinFamilyAccount:
		if len(hash) != 66 || !strings.HasPrefix(hash, "0x") || !isHex(hash[2:]) {
			return &model.ValidationError{Field: "transaction_hash", Reason: "malformed hash"}
		}
	}
	return nil
}

func validateAddress(coin model.CryptoCurrency, address string) error {
	if address == "" {
		return &model.ValidationError{Field: "address", Reason: "required"}
	}

	switch coin.Family() {
	case model.CoinFamilyUTXO:
		if _, err := btcutil.DecodeAddress(address, &chaincfg.MainNetParams); err != nil {
			return &model.ValidationError{Field: "address", Reason: "not a valid bitcoin address"}
		}
	case model.CoinFamilyAccount:
		if !common.IsHexAddress(address) {
			return &model.ValidationError{Field: "address", Reason: "not a valid account address"}
		}
	}
	return nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// quoteCoinAmount converts a fiat amount into the coin's minor units at the
// given rate.
func quoteCoinAmount(fiat, rate decimal.Decimal, coin model.CryptoCurrency) int64 {
	if !rate.IsPositive() {
		return 0
	}
	return fiat.
		Mul(decimal.NewFromInt(coin.MinorUnitsPerCoin())).
		Div(rate).
		Round(0).
		IntPart()
}

func buildQRPayload(coin model.CryptoCurrency, address string, coinAmount int64) string {
	whole := decimal.NewFromInt(coinAmount).Div(decimal.NewFromInt(coin.MinorUnitsPerCoin()))

	switch coin {
	case model.CryptoCurrencyBTC:
		return fmt.Sprintf("bitcoin:%s?amount=%s", address, whole.String())
	case model.CryptoCurrencyETH:
		return fmt.Sprintf("ethereum:%s?value=%s", address, whole.String())
	default:
		return address
	}
}
