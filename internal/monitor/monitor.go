package monitor

import (
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/orthoplus/crypto-settlement/internal/explorer"
	"github.com/orthoplus/crypto-settlement/internal/model"
	"github.com/orthoplus/crypto-settlement/internal/monitoring"
	"github.com/orthoplus/crypto-settlement/internal/utils/config"
	"github.com/orthoplus/crypto-settlement/internal/utils/logger"
)

type watch struct {
	params   WatchParams
	explorer explorer.IExplorer
	cancel   chan struct{}
}

// Monitor owns the registry of active watches. One goroutine polls per
// watched address, so a slow or failing explorer never stalls the others.
type Monitor struct {
	registry  *explorer.Registry
	appConfig *config.AppConfig
	logger    *logger.Logger
	metrics   *monitoring.SettlementMetrics

	mux     sync.Mutex
	watches map[string]*watch
	wg      sync.WaitGroup
}

func New(registry *explorer.Registry, appConfig *config.AppConfig, logger *logger.Logger, metrics *monitoring.SettlementMetrics) IMonitor {
	return &Monitor{
		registry:  registry,
		appConfig: appConfig,
		logger:    logger,
		metrics:   metrics,
		watches:   map[string]*watch{},
	}
}

func (m *Monitor) Watch(params WatchParams) error {
	exp, err := m.registry.ForCoin(params.Cryptocurrency)
	if err != nil {
		return err
	}

	m.mux.Lock()
	if _, ok := m.watches[params.Address]; ok {
		m.mux.Unlock()
		m.logger.Warn("[Watch] address is already monitored", map[string]string{
			"address": params.Address,
			"coin":    string(params.Cryptocurrency),
		})
		return nil
	}

	w := &watch{
		params:   params,
		explorer: exp,
		cancel:   make(chan struct{}),
	}
	m.watches[params.Address] = w
	m.metrics.ActiveWatches.Inc()
	m.mux.Unlock()

	m.wg.Add(1)
	go m.run(w)

	m.logger.Info("[Watch] started monitoring address", map[string]string{
		"address":         params.Address,
		"coin":            string(params.Cryptocurrency),
		"expected_amount": strconv.FormatInt(params.ExpectedAmount, 10),
	})
	return nil
}

func (m *Monitor) Unwatch(address string) {
	m.mux.Lock()
	w, ok := m.watches[address]
	if ok {
		delete(m.watches, address)
		m.metrics.ActiveWatches.Dec()
	}
	m.mux.Unlock()

	if !ok {
		return
	}

	close(w.cancel)
	m.logger.Info("[Unwatch] stopped monitoring address", map[string]string{
		"address": address,
	})
}

func (m *Monitor) Stop() {
	m.mux.Lock()
	for address, w := range m.watches {
		close(w.cancel)
		delete(m.watches, address)
		m.metrics.ActiveWatches.Dec()
	}
	m.mux.Unlock()

	m.wg.Wait()
}

func (m *Monitor) run(w *watch) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.appConfig.Settlement.PollInterval)
	defer ticker.Stop()

	ceiling := time.NewTimer(m.appConfig.Settlement.WatchCeiling)
	defer ceiling.Stop()

	for {
		select {
		case <-w.cancel:
			return
		case <-ceiling.C:
			m.logger.Warn("[Watch] watch ceiling reached without settlement", map[string]string{
				"address": w.params.Address,
				"coin":    string(w.params.Cryptocurrency),
			})
			m.remove(w)
			return
		case <-ticker.C:
			m.tick(w)
		}
	}
}

// remove drops a watch from the registry if it is still the registered one.
func (m *Monitor) remove(w *watch) {
	m.mux.Lock()
	defer m.mux.Unlock()

	if current, ok := m.watches[w.params.Address]; ok && current == w {
		delete(m.watches, w.params.Address)
		m.metrics.ActiveWatches.Dec()
	}
}

func (m *Monitor) tick(w *watch) {
	balance, err := w.explorer.GetAddressBalance(w.params.Address)
	if err != nil {
		m.observeError(w, "GetAddressBalance", err)
		return
	}

	// tolerance accounts for network fees deducted on the sender's side
	required := w.params.ExpectedAmount * m.appConfig.Settlement.ToleranceBps / 10000
	if balance < required {
		m.metrics.PollTicks.WithLabelValues("awaiting_funds").Inc()
		return
	}

	tx, err := w.explorer.GetLatestTransaction(w.params.Address)
	if err != nil {
		m.observeError(w, "GetLatestTransaction", err)
		return
	}
	if tx == nil {
		m.metrics.PollTicks.WithLabelValues("awaiting_funds").Inc()
		return
	}

	var confirmations int64
	if tx.Confirmed {
		tip, err := w.explorer.GetTipHeight()
		if err != nil {
			m.observeError(w, "GetTipHeight", err)
			return
		}
		confirmations = tip - tx.BlockHeight + 1
		if confirmations < 0 {
			confirmations = 0
		}
	}

	if confirmations < 1 {
		m.metrics.PollTicks.WithLabelValues("unconfirmed").Inc()
		return
	}

	m.metrics.PollTicks.WithLabelValues("confirmed").Inc()
	timestamp := tx.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	w.params.OnConfirmed(ConfirmationEvent{
		TxHash:         tx.Hash,
		Address:        w.params.Address,
		Cryptocurrency: w.params.Cryptocurrency,
		Amount:         balance,
		Confirmations:  confirmations,
		BlockHeight:    tx.BlockHeight,
		Timestamp:      timestamp,
	})
}

func (m *Monitor) observeError(w *watch, step string, err error) {
	m.metrics.PollTicks.WithLabelValues("error").Inc()
	m.logger.Error("[Watch] explorer query failed", map[string]string{
		"address": w.params.Address,
		"coin":    string(w.params.Cryptocurrency),
		"step":    step,
		"error":   err.Error(),
	})
	if w.params.OnError != nil {
		w.params.OnError(&model.ExternalServiceError{
			Service: "chain_explorer",
			Err:     errors.Wrap(err, step),
		})
	}
}
