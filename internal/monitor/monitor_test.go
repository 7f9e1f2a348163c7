package monitor

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orthoplus/crypto-settlement/internal/explorer"
	"github.com/orthoplus/crypto-settlement/internal/model"
	"github.com/orthoplus/crypto-settlement/internal/monitoring"
	"github.com/orthoplus/crypto-settlement/internal/types/environments"
	"github.com/orthoplus/crypto-settlement/internal/utils/config"
	"github.com/orthoplus/crypto-settlement/internal/utils/logger"
)

type fakeExplorer struct {
	mux     sync.Mutex
	balance int64
	tip     int64
	latest  *explorer.TxInfo
	err     error
}

func (f *fakeExplorer) set(balance int64, tip int64, latest *explorer.TxInfo, err error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.balance, f.tip, f.latest, f.err = balance, tip, latest, err
}

func (f *fakeExplorer) GetAddressBalance(address string) (int64, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.balance, f.err
}

func (f *fakeExplorer) GetLatestTransaction(address string) (*explorer.TxInfo, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.latest, f.err
}

func (f *fakeExplorer) GetTipHeight() (int64, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.tip, f.err
}

func newTestMonitor(t *testing.T, exp explorer.IExplorer) IMonitor {
	t.Helper()

	registry := explorer.NewRegistry()
	registry.Register(model.CryptoCurrencyBTC, exp)

	appConfig := &config.AppConfig{
		Settlement: config.SettlementConfig{
			PollInterval: 10 * time.Millisecond,
			WatchCeiling: 5 * time.Second,
			ToleranceBps: 9500,
		},
	}
	metrics := monitoring.NewSettlementMetrics(prometheus.NewRegistry())

	m := New(registry, appConfig, logger.New(environments.Test), metrics)
	t.Cleanup(m.Stop)
	return m
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestMonitor_FiresOnceConfirmed(t *testing.T) {
	exp := &fakeExplorer{}
	exp.set(200000, 860000, &explorer.TxInfo{
		Hash:        "f4184fc596403b9d638783cf57adfe4c75c605f6356fbc91338530e9831e9e16",
		BlockHeight: 859998,
		Confirmed:   true,
		Timestamp:   time.Now(),
	}, nil)

	var events []ConfirmationEvent
	var mux sync.Mutex

	m := newTestMonitor(t, exp)
	err := m.Watch(WatchParams{
		Address:        "bc1qclinic",
		Cryptocurrency: model.CryptoCurrencyBTC,
		ExpectedAmount: 200000,
		OnConfirmed: func(ev ConfirmationEvent) {
			mux.Lock()
			events = append(events, ev)
			mux.Unlock()
		},
	})
	require.NoError(t, err)

	ok := waitFor(t, time.Second, func() bool {
		mux.Lock()
		defer mux.Unlock()
		return len(events) > 0
	})
	require.True(t, ok, "expected a confirmation event")

	mux.Lock()
	defer mux.Unlock()
	assert.Equal(t, "f4184fc596403b9d638783cf57adfe4c75c605f6356fbc91338530e9831e9e16", events[0].TxHash)
	assert.Equal(t, int64(3), events[0].Confirmations)
	assert.Equal(t, int64(200000), events[0].Amount)
	assert.Equal(t, model.CryptoCurrencyBTC, events[0].Cryptocurrency)
}

func TestMonitor_ToleranceGatesBalance(t *testing.T) {
	exp := &fakeExplorer{}
	// 94% of the expected amount, just under the 95% tolerance
	exp.set(188000, 860000, &explorer.TxInfo{Hash: "abc", BlockHeight: 859999, Confirmed: true}, nil)

	var fired atomic.Int64
	m := newTestMonitor(t, exp)
	err := m.Watch(WatchParams{
		Address:        "bc1qclinic",
		Cryptocurrency: model.CryptoCurrencyBTC,
		ExpectedAmount: 200000,
		OnConfirmed:    func(ConfirmationEvent) { fired.Add(1) },
	})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(0), fired.Load())

	// 95% exactly clears the gate
	exp.set(190000, 860000, &explorer.TxInfo{Hash: "abc", BlockHeight: 859999, Confirmed: true}, nil)
	ok := waitFor(t, time.Second, func() bool { return fired.Load() > 0 })
	assert.True(t, ok, "expected confirmation once balance reached tolerance")
}

func TestMonitor_DoesNotFireAtZeroConfirmations(t *testing.T) {
	exp := &fakeExplorer{}
	exp.set(200000, 860000, &explorer.TxInfo{Hash: "abc", Confirmed: false}, nil)

	var fired atomic.Int64
	m := newTestMonitor(t, exp)
	err := m.Watch(WatchParams{
		Address:        "bc1qclinic",
		Cryptocurrency: model.CryptoCurrencyBTC,
		ExpectedAmount: 200000,
		OnConfirmed:    func(ConfirmationEvent) { fired.Add(1) },
	})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(0), fired.Load())

	// first confirmation arrives
	exp.set(200000, 860000, &explorer.TxInfo{Hash: "abc", BlockHeight: 860000, Confirmed: true}, nil)
	ok := waitFor(t, time.Second, func() bool { return fired.Load() > 0 })
	assert.True(t, ok, "expected confirmation once the transaction was mined")
}

func TestMonitor_ErrorKeepsPolling(t *testing.T) {
	exp := &fakeExplorer{}
	exp.set(0, 0, nil, errors.New("explorer down"))

	var errs atomic.Int64
	var fired atomic.Int64
	m := newTestMonitor(t, exp)
	err := m.Watch(WatchParams{
		Address:        "bc1qclinic",
		Cryptocurrency: model.CryptoCurrencyBTC,
		ExpectedAmount: 200000,
		OnConfirmed:    func(ConfirmationEvent) { fired.Add(1) },
		OnError: func(err error) {
			var extErr *model.ExternalServiceError
			if errors.As(err, &extErr) {
				errs.Add(1)
			}
		},
	})
	require.NoError(t, err)

	require.True(t, waitFor(t, time.Second, func() bool { return errs.Load() > 0 }))

	// upstream recovers and the same watch picks it up
	exp.set(200000, 860000, &explorer.TxInfo{Hash: "abc", BlockHeight: 860000, Confirmed: true}, nil)
	ok := waitFor(t, time.Second, func() bool { return fired.Load() > 0 })
	assert.True(t, ok, "expected the watch to survive transient failures")
}

func TestMonitor_DuplicateWatchIsNoOp(t *testing.T) {
	exp := &fakeExplorer{}
	exp.set(200000, 860000, &explorer.TxInfo{Hash: "abc", BlockHeight: 860000, Confirmed: true}, nil)

	var first, second atomic.Int64
	m := newTestMonitor(t, exp)

	require.NoError(t, m.Watch(WatchParams{
		Address:        "bc1qclinic",
		Cryptocurrency: model.CryptoCurrencyBTC,
		ExpectedAmount: 200000,
		OnConfirmed:    func(ConfirmationEvent) { first.Add(1) },
	}))
	require.NoError(t, m.Watch(WatchParams{
		Address:        "bc1qclinic",
		Cryptocurrency: model.CryptoCurrencyBTC,
		ExpectedAmount: 200000,
		OnConfirmed:    func(ConfirmationEvent) { second.Add(1) },
	}))

	require.True(t, waitFor(t, time.Second, func() bool { return first.Load() > 0 }))
	assert.Equal(t, int64(0), second.Load(), "duplicate watch must not register a second poller")
}

func TestMonitor_WatchUnknownCoin(t *testing.T) {
	m := newTestMonitor(t, &fakeExplorer{})

	err := m.Watch(WatchParams{
		Address:        "0xabc",
		Cryptocurrency: model.CryptoCurrencyETH,
		ExpectedAmount: 1,
		OnConfirmed:    func(ConfirmationEvent) {},
	})
	require.Error(t, err)

	var validationErr *model.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestMonitor_UnwatchStopsPolling(t *testing.T) {
	exp := &fakeExplorer{}
	exp.set(200000, 860000, &explorer.TxInfo{Hash: "abc", BlockHeight: 860000, Confirmed: true}, nil)

	var fired atomic.Int64
	m := newTestMonitor(t, exp)
	require.NoError(t, m.Watch(WatchParams{
		Address:        "bc1qclinic",
		Cryptocurrency: model.CryptoCurrencyBTC,
		ExpectedAmount: 200000,
		OnConfirmed:    func(ConfirmationEvent) { fired.Add(1) },
	}))
	require.True(t, waitFor(t, time.Second, func() bool { return fired.Load() > 0 }))

	m.Unwatch("bc1qclinic")
	settled := fired.Load()
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, fired.Load(), settled+1, "polling must stop after unwatch")

	// unknown address is a safe no-op
	m.Unwatch("bc1qunknown")
}
