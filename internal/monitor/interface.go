package monitor

import (
	"time"

	"github.com/orthoplus/crypto-settlement/internal/model"
)

// ConfirmationEvent carries what a poll tick observed for a watched address.
type ConfirmationEvent struct {
	TxHash         string
	Address        string
	Cryptocurrency model.CryptoCurrency
	Amount         int64
	Confirmations  int64
	BlockHeight    int64
	Timestamp      time.Time
}

// WatchParams registers a polling job for one address on behalf of one
// open transaction. OnConfirmed fires on every tick that observes at least
// one confirmation; the caller decides when the watch is done and unwatches.
type WatchParams struct {
	Address        string
	Cryptocurrency model.CryptoCurrency
	ExpectedAmount int64
	OnConfirmed    func(ConfirmationEvent)
	OnError        func(error)
}

type IMonitor interface {
	// Watch starts polling for the given address. Watching an address that
	// is already monitored is a no-op with a logged warning.
	Watch(params WatchParams) error
	// Unwatch cancels the watch for an address. Unknown addresses are a
	// safe no-op.
	Unwatch(address string)
	// Stop cancels every active watch.
	Stop()
}
