package oracle

import (
	"github.com/shopspring/decimal"

	"github.com/orthoplus/crypto-settlement/internal/model"
)

type IOracle interface {
	// GetRate returns the current coin->fiat spot rate. It degrades to the
	// last-known cached rate, then to a static fallback, rather than fail
	// the settlement path.
	GetRate(coin model.CryptoCurrency) (decimal.Decimal, error)

	// RefreshAll re-fetches rates for all supported coins; failures keep
	// the cached values.
	RefreshAll()
}
