package explorer

import (
	"time"
)

// TxInfo describes the most recent transaction observed for an address.
type TxInfo struct {
	Hash        string
	BlockHeight int64
	Confirmed   bool
	Timestamp   time.Time
	Fee         int64
}

// IExplorer is the contract shared by all coin families: UTXO coins answer
// it with address/UTXO lookups, account coins with balance-of-account
// lookups. Balances are returned in the coin's minor units.
type IExplorer interface {
	GetAddressBalance(address string) (int64, error)
	GetLatestTransaction(address string) (*TxInfo, error)
	GetTipHeight() (int64, error)
}
