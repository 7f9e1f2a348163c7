package store

import (
	"github.com/orthoplus/crypto-settlement/internal/store/cryptoconfig"
	"github.com/orthoplus/crypto-settlement/internal/store/cryptotransaction"
	"github.com/orthoplus/crypto-settlement/internal/store/cryptowallet"
	"github.com/orthoplus/crypto-settlement/internal/store/webhookevent"
)

type Store struct {
	CryptoConfig      cryptoconfig.IStore
	CryptoWallet      cryptowallet.IStore
	CryptoTransaction cryptotransaction.IStore
	WebhookEvent      webhookevent.IStore
}

func New() *Store {
	return &Store{
		CryptoConfig:      cryptoconfig.New(),
		CryptoWallet:      cryptowallet.New(),
		CryptoTransaction: cryptotransaction.New(),
		WebhookEvent:      webhookevent.New(),
	}
}
