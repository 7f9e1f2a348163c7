package cryptotransaction

import (
	"time"

	"gorm.io/gorm"

	"github.com/orthoplus/crypto-settlement/internal/model"
)

type ListFilter struct {
	Limit    int
	Offset   int
	ClinicID uint
	Status   string
	Coin     string
	Address  string
}

type IStore interface {
	Create(tx *gorm.DB, txn *model.CryptoTransaction) (*model.CryptoTransaction, error)
	GetByInvoiceID(tx *gorm.DB, invoiceID string) (*model.CryptoTransaction, error)
	GetByIDForUpdate(tx *gorm.DB, id uint) (*model.CryptoTransaction, error)
	GetByHashForUpdate(tx *gorm.DB, hash string) (*model.CryptoTransaction, error)
	GetOpenByAddressForUpdate(tx *gorm.DB, address string, coin model.CryptoCurrency) (*model.CryptoTransaction, error)
	ListOpen(tx *gorm.DB) ([]model.CryptoTransaction, error)
	ListExpirable(tx *gorm.DB, now time.Time) ([]model.CryptoTransaction, error)
	List(tx *gorm.DB, filter ListFilter) ([]model.CryptoTransaction, int64, error)
	Update(tx *gorm.DB, txn *model.CryptoTransaction) error
}
