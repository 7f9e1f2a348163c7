package cryptowallet

import (
	"gorm.io/gorm"

	"github.com/orthoplus/crypto-settlement/internal/model"
)

type IStore interface {
	Create(tx *gorm.DB, wallet *model.CryptoWallet) (*model.CryptoWallet, error)
	GetByID(tx *gorm.DB, id uint) (*model.CryptoWallet, error)
	GetByIDForUpdate(tx *gorm.DB, id uint) (*model.CryptoWallet, error)
	GetByAddressAndCoin(tx *gorm.DB, address string, coin model.CryptoCurrency) (*model.CryptoWallet, error)
	GetByClinicAndCoin(tx *gorm.DB, clinicID uint, coin model.CryptoCurrency) (*model.CryptoWallet, error)
	Update(tx *gorm.DB, wallet *model.CryptoWallet) error
}
