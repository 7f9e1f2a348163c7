package cryptoconfig

import (
	"gorm.io/gorm"

	"github.com/orthoplus/crypto-settlement/internal/model"
)

type IStore interface {
	Create(tx *gorm.DB, config *model.CryptoConfig) (*model.CryptoConfig, error)
	GetByClinicID(tx *gorm.DB, clinicID uint) (*model.CryptoConfig, error)
	ListActive(tx *gorm.DB) ([]model.CryptoConfig, error)
	Update(tx *gorm.DB, config *model.CryptoConfig) error
}
