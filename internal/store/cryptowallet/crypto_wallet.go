package cryptowallet

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orthoplus/crypto-settlement/internal/model"
)

type Store struct {
}

func New() IStore {
	return &Store{}
}

func (s *Store) Create(tx *gorm.DB, wallet *model.CryptoWallet) (*model.CryptoWallet, error) {
	return wallet, tx.Create(wallet).Error
}

func (s *Store) GetByID(tx *gorm.DB, id uint) (*model.CryptoWallet, error) {
	var wallet model.CryptoWallet
	err := tx.First(&wallet, id).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetByIDForUpdate takes a row lock so concurrent settlement paths cannot
// interleave balance applications on the same wallet.
func (s *Store) GetByIDForUpdate(tx *gorm.DB, id uint) (*model.CryptoWallet, error) {
	var wallet model.CryptoWallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wallet, id).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *Store) GetByAddressAndCoin(tx *gorm.DB, address string, coin model.CryptoCurrency) (*model.CryptoWallet, error) {
	var wallet model.CryptoWallet
	err := tx.Where("address = ? AND cryptocurrency = ?", address, coin).First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *Store) GetByClinicAndCoin(tx *gorm.DB, clinicID uint, coin model.CryptoCurrency) (*model.CryptoWallet, error) {
	var wallet model.CryptoWallet
	err := tx.Where("clinic_id = ? AND cryptocurrency = ?", clinicID, coin).First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *Store) Update(tx *gorm.DB, wallet *model.CryptoWallet) error {
	return tx.Save(wallet).Error
}
