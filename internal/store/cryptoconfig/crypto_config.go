package cryptoconfig

import (
	"gorm.io/gorm"

	"github.com/orthoplus/crypto-settlement/internal/model"
)

type Store struct {
}

func New() IStore {
	return &Store{}
}

func (s *Store) Create(tx *gorm.DB, config *model.CryptoConfig) (*model.CryptoConfig, error) {
	return config, tx.Create(config).Error
}

func (s *Store) GetByClinicID(tx *gorm.DB, clinicID uint) (*model.CryptoConfig, error) {
	var config model.CryptoConfig
	err := tx.Where("clinic_id = ?", clinicID).First(&config).Error
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func (s *Store) ListActive(tx *gorm.DB) ([]model.CryptoConfig, error) {
	var configs []model.CryptoConfig
	err := tx.Where("active = ?", true).Find(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (s *Store) Update(tx *gorm.DB, config *model.CryptoConfig) error {
	return tx.Save(config).Error
}
