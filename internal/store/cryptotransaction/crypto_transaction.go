package cryptotransaction

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orthoplus/crypto-settlement/internal/model"
)

type Store struct {
}

func New() IStore {
	return &Store{}
}

func (s *Store) Create(tx *gorm.DB, txn *model.CryptoTransaction) (*model.CryptoTransaction, error) {
	return txn, tx.Create(txn).Error
}

func (s *Store) GetByInvoiceID(tx *gorm.DB, invoiceID string) (*model.CryptoTransaction, error) {
	var txn model.CryptoTransaction
	err := tx.Where("invoice_id = ?", invoiceID).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetByIDForUpdate reloads a transaction under a row lock so the expiry
// sweep cannot race a concurrent confirmation on the same row.
func (s *Store) GetByIDForUpdate(tx *gorm.DB, id uint) (*model.CryptoTransaction, error) {
	var txn model.CryptoTransaction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&txn, id).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetByHashForUpdate locks the row: the webhook path and the polling path
// may race on the same transaction, and the confirm sequence must run
// under mutual exclusion.
func (s *Store) GetByHashForUpdate(tx *gorm.DB, hash string) (*model.CryptoTransaction, error) {
	var txn model.CryptoTransaction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("transaction_hash = ?", hash).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetOpenByAddressForUpdate finds the invoice still awaiting funds on an
// address. The first confirmation event arrives before the transaction
// has a hash, so lookup falls back to the watched address.
func (s *Store) GetOpenByAddressForUpdate(tx *gorm.DB, address string, coin model.CryptoCurrency) (*model.CryptoTransaction, error) {
	var txn model.CryptoTransaction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("wallet_address = ? AND cryptocurrency = ? AND status IN ?",
			address, coin,
			[]model.TransactionStatus{model.TransactionStatusPending, model.TransactionStatusProcessing}).
		Order("created_at ASC").
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (s *Store) ListOpen(tx *gorm.DB) ([]model.CryptoTransaction, error) {
	var txns []model.CryptoTransaction
	err := tx.Where("status IN ?",
		[]model.TransactionStatus{model.TransactionStatusPending, model.TransactionStatusProcessing}).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (s *Store) ListExpirable(tx *gorm.DB, now time.Time) ([]model.CryptoTransaction, error) {
	var txns []model.CryptoTransaction
	err := tx.Where("status IN ? AND expires_at < ? AND confirmations = 0",
		[]model.TransactionStatus{model.TransactionStatusPending, model.TransactionStatusProcessing},
		now).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (s *Store) List(tx *gorm.DB, filter ListFilter) ([]model.CryptoTransaction, int64, error) {
	query := tx.Model(&model.CryptoTransaction{})

	if filter.ClinicID != 0 {
		query = query.Where("clinic_id = ?", filter.ClinicID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Coin != "" {
		query = query.Where("cryptocurrency = ?", filter.Coin)
	}
	if filter.Address != "" {
		query = query.Where("wallet_address = ?", filter.Address)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txns []model.CryptoTransaction
	err := query.Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&txns).Error
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func (s *Store) Update(tx *gorm.DB, txn *model.CryptoTransaction) error {
	return tx.Save(txn).Error
}
