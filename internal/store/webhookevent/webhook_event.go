package webhookevent

import (
	"gorm.io/gorm"

	"github.com/orthoplus/crypto-settlement/internal/model"
)

type Store struct {
}

func New() IStore {
	return &Store{}
}

func (s *Store) Create(tx *gorm.DB, event *model.WebhookEvent) (*model.WebhookEvent, error) {
	return event, tx.Create(event).Error
}

func (s *Store) ListByHash(tx *gorm.DB, hash string) ([]model.WebhookEvent, error) {
	var events []model.WebhookEvent
	err := tx.Where("transaction_hash = ?", hash).Order("created_at ASC").Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
