package webhookevent

import (
	"gorm.io/gorm"

	"github.com/orthoplus/crypto-settlement/internal/model"
)

type IStore interface {
	Create(tx *gorm.DB, event *model.WebhookEvent) (*model.WebhookEvent, error)
	ListByHash(tx *gorm.DB, hash string) ([]model.WebhookEvent, error)
}
