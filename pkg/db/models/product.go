package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a purchasable storefront listing. Prices are stored in
// decimal store-native units; conversion to minor units happens at checkout.
type Product struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID    uuid.UUID       `gorm:"column:store_id;type:uuid;not null"`
	Name       string          `gorm:"column:name;not null"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	IsArchived bool            `gorm:"column:is_archived;not null;default:false"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
