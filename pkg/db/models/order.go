package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/storefront-labs/storefront-backend/pkg/enums"
)

// Order is the merchant's record of a checkout, independent of the payment
// provider's session state. IsPaid flips only when the provider confirms
// payment via webhook.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID           uuid.UUID         `gorm:"column:store_id;type:uuid;not null"`
	IsPaid            bool              `gorm:"column:is_paid;not null;default:false"`
	Status            enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	CheckoutSessionID *string           `gorm:"column:checkout_session_id"`
	Items             []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
