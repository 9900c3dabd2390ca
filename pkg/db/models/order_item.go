package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem references one requested product. One row is created per
// request entry; quantities are not stored, so duplicate product ids in a
// request produce duplicate rows.
type OrderItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
