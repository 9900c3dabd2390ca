package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/enums"
)

// Repository exposes order persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	AttachCheckoutSession(ctx context.Context, orderID uuid.UUID, sessionID string) error
	MarkPaid(ctx context.Context, orderID uuid.UUID) error
	MarkCanceled(ctx context.Context, orderID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create persists the order together with its item rows.
func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) AttachCheckoutSession(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	return r.updateColumns(ctx, orderID, map[string]any{
		"checkout_session_id": sessionID,
	})
}

func (r *repository) MarkPaid(ctx context.Context, orderID uuid.UUID) error {
	return r.updateColumns(ctx, orderID, map[string]any{
		"is_paid": true,
		"status":  enums.OrderStatusPaid,
	})
}

func (r *repository) MarkCanceled(ctx context.Context, orderID uuid.UUID) error {
	return r.updateColumns(ctx, orderID, map[string]any{
		"status": enums.OrderStatusCanceled,
	})
}

func (r *repository) updateColumns(ctx context.Context, orderID uuid.UUID, values map[string]any) error {
	values["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
