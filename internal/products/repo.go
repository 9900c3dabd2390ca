package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
)

// Repository handles product reads. The checkout flow never mutates
// products.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to product operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a product by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
