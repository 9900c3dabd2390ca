package products

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price TEXT NOT NULL,
  is_archived INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create products table: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Exec("DELETE FROM products").Error
	})
	return db
}

func mustCreateProduct(t *testing.T, db *gorm.DB, name string, price string) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:      uuid.New(),
		StoreID: uuid.New(),
		Name:    name,
		Price:   decimal.RequireFromString(price),
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func TestFindByIDReturnsProduct(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)

	created := mustCreateProduct(t, db, "Ceramic Mug", "19.99")

	found, err := repo.FindByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("find product: %v", err)
	}
	if found.Name != "Ceramic Mug" {
		t.Fatalf("unexpected name %q", found.Name)
	}
	if !found.Price.Equal(decimal.RequireFromString("19.99")) {
		t.Fatalf("unexpected price %s", found.Price)
	}
}

func TestFindByIDUnknownProduct(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}
