package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto.
// OpeningStock > 0 registra una entrada inicial en WarehouseID.
type CreateProductRequest struct {
	SKU          string          `json:"sku" validate:"required,min=1,max=100"`
	Name         string          `json:"name" validate:"required,min=1,max=200"`
	Category     string          `json:"category"`
	Price        decimal.Decimal `json:"price"`
	MinStock     int64           `json:"min_stock" validate:"min=0"`
	ImageURL     string          `json:"image_url"`
	OpeningStock int64           `json:"opening_stock" validate:"min=0"`
	WarehouseID  string          `json:"warehouse_id,omitempty"`
}

// UpdateProductRequest entrada para actualizar un producto (nunca el saldo).
type UpdateProductRequest struct {
	SKU      *string          `json:"sku" validate:"omitempty,min=1,max=100"`
	Name     *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Category *string          `json:"category"`
	Price    *decimal.Decimal `json:"price"`
	MinStock *int64           `json:"min_stock"`
	ImageURL *string          `json:"image_url"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	MinStock  int64           `json:"min_stock"`
	Quantity  int64           `json:"quantity"`
	LowStock  bool            `json:"low_stock"`
	ImageURL  string          `json:"image_url"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
