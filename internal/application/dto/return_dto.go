package dto

import "time"

// CreateReturnRequest body de POST /api/returns.
type CreateReturnRequest struct {
	InvoiceRef  string `json:"invoice_ref" validate:"required"`
	ProductID   string `json:"product_id" validate:"required"`
	WarehouseID string `json:"warehouse_id,omitempty"`
	Quantity    int64  `json:"quantity" validate:"min=1"`
	Reason      string `json:"reason" validate:"oneof=damaged wrong_item other"`
}

// ReturnResponse salida de una devolución.
type ReturnResponse struct {
	ID          string     `json:"id"`
	InvoiceRef  string     `json:"invoice_ref"`
	ProductID   string     `json:"product_id"`
	WarehouseID string     `json:"warehouse_id,omitempty"`
	Quantity    int64      `json:"quantity"`
	Reason      string     `json:"reason"`
	Status      string     `json:"status"`
	Date        string     `json:"date"`
	MovementID  string     `json:"movement_id,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`
	ReviewedBy  string     `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ReturnListResponse lista paginada de devoluciones.
type ReturnListResponse struct {
	Items []ReturnResponse `json:"items"`
	Page  PageResponse     `json:"page"`
}
