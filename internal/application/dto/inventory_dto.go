package dto

import "time"

// StockInRequest body de POST /api/inventory/stock-in.
type StockInRequest struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int64  `json:"quantity"`
	Note        string `json:"note,omitempty"`
}

// StockOutRequest body de POST /api/inventory/stock-out.
type StockOutRequest struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int64  `json:"quantity"`
	Note        string `json:"note,omitempty"`
}

// TransferRequest body de POST /api/inventory/transfer.
type TransferRequest struct {
	ProductID       string `json:"product_id"`
	FromWarehouseID string `json:"from_warehouse_id"`
	ToWarehouseID   string `json:"to_warehouse_id"`
	Quantity        int64  `json:"quantity"`
	Note            string `json:"note,omitempty"`
}

// RegisterMovementRequest body de POST /api/inventory/movements (forma genérica con type).
type RegisterMovementRequest struct {
	Type            string `json:"type"` // in | out | transfer
	ProductID       string `json:"product_id"`
	WarehouseID     string `json:"warehouse_id,omitempty"`
	FromWarehouseID string `json:"from_warehouse_id,omitempty"`
	ToWarehouseID   string `json:"to_warehouse_id,omitempty"`
	Quantity        int64  `json:"quantity"`
	Note            string `json:"note,omitempty"`
}

// MovementResponse registro del ledger.
type MovementResponse struct {
	ID              string    `json:"id"`
	ProductID       string    `json:"product_id"`
	Type            string    `json:"type"`
	Quantity        int64     `json:"quantity"`
	WarehouseID     string    `json:"warehouse_id,omitempty"`
	FromWarehouseID string    `json:"from_warehouse_id,omitempty"`
	ToWarehouseID   string    `json:"to_warehouse_id,omitempty"`
	BalanceAfter    int64     `json:"balance_after"`
	Note            string    `json:"note,omitempty"`
	Date            string    `json:"date"`
	CreatedAt       time.Time `json:"created_at"`
	CreatedBy       string    `json:"created_by,omitempty"`
}

// MovementListResponse historial paginado.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// FeedResponse vista de movimientos recientes.
type FeedResponse struct {
	Items []MovementResponse `json:"items"`
}
