package dto

import "github.com/shopspring/decimal"

// DashboardSummaryDTO respuesta de GET /api/reports/dashboard.
type DashboardSummaryDTO struct {
	TotalProducts   int             `json:"total_products"`
	TotalWarehouses int             `json:"total_warehouses"`
	PendingReturns  int             `json:"pending_returns"`
	LowStockAlerts  int             `json:"low_stock_alerts"`
	InventoryValue  decimal.Decimal `json:"inventory_value"` // Σ precio × saldo

	// Últimos 6 meses incluyendo el actual, meses sin movimientos en cero
	Monthly []MonthlyMovementDTO `json:"monthly"`
}

// MonthlyMovementDTO entradas y salidas de un mes.
type MonthlyMovementDTO struct {
	Month string `json:"month"` // YYYY-MM
	In    int64  `json:"in"`
	Out   int64  `json:"out"`
}

// LowStockDTO producto en o bajo su mínimo.
type LowStockDTO struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Quantity  int64  `json:"quantity"`
	MinStock  int64  `json:"min_stock"`
	Deficit   int64  `json:"deficit"`
}

// WarehouseStockDTO saldo neto de un producto en una bodega.
type WarehouseStockDTO struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	WarehouseID   string `json:"warehouse_id"`
	WarehouseName string `json:"warehouse_name"`
	Quantity      int64  `json:"quantity"`
	MinStock      int64  `json:"min_stock"`
	LowStock      bool   `json:"low_stock"`
}

// ReasonCountDTO devoluciones por motivo.
type ReasonCountDTO struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}
