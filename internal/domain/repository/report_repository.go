package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
)

// InventoryCounts contadores del dashboard.
type InventoryCounts struct {
	Products       int
	Warehouses     int
	PendingReturns int
	LowStock       int
	InventoryValue decimal.Decimal // Σ price × quantity
}

// LowStockItem producto en o por debajo de su mínimo.
type LowStockItem struct {
	ProductID string
	SKU       string
	Name      string
	Category  string
	Quantity  int64
	MinStock  int64
}

// WarehouseStock saldo neto de un producto en una bodega, derivado del ledger.
type WarehouseStock struct {
	ProductID     string
	ProductName   string
	WarehouseID   string
	WarehouseName string
	Quantity      int64
	MinStock      int64
}

// ReasonCount devoluciones por motivo.
type ReasonCount struct {
	Reason entity.ReturnReason
	Count  int
}

// MonthlyMovement totales de entradas y salidas de un mes (YYYY-MM).
type MonthlyMovement struct {
	Month string
	In    int64
	Out   int64
}

// ReportRepository consultas de solo lectura para reportes y dashboard.
type ReportRepository interface {
	Counts(ctx context.Context) (*InventoryCounts, error)
	// LowStock ordena por mayor déficit (MinStock - Quantity) primero.
	LowStock(ctx context.Context, limit int) ([]LowStockItem, error)
	StockByWarehouse(ctx context.Context) ([]WarehouseStock, error)
	// ReturnsByReason status vacío = todas.
	ReturnsByReason(ctx context.Context, status entity.ReturnStatus) ([]ReasonCount, error)
	// MonthlyMovements agrupa por mes calendario en [from, to).
	MonthlyMovements(ctx context.Context, from, to time.Time) ([]MonthlyMovement, error)
}
