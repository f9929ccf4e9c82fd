package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/storeflow-api/internal/application/dto"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
)

// StockReport datos del reporte de existencias en PDF.
type StockReport struct {
	GeneratedAt    time.Time
	TotalProducts  int
	InventoryValue decimal.Decimal
	LowStock       []dto.LowStockDTO
	ByWarehouse    []dto.WarehouseStockDTO
}

// StockPDFRenderer genera el PDF del reporte de existencias.
type StockPDFRenderer interface {
	RenderStockReport(ctx context.Context, report StockReport) ([]byte, error)
}

// MovementSheetWriter genera la hoja de cálculo del historial de movimientos.
type MovementSheetWriter interface {
	WriteMovements(ctx context.Context, movements []*entity.Movement) ([]byte, error)
}
