// Package reports contiene los casos de uso de reportes de inventario: contadores del
// dashboard, stock bajo, existencias por bodega, devoluciones por motivo y exportaciones.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/storeflow-api/internal/application/dto"
	"github.com/jhoicas/storeflow-api/internal/application/ledger"
	"github.com/jhoicas/storeflow-api/internal/domain"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
)

const (
	dashboardMonths = 6  // meses de la serie del dashboard, incluido el actual
	maxRangeMonths  = 36 // tope del reporte mensual
	monthLayout     = "2006-01"
	lowStockLimit   = 100
	exportMaxRows   = 10000
)

// UseCase casos de uso de reportes (solo lectura).
type UseCase struct {
	reportRepo repository.ReportRepository
	engine     *ledger.Engine
	pdf        StockPDFRenderer
	sheet      MovementSheetWriter
	loc        *time.Location
	now        func() time.Time
}

// NewUseCase construye el caso de uso. pdf y sheet pueden ser nil si no se exporta.
func NewUseCase(reportRepo repository.ReportRepository, engine *ledger.Engine, pdf StockPDFRenderer, sheet MovementSheetWriter, loc *time.Location) *UseCase {
	if loc == nil {
		loc = time.Local
	}
	return &UseCase{reportRepo: reportRepo, engine: engine, pdf: pdf, sheet: sheet, loc: loc, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (uc *UseCase) WithClock(now func() time.Time) *UseCase {
	uc.now = now
	return uc
}

// Dashboard construye el resumen: contadores y serie mensual de los últimos 6 meses.
// Las dos consultas corren en paralelo.
func (uc *UseCase) Dashboard(ctx context.Context) (*dto.DashboardSummaryDTO, error) {
	now := uc.now().In(uc.loc)
	to := monthStart(now).AddDate(0, 1, 0)
	from := to.AddDate(0, -dashboardMonths, 0)

	type countsResult struct {
		counts *repository.InventoryCounts
		err    error
	}
	type monthlyResult struct {
		rows []dto.MonthlyMovementDTO
		err  error
	}
	countsCh := make(chan countsResult, 1)
	monthlyCh := make(chan monthlyResult, 1)

	go func() {
		c, err := uc.reportRepo.Counts(ctx)
		countsCh <- countsResult{c, err}
	}()
	go func() {
		rows, err := uc.monthly(ctx, from, to)
		monthlyCh <- monthlyResult{rows, err}
	}()

	counts := <-countsCh
	monthly := <-monthlyCh
	if counts.err != nil {
		return nil, fmt.Errorf("dashboard: contadores: %w", counts.err)
	}
	if monthly.err != nil {
		return nil, fmt.Errorf("dashboard: serie mensual: %w", monthly.err)
	}

	return &dto.DashboardSummaryDTO{
		TotalProducts:   counts.counts.Products,
		TotalWarehouses: counts.counts.Warehouses,
		PendingReturns:  counts.counts.PendingReturns,
		LowStockAlerts:  counts.counts.LowStock,
		InventoryValue:  counts.counts.InventoryValue.Round(2),
		Monthly:         monthly.rows,
	}, nil
}

// LowStock productos en o bajo su mínimo, mayor déficit primero.
func (uc *UseCase) LowStock(ctx context.Context, limit int) ([]dto.LowStockDTO, error) {
	if limit <= 0 || limit > lowStockLimit {
		limit = lowStockLimit
	}
	items, err := uc.reportRepo.LowStock(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LowStockDTO, 0, len(items))
	for _, it := range items {
		out = append(out, dto.LowStockDTO{
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Category:  it.Category,
			Quantity:  it.Quantity,
			MinStock:  it.MinStock,
			Deficit:   it.MinStock - it.Quantity,
		})
	}
	return out, nil
}

// StockByWarehouse existencias netas por producto y bodega, derivadas del ledger.
func (uc *UseCase) StockByWarehouse(ctx context.Context) ([]dto.WarehouseStockDTO, error) {
	rows, err := uc.reportRepo.StockByWarehouse(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.WarehouseStockDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.WarehouseStockDTO{
			ProductID:     r.ProductID,
			ProductName:   r.ProductName,
			WarehouseID:   r.WarehouseID,
			WarehouseName: r.WarehouseName,
			Quantity:      r.Quantity,
			MinStock:      r.MinStock,
			LowStock:      r.Quantity <= r.MinStock,
		})
	}
	return out, nil
}

// ReturnsByReason conteo de devoluciones por motivo. status vacío = todas.
func (uc *UseCase) ReturnsByReason(ctx context.Context, status string) ([]dto.ReasonCountDTO, error) {
	st := entity.ReturnStatus(status)
	switch st {
	case "", entity.ReturnPending, entity.ReturnApproved, entity.ReturnRejected:
	default:
		return nil, fmt.Errorf("%w: estado %q", domain.ErrValidation, status)
	}
	rows, err := uc.reportRepo.ReturnsByReason(ctx, st)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ReasonCountDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.ReasonCountDTO{Reason: string(r.Reason), Count: r.Count})
	}
	return out, nil
}

// MonthlyMovements entradas y salidas por mes entre fromMonth y toMonth (YYYY-MM, inclusive).
// Vacíos = últimos 6 meses. Los meses sin movimientos salen en cero.
func (uc *UseCase) MonthlyMovements(ctx context.Context, fromMonth, toMonth string) ([]dto.MonthlyMovementDTO, error) {
	now := uc.now().In(uc.loc)
	to := monthStart(now)
	if toMonth != "" {
		t, err := time.ParseInLocation(monthLayout, toMonth, uc.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: mes final %q", domain.ErrValidation, toMonth)
		}
		to = t
	}
	from := to.AddDate(0, -(dashboardMonths - 1), 0)
	if fromMonth != "" {
		t, err := time.ParseInLocation(monthLayout, fromMonth, uc.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: mes inicial %q", domain.ErrValidation, fromMonth)
		}
		from = t
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: rango de meses invertido", domain.ErrValidation)
	}
	end := to.AddDate(0, 1, 0)
	if end.After(from.AddDate(0, maxRangeMonths, 0)) {
		return nil, fmt.Errorf("%w: el rango no puede superar %d meses", domain.ErrValidation, maxRangeMonths)
	}
	return uc.monthly(ctx, from, end)
}

// ExportMovementsXLSX historial filtrado como hoja de cálculo.
func (uc *UseCase) ExportMovementsXLSX(ctx context.Context, filter repository.MovementFilter) ([]byte, error) {
	if uc.sheet == nil {
		return nil, fmt.Errorf("exportación xlsx no configurada")
	}
	filter.Limit = ledger.MaxPageSize
	filter.Offset = 0
	var all []*entity.Movement
	for len(all) < exportMaxRows {
		batch, err := uc.engine.ListMovements(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < filter.Limit {
			break
		}
		filter.Offset += len(batch)
	}
	return uc.sheet.WriteMovements(ctx, all)
}

// ExportStockPDF reporte de existencias: resumen, stock bajo y saldo por bodega.
func (uc *UseCase) ExportStockPDF(ctx context.Context) ([]byte, error) {
	if uc.pdf == nil {
		return nil, fmt.Errorf("exportación pdf no configurada")
	}
	counts, err := uc.reportRepo.Counts(ctx)
	if err != nil {
		return nil, err
	}
	low, err := uc.LowStock(ctx, lowStockLimit)
	if err != nil {
		return nil, err
	}
	byWarehouse, err := uc.StockByWarehouse(ctx)
	if err != nil {
		return nil, err
	}
	return uc.pdf.RenderStockReport(ctx, StockReport{
		GeneratedAt:    uc.now().In(uc.loc),
		TotalProducts:  counts.Products,
		InventoryValue: counts.InventoryValue,
		LowStock:       low,
		ByWarehouse:    byWarehouse,
	})
}

// monthly consulta [from, to) y rellena con ceros los meses sin datos.
func (uc *UseCase) monthly(ctx context.Context, from, to time.Time) ([]dto.MonthlyMovementDTO, error) {
	rows, err := uc.reportRepo.MonthlyMovements(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byMonth := make(map[string]repository.MonthlyMovement, len(rows))
	for _, r := range rows {
		byMonth[r.Month] = r
	}
	var out []dto.MonthlyMovementDTO
	for m := from; m.Before(to); m = m.AddDate(0, 1, 0) {
		key := m.Format(monthLayout)
		r := byMonth[key]
		out = append(out, dto.MonthlyMovementDTO{Month: key, In: r.In, Out: r.Out})
	}
	return out, nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
