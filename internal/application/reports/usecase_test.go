package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/storeflow-api/internal/application/ledger"
	"github.com/jhoicas/storeflow-api/internal/application/reports"
	"github.com/jhoicas/storeflow-api/internal/domain"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
	"github.com/jhoicas/storeflow-api/internal/infrastructure/memory"
)

type stubPDF struct{ got reports.StockReport }

func (s *stubPDF) RenderStockReport(_ context.Context, r reports.StockReport) ([]byte, error) {
	s.got = r
	return []byte("%PDF-stub"), nil
}

type stubSheet struct{ rows int }

func (s *stubSheet) WriteMovements(_ context.Context, m []*entity.Movement) ([]byte, error) {
	s.rows = len(m)
	return []byte("xlsx"), nil
}

// fixture: P1 (min 5) y P2 (min 0) con movimientos en mayo y julio de 2023.
func fixture(t *testing.T) (*reports.UseCase, *stubPDF, *stubSheet) {
	t.Helper()
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.Warehouses().Create(ctx, &entity.Warehouse{ID: "WH01", Name: "Central"}))
	require.NoError(t, s.Warehouses().Create(ctx, &entity.Warehouse{ID: "WH02", Name: "Norte"}))
	require.NoError(t, s.Products().Create(ctx, &entity.Product{ID: "P1", SKU: "A-1", Name: "Martillo", Price: decimal.NewFromInt(1000), MinStock: 5}))
	require.NoError(t, s.Products().Create(ctx, &entity.Product{ID: "P2", SKU: "A-2", Name: "Clavo", Price: decimal.NewFromInt(10)}))

	clock := time.Date(2023, 5, 10, 12, 0, 0, 0, time.UTC)
	engine := ledger.NewEngine(s, s.Warehouses(), s.Movements(),
		ledger.WithLocation(time.UTC),
		ledger.WithClock(func() time.Time { return clock }),
		ledger.WithRetry(ledger.RetryPolicy{BaseBackoff: time.Microsecond}))

	apply := func(in ledger.MovementInput) {
		_, err := engine.ApplyMovement(ctx, in)
		require.NoError(t, err)
	}
	apply(ledger.MovementInput{Kind: entity.MovementIn, ProductID: "P1", Quantity: 10, WarehouseID: "WH01"})
	apply(ledger.MovementInput{Kind: entity.MovementIn, ProductID: "P2", Quantity: 100, WarehouseID: "WH01"})
	clock = time.Date(2023, 7, 2, 12, 0, 0, 0, time.UTC)
	apply(ledger.MovementInput{Kind: entity.MovementOut, ProductID: "P1", Quantity: 7, WarehouseID: "WH01"})
	apply(ledger.MovementInput{Kind: entity.MovementTransfer, ProductID: "P2", Quantity: 40, FromWarehouseID: "WH01", ToWarehouseID: "WH02"})

	require.NoError(t, s.Returns().Create(ctx, &entity.ReturnRequest{ID: "R1", ProductID: "P1", Quantity: 1, Reason: entity.ReasonDamaged, Status: entity.ReturnPending}))
	require.NoError(t, s.Returns().Create(ctx, &entity.ReturnRequest{ID: "R2", ProductID: "P1", Quantity: 1, Reason: entity.ReasonDamaged, Status: entity.ReturnRejected}))
	require.NoError(t, s.Returns().Create(ctx, &entity.ReturnRequest{ID: "R3", ProductID: "P2", Quantity: 1, Reason: entity.ReasonOther, Status: entity.ReturnPending}))

	pdf, sheet := &stubPDF{}, &stubSheet{}
	uc := reports.NewUseCase(s.Reports(), engine, pdf, sheet, time.UTC).
		WithClock(func() time.Time { return time.Date(2023, 7, 15, 0, 0, 0, 0, time.UTC) })
	return uc, pdf, sheet
}

func TestDashboard_ContadoresYSerieRellenada(t *testing.T) {
	uc, _, _ := fixture(t)

	got, err := uc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalProducts)
	assert.Equal(t, 2, got.TotalWarehouses)
	assert.Equal(t, 2, got.PendingReturns)
	assert.Equal(t, 1, got.LowStockAlerts, "P1 quedó en 3 con mínimo 5")
	assert.True(t, decimal.NewFromInt(3*1000+100*10).Equal(got.InventoryValue))

	require.Len(t, got.Monthly, 6)
	assert.Equal(t, "2023-02", got.Monthly[0].Month)
	assert.Equal(t, "2023-07", got.Monthly[5].Month)
	assert.Equal(t, int64(110), got.Monthly[3].In, "mayo")
	assert.Equal(t, int64(0), got.Monthly[4].In, "junio sin movimientos")
	assert.Equal(t, int64(7), got.Monthly[5].Out, "julio: el traslado no cuenta")
}

func TestLowStock_Deficit(t *testing.T) {
	uc, _, _ := fixture(t)

	got, err := uc.LowStock(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A-1", got[0].SKU)
	assert.Equal(t, int64(2), got[0].Deficit)
}

func TestStockByWarehouse_DerivadoDelLog(t *testing.T) {
	uc, _, _ := fixture(t)

	got, err := uc.StockByWarehouse(context.Background())
	require.NoError(t, err)
	byKey := map[string]int64{}
	for _, r := range got {
		byKey[r.ProductID+"@"+r.WarehouseID] = r.Quantity
	}
	assert.Equal(t, int64(3), byKey["P1@WH01"])
	assert.Equal(t, int64(60), byKey["P2@WH01"])
	assert.Equal(t, int64(40), byKey["P2@WH02"])
}

func TestReturnsByReason(t *testing.T) {
	uc, _, _ := fixture(t)
	ctx := context.Background()

	all, err := uc.ReturnsByReason(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "damaged", all[0].Reason)
	assert.Equal(t, 2, all[0].Count)

	pending, err := uc.ReturnsByReason(ctx, "pending")
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = uc.ReturnsByReason(ctx, "archived")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMonthlyMovements_Rango(t *testing.T) {
	uc, _, _ := fixture(t)
	ctx := context.Background()

	got, err := uc.MonthlyMovements(ctx, "2023-05", "2023-07")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(110), got[0].In)
	assert.Equal(t, int64(7), got[2].Out)

	_, err = uc.MonthlyMovements(ctx, "2023-08", "2023-07")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = uc.MonthlyMovements(ctx, "2019-01", "2023-07")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = uc.MonthlyMovements(ctx, "julio", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestExports(t *testing.T) {
	uc, pdf, sheet := fixture(t)
	ctx := context.Background()

	data, err := uc.ExportStockPDF(ctx)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-stub", string(data))
	assert.Equal(t, 2, pdf.got.TotalProducts)
	assert.Len(t, pdf.got.LowStock, 1)

	_, err = uc.ExportMovementsXLSX(ctx, repository.MovementFilter{ProductID: "P1"})
	require.NoError(t, err)
	assert.Equal(t, 2, sheet.rows)
}
