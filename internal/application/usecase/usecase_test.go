package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/storeflow-api/internal/application/dto"
	"github.com/jhoicas/storeflow-api/internal/application/ledger"
	"github.com/jhoicas/storeflow-api/internal/application/usecase"
	"github.com/jhoicas/storeflow-api/internal/domain"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
	"github.com/jhoicas/storeflow-api/internal/infrastructure/memory"
)

type fixture struct {
	store      *memory.Store
	engine     *ledger.Engine
	products   *usecase.ProductUseCase
	warehouses *usecase.WarehouseUseCase
	users      *usecase.UserUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.New()
	require.NoError(t, s.Warehouses().Create(context.Background(), &entity.Warehouse{ID: "WH01", Name: "Central"}))
	engine := ledger.NewEngine(s, s.Warehouses(), s.Movements(),
		ledger.WithRetry(ledger.RetryPolicy{BaseBackoff: time.Microsecond}))
	return &fixture{
		store:      s,
		engine:     engine,
		products:   usecase.NewProductUseCase(s.Products(), s.Movements(), engine),
		warehouses: usecase.NewWarehouseUseCase(s.Warehouses(), s.Movements()),
		users:      usecase.NewUserUseCase(s.Users()),
	}
}

func productRequest(sku string) dto.CreateProductRequest {
	return dto.CreateProductRequest{SKU: sku, Name: "Tornillo " + sku, Category: "ferretería", Price: decimal.NewFromInt(1200), MinStock: 5}
}

func TestProductCreate_SinSaldoInicial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.products.Create(ctx, "u-1", productRequest("A-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, int64(0), got.Quantity)
	assert.True(t, got.LowStock)

	list, err := f.store.Movements().List(ctx, repository.MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, list, "sin saldo inicial no hay movimiento")
}

func TestProductCreate_SaldoInicialQuedaEnElLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := productRequest("A-2")
	req.OpeningStock = 40
	req.WarehouseID = "WH01"
	got, err := f.products.Create(ctx, "u-1", req)
	require.NoError(t, err)
	assert.Equal(t, int64(40), got.Quantity)
	assert.False(t, got.LowStock)

	list, err := f.store.Movements().List(ctx, repository.MovementFilter{ProductID: got.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entity.MovementIn, list[0].Kind)
	assert.Equal(t, int64(40), list[0].BalanceAfter)
}

func TestProductCreate_Rechazos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.products.Create(ctx, "u-1", productRequest("DUP"))
	require.NoError(t, err)
	_, err = f.products.Create(ctx, "u-1", productRequest("DUP"))
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	req := productRequest("")
	_, err = f.products.Create(ctx, "u-1", req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	req = productRequest("NEG")
	req.Price = decimal.NewFromInt(-1)
	_, err = f.products.Create(ctx, "u-1", req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	req = productRequest("NOWH")
	req.OpeningStock = 3
	_, err = f.products.Create(ctx, "u-1", req)
	assert.ErrorIs(t, err, domain.ErrMissingWarehouse)

	req.WarehouseID = "NOPE"
	_, err = f.products.Create(ctx, "u-1", req)
	assert.ErrorIs(t, err, domain.ErrWarehouseNotFound)

	_, err = f.products.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestProductUpdate_NoTocaElSaldo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := productRequest("U-1")
	req.OpeningStock = 7
	req.WarehouseID = "WH01"
	created, err := f.products.Create(ctx, "u-1", req)
	require.NoError(t, err)

	name := "Tornillo largo"
	price := decimal.NewFromInt(1500)
	got, err := f.products.Update(ctx, created.ID, dto.UpdateProductRequest{Name: &name, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.True(t, price.Equal(got.Price))
	assert.Equal(t, int64(7), got.Quantity)

	_, err = f.products.Create(ctx, "u-1", productRequest("U-2"))
	require.NoError(t, err)
	sku := "U-2"
	_, err = f.products.Update(ctx, created.ID, dto.UpdateProductRequest{SKU: &sku})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestProductDelete_ConMovimientosEsInUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	used := productRequest("D-1")
	used.OpeningStock = 1
	used.WarehouseID = "WH01"
	withHistory, err := f.products.Create(ctx, "u-1", used)
	require.NoError(t, err)
	assert.ErrorIs(t, f.products.Delete(ctx, withHistory.ID), domain.ErrInUse)

	clean, err := f.products.Create(ctx, "u-1", productRequest("D-2"))
	require.NoError(t, err)
	require.NoError(t, f.products.Delete(ctx, clean.ID))
	_, err = f.products.GetByID(ctx, clean.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductList_Filtros(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stocked := productRequest("L-1")
	stocked.OpeningStock = 50
	stocked.WarehouseID = "WH01"
	_, err := f.products.Create(ctx, "u-1", stocked)
	require.NoError(t, err)
	_, err = f.products.Create(ctx, "u-1", productRequest("L-2"))
	require.NoError(t, err)

	all, err := f.products.List(ctx, repository.ProductFilter{}, 20, 0)
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	low, err := f.products.List(ctx, repository.ProductFilter{LowStock: true}, 20, 0)
	require.NoError(t, err)
	require.Len(t, low.Items, 1)
	assert.Equal(t, "L-2", low.Items[0].SKU)
}

func TestWarehouse_CRUDYBorradoProtegido(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w, err := f.warehouses.Create(ctx, dto.CreateWarehouseRequest{Name: "Norte", Address: "Cra 1"})
	require.NoError(t, err)

	addr := "Cra 2"
	got, err := f.warehouses.Update(ctx, w.ID, dto.UpdateWarehouseRequest{Address: &addr})
	require.NoError(t, err)
	assert.Equal(t, "Norte", got.Name)
	assert.Equal(t, addr, got.Address)

	_, err = f.warehouses.Create(ctx, dto.CreateWarehouseRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	req := productRequest("W-1")
	req.OpeningStock = 2
	req.WarehouseID = w.ID
	_, err = f.products.Create(ctx, "u-1", req)
	require.NoError(t, err)
	assert.ErrorIs(t, f.warehouses.Delete(ctx, w.ID), domain.ErrInUse)

	empty, err := f.warehouses.Create(ctx, dto.CreateWarehouseRequest{Name: "Sur"})
	require.NoError(t, err)
	require.NoError(t, f.warehouses.Delete(ctx, empty.ID))
	_, err = f.warehouses.GetByID(ctx, empty.ID)
	assert.ErrorIs(t, err, domain.ErrWarehouseNotFound)
}

func TestUserList_MasRecientesPrimero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"u-old", "u-mid", "u-new"} {
		require.NoError(t, f.store.Users().Create(ctx, &entity.User{
			ID: id, Email: id + "@x.co", Role: entity.RoleStaff, Status: entity.UserActive,
			PasswordHash: "secreto", CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	list, err := f.users.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list.Items, 3)
	assert.Equal(t, "u-new", list.Items[0].ID)
	assert.Equal(t, "u-old", list.Items[2].ID)

	_, err = f.users.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
