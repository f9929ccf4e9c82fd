package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/storeflow-api/internal/domain"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
)

func TestRun_RollbackAnteError(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Products().Create(ctx, &entity.Product{ID: "P1", SKU: "A", Quantity: 5}))

	boom := errors.New("boom")
	err := s.Run(ctx, func(products repository.ProductRepository, movements repository.MovementRepository, sequences repository.SequenceRepository) error {
		require.NoError(t, products.UpdateQuantity(ctx, "P1", 99, 0))
		require.NoError(t, movements.Create(ctx, &entity.Movement{ID: "M1", ProductID: "P1"}))
		_, err := sequences.Next(ctx, "2023-07-01")
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, _ := s.Products().GetByID(ctx, "P1")
	assert.Equal(t, int64(5), p.Quantity)
	assert.Equal(t, int64(0), p.Version)
	m, _ := s.Movements().GetByID(ctx, "M1")
	assert.Nil(t, m)

	// la secuencia tampoco avanzó
	err = s.Run(ctx, func(_ repository.ProductRepository, _ repository.MovementRepository, sequences repository.SequenceRepository) error {
		n, err := sequences.Next(ctx, "2023-07-01")
		assert.Equal(t, int64(1), n)
		return err
	})
	require.NoError(t, err)
}

func TestRun_ConflictoInyectado(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.FailNextCommits(1)

	write := func(products repository.ProductRepository, movements repository.MovementRepository, _ repository.SequenceRepository) error {
		return movements.Create(ctx, &entity.Movement{ID: "M1"})
	}
	err := s.Run(ctx, write)
	assert.ErrorIs(t, err, domain.ErrWriteConflict)
	m, _ := s.Movements().GetByID(ctx, "M1")
	assert.Nil(t, m, "el commit fallido no deja rastro")

	require.NoError(t, s.Run(ctx, write))
	m, _ = s.Movements().GetByID(ctx, "M1")
	assert.NotNil(t, m)
}

func TestUpdateQuantity_VerificaVersion(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Products().Create(ctx, &entity.Product{ID: "P1", SKU: "A"}))

	require.NoError(t, s.Products().UpdateQuantity(ctx, "P1", 10, 0))
	err := s.Products().UpdateQuantity(ctx, "P1", 20, 0)
	assert.ErrorIs(t, err, domain.ErrWriteConflict)

	p, _ := s.Products().GetByID(ctx, "P1")
	assert.Equal(t, int64(10), p.Quantity)
	assert.Equal(t, int64(1), p.Version)
}

func TestProductUpdate_NuncaTocaLaCantidad(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Products().Create(ctx, &entity.Product{ID: "P1", SKU: "A", Name: "Viejo", Quantity: 7}))

	require.NoError(t, s.Products().Update(ctx, &entity.Product{ID: "P1", SKU: "A", Name: "Nuevo", Quantity: 1000}))
	p, _ := s.Products().GetByID(ctx, "P1")
	assert.Equal(t, "Nuevo", p.Name)
	assert.Equal(t, int64(7), p.Quantity)
}

func TestProducts_SKUDuplicadoYFiltros(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Products().Create(ctx, &entity.Product{ID: "P1", SKU: "ABC", Name: "Martillo", Category: "Herramientas", Quantity: 1, MinStock: 5}))
	require.NoError(t, s.Products().Create(ctx, &entity.Product{ID: "P2", SKU: "XYZ", Name: "Clavos", Category: "Ferretería", Quantity: 50, MinStock: 5}))

	err := s.Products().Create(ctx, &entity.Product{ID: "P3", SKU: "abc"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	list, err := s.Products().List(ctx, repository.ProductFilter{Search: "mart"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "P1", list[0].ID)

	list, err = s.Products().List(ctx, repository.ProductFilter{LowStock: true}, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "P1", list[0].ID)

	list, err = s.Products().List(ctx, repository.ProductFilter{Category: "ferretería"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "P2", list[0].ID)
}

func TestReports_StockPorBodegaDesdeElLog(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Products().Create(ctx, &entity.Product{ID: "P1", SKU: "A", Name: "Martillo"}))
	require.NoError(t, s.Warehouses().Create(ctx, &entity.Warehouse{ID: "W1", Name: "Central"}))
	require.NoError(t, s.Warehouses().Create(ctx, &entity.Warehouse{ID: "W2", Name: "Norte"}))

	now := time.Now()
	for _, m := range []entity.Movement{
		{ID: "1", ProductID: "P1", Kind: entity.MovementIn, Quantity: 10, WarehouseID: "W1", CreatedAt: now},
		{ID: "2", ProductID: "P1", Kind: entity.MovementTransfer, Quantity: 4, FromWarehouseID: "W1", ToWarehouseID: "W2", CreatedAt: now},
		{ID: "3", ProductID: "P1", Kind: entity.MovementOut, Quantity: 1, WarehouseID: "W2", CreatedAt: now},
		{ID: "4", ProductID: "P1", Kind: entity.MovementReturn, Quantity: 2, WarehouseID: "W1", CreatedAt: now},
	} {
		m := m
		require.NoError(t, s.Movements().Create(ctx, &m))
	}

	rows, err := s.Reports().StockByWarehouse(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Central", rows[0].WarehouseName)
	assert.Equal(t, int64(8), rows[0].Quantity)
	assert.Equal(t, "Norte", rows[1].WarehouseName)
	assert.Equal(t, int64(3), rows[1].Quantity)
}

func TestBroadcaster_EntregaAListenersActivos(t *testing.T) {
	b := NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan string, 1)
	done, err := b.Listen(ctx, func(id string) { got <- id })
	require.NoError(t, err)

	require.NoError(t, b.PublishMovement(ctx, &entity.Movement{ID: "M1"}))
	select {
	case id := <-got:
		assert.Equal(t, "M1", id)
	case <-time.After(time.Second):
		t.Fatal("no llegó el aviso")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Listen no terminó")
	}
}

func TestBroadcaster_DesbordeAvisaPorDone(t *testing.T) {
	b := NewBroadcasterSize(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	done, err := b.Listen(ctx, func(string) {
		once.Do(func() { close(started) })
		<-release
	})
	require.NoError(t, err)

	require.NoError(t, b.PublishMovement(ctx, &entity.Movement{ID: "M1"}))
	<-started // el listener quedó ocupado con M1
	require.NoError(t, b.PublishMovement(ctx, &entity.Movement{ID: "M2"})) // llena el buffer
	require.NoError(t, b.PublishMovement(ctx, &entity.Movement{ID: "M3"})) // desborda
	close(release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrListenerOverflow)
	case <-time.After(time.Second):
		t.Fatal("el desborde no se informó")
	}

	// el listener desbordado ya no recibe avisos
	b.mu.Lock()
	assert.Empty(t, b.subs)
	b.mu.Unlock()
}
