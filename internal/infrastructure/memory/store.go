// Package memory implementa los puertos de persistencia en memoria (tests y desarrollo local).
// Las transacciones se serializan con el mutex del store: se toma un snapshot al
// iniciar y se restaura si la función falla.
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jhoicas/storeflow-api/internal/application/ledger"
	"github.com/jhoicas/storeflow-api/internal/application/returns"
	"github.com/jhoicas/storeflow-api/internal/domain"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
)

var (
	_ ledger.TxRunner  = (*Store)(nil)
	_ returns.TxRunner = (*Store)(nil)
)

// Store estado completo en memoria.
type Store struct {
	mu         sync.RWMutex
	products   map[string]entity.Product
	warehouses map[string]entity.Warehouse
	movements  []entity.Movement // orden de inserción
	movementAt map[string]int
	sequences  map[string]int64
	returns    map[string]entity.ReturnRequest
	users      map[string]entity.User

	calls       atomic.Int64
	failCommits int // conflictos a inyectar en los próximos commits (protegido por mu)
}

// New crea un store vacío.
func New() *Store {
	return &Store{
		products:   make(map[string]entity.Product),
		warehouses: make(map[string]entity.Warehouse),
		movementAt: make(map[string]int),
		sequences:  make(map[string]int64),
		returns:    make(map[string]entity.ReturnRequest),
		users:      make(map[string]entity.User),
	}
}

// Calls cantidad de accesos al store (repositorios y transacciones).
func (s *Store) Calls() int64 { return s.calls.Load() }

// FailNextCommits hace que los próximos n commits fallen con ErrWriteConflict,
// como si otra transacción hubiera ganado la carrera.
func (s *Store) FailNextCommits(n int) {
	s.mu.Lock()
	s.failCommits = n
	s.mu.Unlock()
}

// Products repositorio fuera de transacción.
func (s *Store) Products() repository.ProductRepository { return &productRepo{repo{s: s}} }

// Warehouses repositorio fuera de transacción.
func (s *Store) Warehouses() repository.WarehouseRepository { return &warehouseRepo{repo{s: s}} }

// Movements repositorio fuera de transacción.
func (s *Store) Movements() repository.MovementRepository { return &movementRepo{repo{s: s}} }

// Returns repositorio fuera de transacción.
func (s *Store) Returns() repository.ReturnRepository { return &returnRepo{repo{s: s}} }

// Users repositorio fuera de transacción.
func (s *Store) Users() repository.UserRepository { return &userRepo{repo{s: s}} }

// Reports consultas de reportes.
func (s *Store) Reports() repository.ReportRepository { return &reportRepo{repo{s: s}} }

// Run implementa ledger.TxRunner.
func (s *Store) Run(ctx context.Context, fn func(
	products repository.ProductRepository,
	movements repository.MovementRepository,
	sequences repository.SequenceRepository,
) error) error {
	return s.inTx(ctx, func(r repo) error {
		return fn(&productRepo{r}, &movementRepo{r}, &sequenceRepo{r})
	})
}

// RunReturn implementa returns.TxRunner.
func (s *Store) RunReturn(ctx context.Context, fn func(
	returnRepo repository.ReturnRepository,
	products repository.ProductRepository,
	movements repository.MovementRepository,
	sequences repository.SequenceRepository,
) error) error {
	return s.inTx(ctx, func(r repo) error {
		return fn(&returnRepo{r}, &productRepo{r}, &movementRepo{r}, &sequenceRepo{r})
	})
}

func (s *Store) inTx(ctx context.Context, fn func(r repo) error) error {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(repo{s: s, tx: true}); err != nil {
		s.restore(snap)
		return err
	}
	if s.failCommits > 0 {
		s.failCommits--
		s.restore(snap)
		return fmt.Errorf("memory commit: %w", domain.ErrWriteConflict)
	}
	if err := ctx.Err(); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	products   map[string]entity.Product
	warehouses map[string]entity.Warehouse
	movements  int
	sequences  map[string]int64
	returns    map[string]entity.ReturnRequest
	users      map[string]entity.User
}

// snapshot copia el estado mutable. El log solo crece, basta con su largo.
func (s *Store) snapshot() snapshot {
	return snapshot{
		products:   cloneMap(s.products),
		warehouses: cloneMap(s.warehouses),
		movements:  len(s.movements),
		sequences:  cloneMap(s.sequences),
		returns:    cloneMap(s.returns),
		users:      cloneMap(s.users),
	}
}

func (s *Store) restore(snap snapshot) {
	s.products = snap.products
	s.warehouses = snap.warehouses
	for _, m := range s.movements[snap.movements:] {
		delete(s.movementAt, m.ID)
	}
	s.movements = s.movements[:snap.movements]
	s.sequences = snap.sequences
	s.returns = snap.returns
	s.users = snap.users
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// repo base compartida. Dentro de una transacción el mutex ya está tomado.
type repo struct {
	s  *Store
	tx bool
}

func (r repo) read(fn func()) {
	r.s.calls.Add(1)
	if !r.tx {
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()
	}
	fn()
}

func (r repo) write(fn func() error) error {
	r.s.calls.Add(1)
	if !r.tx {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
	}
	return fn()
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
