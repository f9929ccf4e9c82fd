package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/storeflow-api/internal/domain"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
)

type movementRepo struct{ repo }

// Create agrega al log. Nunca reemplaza un registro existente.
func (r *movementRepo) Create(_ context.Context, m *entity.Movement) error {
	return r.write(func() error {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if _, ok := r.s.movementAt[m.ID]; ok {
			return fmt.Errorf("%w: movimiento %s", domain.ErrDuplicate, m.ID)
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		r.s.movementAt[m.ID] = len(r.s.movements)
		r.s.movements = append(r.s.movements, *m)
		return nil
	})
}

func (r *movementRepo) GetByID(_ context.Context, id string) (*entity.Movement, error) {
	var out *entity.Movement
	r.read(func() {
		if i, ok := r.s.movementAt[id]; ok {
			m := r.s.movements[i]
			out = &m
		}
	})
	return out, nil
}

func (r *movementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	type indexed struct {
		m   entity.Movement
		seq int
	}
	var rows []indexed
	r.read(func() {
		for i, m := range r.s.movements {
			if matchMovement(m, f) {
				rows = append(rows, indexed{m: m, seq: i})
			}
		}
	})
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].m.CreatedAt.Equal(rows[j].m.CreatedAt) {
			return rows[i].m.CreatedAt.After(rows[j].m.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	out := make([]*entity.Movement, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i].m)
	}
	return page(out, f.Limit, f.Offset), nil
}

func matchMovement(m entity.Movement, f repository.MovementFilter) bool {
	if f.ProductID != "" && m.ProductID != f.ProductID {
		return false
	}
	if f.WarehouseID != "" && m.WarehouseID != f.WarehouseID && m.FromWarehouseID != f.WarehouseID && m.ToWarehouseID != f.WarehouseID {
		return false
	}
	if f.Kind != "" && m.Kind != f.Kind {
		return false
	}
	if f.From != nil && m.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !m.CreatedAt.Before(*f.To) {
		return false
	}
	return true
}

func (r *movementRepo) ExistsForProduct(_ context.Context, productID string) (bool, error) {
	found := false
	r.read(func() {
		for _, m := range r.s.movements {
			if m.ProductID == productID {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (r *movementRepo) ExistsForWarehouse(_ context.Context, warehouseID string) (bool, error) {
	found := false
	r.read(func() {
		for _, m := range r.s.movements {
			if m.WarehouseID == warehouseID || m.FromWarehouseID == warehouseID || m.ToWarehouseID == warehouseID {
				found = true
				return
			}
		}
		for _, ret := range r.s.returns {
			if ret.WarehouseID == warehouseID {
				found = true
				return
			}
		}
	})
	return found, nil
}

type sequenceRepo struct{ repo }

func (r *sequenceRepo) Next(_ context.Context, day string) (int64, error) {
	var next int64
	err := r.write(func() error {
		r.s.sequences[day]++
		next = r.s.sequences[day]
		return nil
	})
	return next, err
}

type returnRepo struct{ repo }

func (r *returnRepo) Create(_ context.Context, ret *entity.ReturnRequest) error {
	return r.write(func() error {
		if ret.ID == "" {
			ret.ID = uuid.NewString()
		}
		if _, ok := r.s.returns[ret.ID]; ok {
			return fmt.Errorf("%w: devolución %s", domain.ErrDuplicate, ret.ID)
		}
		r.s.returns[ret.ID] = *ret
		return nil
	})
}

func (r *returnRepo) GetByID(_ context.Context, id string) (*entity.ReturnRequest, error) {
	var out *entity.ReturnRequest
	r.read(func() {
		if ret, ok := r.s.returns[id]; ok {
			out = &ret
		}
	})
	return out, nil
}

func (r *returnRepo) GetForUpdate(ctx context.Context, id string) (*entity.ReturnRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *returnRepo) Update(_ context.Context, ret *entity.ReturnRequest) error {
	return r.write(func() error {
		if _, ok := r.s.returns[ret.ID]; !ok {
			return domain.ErrReturnNotFound
		}
		r.s.returns[ret.ID] = *ret
		return nil
	})
}

func (r *returnRepo) List(_ context.Context, status entity.ReturnStatus, limit, offset int) ([]*entity.ReturnRequest, error) {
	var out []*entity.ReturnRequest
	r.read(func() {
		for _, ret := range r.s.returns {
			if status != "" && ret.Status != status {
				continue
			}
			ret := ret
			out = append(out, &ret)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, limit, offset), nil
}
