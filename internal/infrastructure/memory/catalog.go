package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/storeflow-api/internal/domain"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
)

type productRepo struct{ repo }

func (r *productRepo) Create(_ context.Context, p *entity.Product) error {
	return r.write(func() error {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if _, ok := r.s.products[p.ID]; ok {
			return fmt.Errorf("%w: producto %s", domain.ErrDuplicate, p.ID)
		}
		for _, other := range r.s.products {
			if p.SKU != "" && strings.EqualFold(other.SKU, p.SKU) {
				return fmt.Errorf("%w: sku %s", domain.ErrDuplicate, p.SKU)
			}
		}
		r.s.products[p.ID] = *p
		return nil
	})
}

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	r.read(func() {
		if p, ok := r.s.products[id]; ok {
			out = &p
		}
	})
	return out, nil
}

func (r *productRepo) GetBySKU(_ context.Context, sku string) (*entity.Product, error) {
	var out *entity.Product
	r.read(func() {
		for _, p := range r.s.products {
			if strings.EqualFold(p.SKU, sku) {
				p := p
				out = &p
				return
			}
		}
	})
	return out, nil
}

// GetForUpdate en memoria el "bloqueo" es el mutex de la transacción.
func (r *productRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *productRepo) Update(_ context.Context, p *entity.Product) error {
	return r.write(func() error {
		cur, ok := r.s.products[p.ID]
		if !ok {
			return domain.ErrProductNotFound
		}
		for _, other := range r.s.products {
			if other.ID != p.ID && p.SKU != "" && strings.EqualFold(other.SKU, p.SKU) {
				return fmt.Errorf("%w: sku %s", domain.ErrDuplicate, p.SKU)
			}
		}
		// el saldo y su versión solo cambian por UpdateQuantity
		p.Quantity = cur.Quantity
		p.Version = cur.Version
		p.CreatedAt = cur.CreatedAt
		r.s.products[p.ID] = *p
		return nil
	})
}

func (r *productRepo) UpdateQuantity(_ context.Context, productID string, quantity, expectedVersion int64) error {
	return r.write(func() error {
		cur, ok := r.s.products[productID]
		if !ok {
			return domain.ErrProductNotFound
		}
		if cur.Version != expectedVersion {
			return fmt.Errorf("producto %s versión %d != %d: %w", productID, cur.Version, expectedVersion, domain.ErrWriteConflict)
		}
		cur.Quantity = quantity
		cur.Version++
		cur.UpdatedAt = time.Now()
		r.s.products[productID] = cur
		return nil
	})
}

func (r *productRepo) List(_ context.Context, f repository.ProductFilter, limit, offset int) ([]*entity.Product, error) {
	var out []*entity.Product
	search := strings.ToLower(strings.TrimSpace(f.Search))
	r.read(func() {
		for _, p := range r.s.products {
			if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.SKU), search) {
				continue
			}
			if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
				continue
			}
			if f.LowStock && !p.IsLowStock() {
				continue
			}
			p := p
			out = append(out, &p)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return page(out, limit, offset), nil
}

func (r *productRepo) Delete(_ context.Context, id string) error {
	return r.write(func() error {
		if _, ok := r.s.products[id]; !ok {
			return domain.ErrProductNotFound
		}
		delete(r.s.products, id)
		return nil
	})
}

type warehouseRepo struct{ repo }

func (r *warehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	return r.write(func() error {
		if w.ID == "" {
			w.ID = uuid.NewString()
		}
		if _, ok := r.s.warehouses[w.ID]; ok {
			return fmt.Errorf("%w: bodega %s", domain.ErrDuplicate, w.ID)
		}
		r.s.warehouses[w.ID] = *w
		return nil
	})
}

func (r *warehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	var out *entity.Warehouse
	r.read(func() {
		if w, ok := r.s.warehouses[id]; ok {
			out = &w
		}
	})
	return out, nil
}

func (r *warehouseRepo) Update(_ context.Context, w *entity.Warehouse) error {
	return r.write(func() error {
		cur, ok := r.s.warehouses[w.ID]
		if !ok {
			return domain.ErrWarehouseNotFound
		}
		w.CreatedAt = cur.CreatedAt
		r.s.warehouses[w.ID] = *w
		return nil
	})
}

func (r *warehouseRepo) List(_ context.Context, limit, offset int) ([]*entity.Warehouse, error) {
	var out []*entity.Warehouse
	r.read(func() {
		for _, w := range r.s.warehouses {
			w := w
			out = append(out, &w)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return page(out, limit, offset), nil
}

func (r *warehouseRepo) Delete(_ context.Context, id string) error {
	return r.write(func() error {
		if _, ok := r.s.warehouses[id]; !ok {
			return domain.ErrWarehouseNotFound
		}
		delete(r.s.warehouses, id)
		return nil
	})
}

type userRepo struct{ repo }

func (r *userRepo) Create(_ context.Context, u *entity.User) error {
	return r.write(func() error {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		for _, other := range r.s.users {
			if strings.EqualFold(other.Email, u.Email) {
				return domain.ErrEmailAlreadyExists
			}
		}
		r.s.users[u.ID] = *u
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	var out *entity.User
	r.read(func() {
		if u, ok := r.s.users[id]; ok {
			out = &u
		}
	})
	return out, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	var out *entity.User
	r.read(func() {
		for _, u := range r.s.users {
			if strings.EqualFold(u.Email, email) {
				u := u
				out = &u
				return
			}
		}
	})
	return out, nil
}

func (r *userRepo) List(_ context.Context, limit, offset int) ([]*entity.User, error) {
	var out []*entity.User
	r.read(func() {
		for _, u := range r.s.users {
			u := u
			out = append(out, &u)
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
