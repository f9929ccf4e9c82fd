package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
)

type reportRepo struct{ repo }

func (r *reportRepo) Counts(_ context.Context) (*repository.InventoryCounts, error) {
	out := &repository.InventoryCounts{InventoryValue: decimal.Zero}
	r.read(func() {
		out.Products = len(r.s.products)
		out.Warehouses = len(r.s.warehouses)
		for _, p := range r.s.products {
			if p.IsLowStock() {
				out.LowStock++
			}
			out.InventoryValue = out.InventoryValue.Add(p.Price.Mul(decimal.NewFromInt(p.Quantity)))
		}
		for _, ret := range r.s.returns {
			if ret.Status == entity.ReturnPending {
				out.PendingReturns++
			}
		}
	})
	return out, nil
}

func (r *reportRepo) LowStock(_ context.Context, limit int) ([]repository.LowStockItem, error) {
	var out []repository.LowStockItem
	r.read(func() {
		for _, p := range r.s.products {
			if !p.IsLowStock() {
				continue
			}
			out = append(out, repository.LowStockItem{
				ProductID: p.ID, SKU: p.SKU, Name: p.Name, Category: p.Category,
				Quantity: p.Quantity, MinStock: p.MinStock,
			})
		}
	})
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].MinStock-out[i].Quantity, out[j].MinStock-out[j].Quantity
		if di != dj {
			return di > dj
		}
		return out[i].Name < out[j].Name
	})
	return page(out, limit, 0), nil
}

// StockByWarehouse suma el log: in/return +, out -, transfer - origen / + destino.
func (r *reportRepo) StockByWarehouse(_ context.Context) ([]repository.WarehouseStock, error) {
	type key struct{ product, warehouse string }
	totals := make(map[key]int64)
	var out []repository.WarehouseStock
	r.read(func() {
		for _, m := range r.s.movements {
			switch m.Kind {
			case entity.MovementIn, entity.MovementReturn:
				totals[key{m.ProductID, m.WarehouseID}] += m.Quantity
			case entity.MovementOut:
				totals[key{m.ProductID, m.WarehouseID}] -= m.Quantity
			case entity.MovementTransfer:
				totals[key{m.ProductID, m.FromWarehouseID}] -= m.Quantity
				totals[key{m.ProductID, m.ToWarehouseID}] += m.Quantity
			}
		}
		for k, qty := range totals {
			row := repository.WarehouseStock{ProductID: k.product, WarehouseID: k.warehouse, Quantity: qty}
			if p, ok := r.s.products[k.product]; ok {
				row.ProductName = p.Name
				row.MinStock = p.MinStock
			}
			if w, ok := r.s.warehouses[k.warehouse]; ok {
				row.WarehouseName = w.Name
			}
			out = append(out, row)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductName != out[j].ProductName {
			return out[i].ProductName < out[j].ProductName
		}
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].WarehouseName < out[j].WarehouseName
	})
	return out, nil
}

func (r *reportRepo) ReturnsByReason(_ context.Context, status entity.ReturnStatus) ([]repository.ReasonCount, error) {
	counts := make(map[entity.ReturnReason]int)
	r.read(func() {
		for _, ret := range r.s.returns {
			if status != "" && ret.Status != status {
				continue
			}
			counts[ret.Reason]++
		}
	})
	out := make([]repository.ReasonCount, 0, len(counts))
	for reason, n := range counts {
		out = append(out, repository.ReasonCount{Reason: reason, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out, nil
}

func (r *reportRepo) MonthlyMovements(_ context.Context, from, to time.Time) ([]repository.MonthlyMovement, error) {
	byMonth := make(map[string]*repository.MonthlyMovement)
	r.read(func() {
		for _, m := range r.s.movements {
			if m.CreatedAt.Before(from) || !m.CreatedAt.Before(to) {
				continue
			}
			if m.Kind != entity.MovementIn && m.Kind != entity.MovementOut {
				continue
			}
			month := m.CreatedAt.In(from.Location()).Format("2006-01")
			row, ok := byMonth[month]
			if !ok {
				row = &repository.MonthlyMovement{Month: month}
				byMonth[month] = row
			}
			if m.Kind == entity.MovementIn {
				row.In += m.Quantity
			} else {
				row.Out += m.Quantity
			}
		}
	})
	out := make([]repository.MonthlyMovement, 0, len(byMonth))
	for _, row := range byMonth {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}
