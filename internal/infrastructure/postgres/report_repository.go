package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
)

var _ repository.ReportRepository = (*ReportRepo)(nil)

// ReportRepo consultas de solo lectura para reportes y dashboard.
type ReportRepo struct {
	q Querier
}

// NewReportRepository construye el repositorio de reportes.
func NewReportRepository(q Querier) *ReportRepo {
	return &ReportRepo{q: q}
}

// Counts contadores del dashboard en una sola consulta.
func (r *ReportRepo) Counts(ctx context.Context) (*repository.InventoryCounts, error) {
	var c repository.InventoryCounts
	err := r.q.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM warehouses),
			(SELECT COUNT(*) FROM return_requests WHERE status = 'pending'),
			(SELECT COUNT(*) FROM products WHERE quantity <= min_stock),
			(SELECT COALESCE(SUM(price * quantity), 0) FROM products)`,
	).Scan(&c.Products, &c.Warehouses, &c.PendingReturns, &c.LowStock, &c.InventoryValue)
	if err != nil {
		return nil, fmt.Errorf("report counts: %w", err)
	}
	return &c, nil
}

// LowStock productos en o bajo el mínimo, mayor déficit primero.
func (r *ReportRepo) LowStock(ctx context.Context, limit int) ([]repository.LowStockItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, sku, name, category, quantity, min_stock FROM products
		WHERE quantity <= min_stock
		ORDER BY (min_stock - quantity) DESC, name
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("report low stock: %w", err)
	}
	defer rows.Close()
	var out []repository.LowStockItem
	for rows.Next() {
		var it repository.LowStockItem
		if err := rows.Scan(&it.ProductID, &it.SKU, &it.Name, &it.Category, &it.Quantity, &it.MinStock); err != nil {
			return nil, fmt.Errorf("scan low stock: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// StockByWarehouse suma el log: in/return +, out -, transfer - origen / + destino.
func (r *ReportRepo) StockByWarehouse(ctx context.Context) ([]repository.WarehouseStock, error) {
	rows, err := r.q.Query(ctx, `
		WITH deltas AS (
			SELECT product_id, warehouse_id AS wh, quantity AS q FROM movements WHERE kind IN ('in', 'return')
			UNION ALL
			SELECT product_id, warehouse_id, -quantity FROM movements WHERE kind = 'out'
			UNION ALL
			SELECT product_id, from_warehouse_id, -quantity FROM movements WHERE kind = 'transfer'
			UNION ALL
			SELECT product_id, to_warehouse_id, quantity FROM movements WHERE kind = 'transfer'
		)
		SELECT d.product_id, COALESCE(p.name, ''), d.wh, COALESCE(w.name, ''),
			SUM(d.q)::bigint, COALESCE(p.min_stock, 0)
		FROM deltas d
		LEFT JOIN products p ON p.id = d.product_id
		LEFT JOIN warehouses w ON w.id = d.wh
		GROUP BY d.product_id, p.name, d.wh, w.name, p.min_stock
		ORDER BY p.name, d.product_id, w.name`)
	if err != nil {
		return nil, fmt.Errorf("report stock by warehouse: %w", err)
	}
	defer rows.Close()
	var out []repository.WarehouseStock
	for rows.Next() {
		var s repository.WarehouseStock
		if err := rows.Scan(&s.ProductID, &s.ProductName, &s.WarehouseID, &s.WarehouseName, &s.Quantity, &s.MinStock); err != nil {
			return nil, fmt.Errorf("scan stock by warehouse: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReturnsByReason conteo por motivo; status vacío = todas.
func (r *ReportRepo) ReturnsByReason(ctx context.Context, status entity.ReturnStatus) ([]repository.ReasonCount, error) {
	rows, err := r.q.Query(ctx, `
		SELECT reason, COUNT(*) FROM return_requests
		WHERE ($1 = '' OR status = $1)
		GROUP BY reason
		ORDER BY COUNT(*) DESC, reason`, string(status))
	if err != nil {
		return nil, fmt.Errorf("report returns by reason: %w", err)
	}
	defer rows.Close()
	var out []repository.ReasonCount
	for rows.Next() {
		var (
			reason string
			rc     repository.ReasonCount
		)
		if err := rows.Scan(&reason, &rc.Count); err != nil {
			return nil, fmt.Errorf("scan returns by reason: %w", err)
		}
		rc.Reason = entity.ReturnReason(reason)
		out = append(out, rc)
	}
	return out, rows.Err()
}

// MonthlyMovements agrupa entradas y salidas por mes de [from, to) en la zona de from.
func (r *ReportRepo) MonthlyMovements(ctx context.Context, from, to time.Time) ([]repository.MonthlyMovement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT to_char(created_at AT TIME ZONE $3, 'YYYY-MM') AS month,
			COALESCE(SUM(quantity) FILTER (WHERE kind = 'in'), 0)::bigint,
			COALESCE(SUM(quantity) FILTER (WHERE kind = 'out'), 0)::bigint
		FROM movements
		WHERE created_at >= $1 AND created_at < $2 AND kind IN ('in', 'out')
		GROUP BY month
		ORDER BY month`, from, to, pgTimeZone(from.Location()))
	if err != nil {
		return nil, fmt.Errorf("report monthly movements: %w", err)
	}
	defer rows.Close()
	var out []repository.MonthlyMovement
	for rows.Next() {
		var m repository.MonthlyMovement
		if err := rows.Scan(&m.Month, &m.In, &m.Out); err != nil {
			return nil, fmt.Errorf("scan monthly movements: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// pgTimeZone nombre IANA para AT TIME ZONE. time.Local no tiene nombre útil: se usa UTC.
func pgTimeZone(loc *time.Location) string {
	if loc == nil || loc == time.Local || loc.String() == "Local" {
		return "UTC"
	}
	return loc.String()
}
