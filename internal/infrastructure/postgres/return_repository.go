package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/storeflow-api/internal/domain"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
)

var _ repository.ReturnRepository = (*ReturnRepo)(nil)

const returnColumns = `id, invoice_ref, product_id, COALESCE(warehouse_id, ''), quantity, reason, status,
	to_char(request_date, 'YYYY-MM-DD'), COALESCE(movement_id, ''), COALESCE(created_by, ''),
	COALESCE(reviewed_by, ''), reviewed_at, created_at, updated_at`

// ReturnRepo implementación del puerto ReturnRepository sobre PostgreSQL.
type ReturnRepo struct {
	q Querier
}

// NewReturnRepository construye el adaptador de persistencia para devoluciones.
func NewReturnRepository(q Querier) *ReturnRepo {
	return &ReturnRepo{q: q}
}

func scanReturn(row pgx.Row) (*entity.ReturnRequest, error) {
	var (
		r              entity.ReturnRequest
		reason, status string
	)
	err := row.Scan(&r.ID, &r.InvoiceRef, &r.ProductID, &r.WarehouseID, &r.Quantity, &reason, &status,
		&r.Date, &r.MovementID, &r.CreatedBy, &r.ReviewedBy, &r.ReviewedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Reason = entity.ReturnReason(reason)
	r.Status = entity.ReturnStatus(status)
	return &r, nil
}

// Create persiste una nueva devolución.
func (r *ReturnRepo) Create(ctx context.Context, ret *entity.ReturnRequest) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO return_requests (id, invoice_ref, product_id, warehouse_id, quantity, reason, status,
			request_date, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9, $10, $11)`,
		ret.ID, ret.InvoiceRef, ret.ProductID, nullIfEmpty(ret.WarehouseID), ret.Quantity,
		string(ret.Reason), string(ret.Status), ret.Date, nullIfEmpty(ret.CreatedBy), ret.CreatedAt, ret.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert return: %w", err)
	}
	return nil
}

// GetByID obtiene una devolución por ID.
func (r *ReturnRepo) GetByID(ctx context.Context, id string) (*entity.ReturnRequest, error) {
	return r.get(ctx, `SELECT `+returnColumns+` FROM return_requests WHERE id = $1`, id)
}

// GetForUpdate lee la devolución bloqueando su fila. Requiere transacción.
func (r *ReturnRepo) GetForUpdate(ctx context.Context, id string) (*entity.ReturnRequest, error) {
	ret, err := r.get(ctx, `SELECT `+returnColumns+` FROM return_requests WHERE id = $1 FOR UPDATE`, id)
	return ret, classify("lock return", err)
}

func (r *ReturnRepo) get(ctx context.Context, query, id string) (*entity.ReturnRequest, error) {
	ret, err := scanReturn(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get return: %w", err)
	}
	return ret, nil
}

// Update guarda el resultado de la revisión.
func (r *ReturnRepo) Update(ctx context.Context, ret *entity.ReturnRequest) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE return_requests SET warehouse_id = $2, status = $3, movement_id = $4, reviewed_by = $5,
			reviewed_at = $6, updated_at = $7
		WHERE id = $1`,
		ret.ID, nullIfEmpty(ret.WarehouseID), string(ret.Status), nullIfEmpty(ret.MovementID),
		nullIfEmpty(ret.ReviewedBy), ret.ReviewedAt, ret.UpdatedAt,
	)
	if err != nil {
		return classify("update return", fmt.Errorf("update return: %w", err))
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrReturnNotFound
	}
	return nil
}

// List lista devoluciones, más recientes primero.
func (r *ReturnRepo) List(ctx context.Context, status entity.ReturnStatus, limit, offset int) ([]*entity.ReturnRequest, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+returnColumns+` FROM return_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		string(status), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list returns: %w", err)
	}
	defer rows.Close()
	var list []*entity.ReturnRequest
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan return: %w", err)
		}
		list = append(list, ret)
	}
	return list, rows.Err()
}
