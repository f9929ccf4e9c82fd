package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/storeflow-api/internal/domain"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
)

var (
	_ repository.MovementRepository = (*MovementRepo)(nil)
	_ repository.SequenceRepository = (*SequenceRepo)(nil)
)

const movementColumns = `id, product_id, kind, quantity,
	COALESCE(warehouse_id, ''), COALESCE(from_warehouse_id, ''), COALESCE(to_warehouse_id, ''),
	balance_after, note, to_char(movement_date, 'YYYY-MM-DD'), created_at, COALESCE(created_by, '')`

// MovementRepo ledger append-only sobre PostgreSQL. La tabla rechaza UPDATE y DELETE por trigger.
type MovementRepo struct {
	q             Querier
	notifyChannel string
}

// NewMovementRepository construye el repositorio. notifyChannel vacío = sin NOTIFY.
func NewMovementRepository(q Querier, notifyChannel string) *MovementRepo {
	return &MovementRepo{q: q, notifyChannel: notifyChannel}
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var m entity.Movement
	var kind string
	err := row.Scan(&m.ID, &m.ProductID, &kind, &m.Quantity,
		&m.WarehouseID, &m.FromWarehouseID, &m.ToWarehouseID,
		&m.BalanceAfter, &m.Note, &m.Date, &m.CreatedAt, &m.CreatedBy)
	if err != nil {
		return nil, err
	}
	m.Kind = entity.MovementKind(kind)
	return &m, nil
}

// Create inserta el movimiento y, si hay canal, encola pg_notify con su id.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO movements (id, product_id, kind, quantity, warehouse_id, from_warehouse_id, to_warehouse_id,
			balance_after, note, movement_date, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::date, $11, $12)`,
		m.ID, m.ProductID, string(m.Kind), m.Quantity,
		nullIfEmpty(m.WarehouseID), nullIfEmpty(m.FromWarehouseID), nullIfEmpty(m.ToWarehouseID),
		m.BalanceAfter, m.Note, m.Date, m.CreatedAt, nullIfEmpty(m.CreatedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: movimiento %s", domain.ErrDuplicate, m.ID)
		}
		return classify("insert movement", fmt.Errorf("insert movement: %w", err))
	}
	if r.notifyChannel != "" {
		if _, err := r.q.Exec(ctx, `SELECT pg_notify($1, $2)`, r.notifyChannel, m.ID); err != nil {
			return fmt.Errorf("notify movement: %w", err)
		}
	}
	return nil
}

// GetByID obtiene un movimiento por referencia.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM movements WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// List historial filtrado, más reciente primero. seq desempata movimientos del mismo instante.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	query, args := movementListQuery(f)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// movementListQuery arma el SELECT del historial. From es inclusivo y To exclusivo.
func movementListQuery(f repository.MovementFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}
	if f.ProductID != "" {
		add("product_id = ?", f.ProductID)
	}
	if f.WarehouseID != "" {
		add("(warehouse_id = ? OR from_warehouse_id = ? OR to_warehouse_id = ?)", f.WarehouseID)
	}
	if f.Kind != "" {
		add("kind = ?", string(f.Kind))
	}
	if f.From != nil {
		add("created_at >= ?", *f.From)
	}
	if f.To != nil {
		add("created_at < ?", *f.To)
	}

	query := `SELECT ` + movementColumns + ` FROM movements`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, seq DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	return query, args
}

// ExistsForProduct indica si el producto tiene historia en el ledger.
func (r *MovementRepo) ExistsForProduct(ctx context.Context, productID string) (bool, error) {
	var ok bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM movements WHERE product_id = $1)`, productID).Scan(&ok); err != nil {
		return false, fmt.Errorf("movements exist for product: %w", err)
	}
	return ok, nil
}

// ExistsForWarehouse indica si la bodega aparece en movimientos o devoluciones.
func (r *MovementRepo) ExistsForWarehouse(ctx context.Context, warehouseID string) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM movements WHERE warehouse_id = $1 OR from_warehouse_id = $1 OR to_warehouse_id = $1)
		    OR EXISTS (SELECT 1 FROM return_requests WHERE warehouse_id = $1)`, warehouseID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("movements exist for warehouse: %w", err)
	}
	return ok, nil
}

// SequenceRepo contador diario de salidas en la tabla daily_sequences.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el contador. Debe usarse con la tx del movimiento.
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// Next incrementa la secuencia del día con un upsert; la fila queda bloqueada hasta el commit.
func (r *SequenceRepo) Next(ctx context.Context, day string) (int64, error) {
	var v int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO daily_sequences (day, value) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET value = daily_sequences.value + 1
		RETURNING value`, day,
	).Scan(&v)
	if err != nil {
		return 0, classify("next sequence", fmt.Errorf("next sequence: %w", err))
	}
	return v, nil
}
