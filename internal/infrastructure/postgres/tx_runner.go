package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/storeflow-api/internal/application/ledger"
	"github.com/jhoicas/storeflow-api/internal/application/returns"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
)

var (
	_ ledger.TxRunner  = (*TxRunner)(nil)
	_ returns.TxRunner = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL REPEATABLE READ.
// Los fallos de serialización y deadlocks salen como domain.ErrWriteConflict para
// que el motor del ledger repita la transacción completa.
type TxRunner struct {
	pool          *pgxpool.Pool
	notifyChannel string
}

// NewTxRunner construye el runner. Con notifyChannel no vacío cada movimiento insertado
// emite pg_notify(canal, id), que PostgreSQL entrega solo si la transacción confirma.
func NewTxRunner(pool *pgxpool.Pool, notifyChannel string) *TxRunner {
	return &TxRunner{pool: pool, notifyChannel: notifyChannel}
}

// Run implementa ledger.TxRunner.
func (r *TxRunner) Run(ctx context.Context, fn func(
	products repository.ProductRepository,
	movements repository.MovementRepository,
	sequences repository.SequenceRepository,
) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewProductRepository(tx), NewMovementRepository(tx, r.notifyChannel), NewSequenceRepository(tx))
	})
}

// RunReturn implementa returns.TxRunner.
func (r *TxRunner) RunReturn(ctx context.Context, fn func(
	returnRepo repository.ReturnRepository,
	products repository.ProductRepository,
	movements repository.MovementRepository,
	sequences repository.SequenceRepository,
) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewReturnRepository(tx), NewProductRepository(tx), NewMovementRepository(tx, r.notifyChannel), NewSequenceRepository(tx))
	})
}

func (r *TxRunner) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return classify("tx", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("commit transaction", fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}
