// Package ledger contiene las reglas puras del ledger de inventario: validación
// de solicitudes por tipo de movimiento, cálculo de saldo y esquemas de referencia.
// No accede a ningún store.
package ledger

import (
	"github.com/jhoicas/storeflow-api/internal/domain"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
)

// Request solicitud de movimiento tal como llega del formulario.
type Request struct {
	Kind            entity.MovementKind
	ProductID       string
	Quantity        int64
	WarehouseID     string
	FromWarehouseID string
	ToWarehouseID   string
}

// Validate revisa la forma de la solicitud. Se ejecuta antes de cualquier lectura.
func Validate(r Request) error {
	switch r.Kind {
	case entity.MovementIn, entity.MovementOut, entity.MovementReturn:
		if r.ProductID == "" {
			return domain.ErrInvalidInput
		}
		if r.Quantity < 1 {
			return domain.ErrInvalidQuantity
		}
		if r.WarehouseID == "" {
			return domain.ErrMissingWarehouse
		}
	case entity.MovementTransfer:
		if r.ProductID == "" {
			return domain.ErrInvalidInput
		}
		if r.Quantity < 1 {
			return domain.ErrInvalidQuantity
		}
		if r.FromWarehouseID == "" || r.ToWarehouseID == "" {
			return domain.ErrMissingWarehouse
		}
		if r.FromWarehouseID == r.ToWarehouseID {
			return domain.ErrSameWarehouseTransfer
		}
	default:
		return domain.ErrInvalidMovementKind
	}
	return nil
}

// Legs devuelve el débito y el crédito que el movimiento aplica sobre el saldo.
// En un traslado ambos lados caen sobre el saldo del producto: se debita el origen
// (y se verifica) y luego se acredita el destino.
func Legs(kind entity.MovementKind, quantity int64) (debit, credit int64) {
	switch kind {
	case entity.MovementIn, entity.MovementReturn:
		return 0, quantity
	case entity.MovementOut:
		return quantity, 0
	case entity.MovementTransfer:
		return quantity, quantity
	}
	return 0, 0
}

// NextBalance calcula el saldo resultante. Devuelve ErrInsufficientStock si el
// débito deja el saldo en negativo; en ese caso el saldo devuelto es el original.
func NextBalance(kind entity.MovementKind, balance, quantity int64) (int64, error) {
	debit, credit := Legs(kind, quantity)
	afterDebit := balance - debit
	if afterDebit < 0 {
		return balance, domain.ErrInsufficientStock
	}
	return afterDebit + credit, nil
}
