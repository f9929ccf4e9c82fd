package entity

import "time"

// MovementKind es el tipo de un movimiento del ledger.
type MovementKind string

// Tipos de movimiento de inventario.
const (
	MovementIn       MovementKind = "in"       // entrada
	MovementOut      MovementKind = "out"      // salida
	MovementTransfer MovementKind = "transfer" // traslado entre bodegas
	MovementReturn   MovementKind = "return"   // reingreso por devolución aprobada
)

// DateLayout formato de la fecha de texto de movimientos y devoluciones.
const DateLayout = "2006-01-02"

// Movement es un registro inmutable del ledger. Nunca se edita ni se elimina.
// Para traslados WarehouseID queda vacío y se usan FromWarehouseID/ToWarehouseID.
type Movement struct {
	ID              string // referencia: MMDDNNNN para salidas, IN-/TR-/RT-<uuid> para el resto
	ProductID       string
	Kind            MovementKind
	Quantity        int64 // siempre positivo; el signo lo da Kind
	WarehouseID     string
	FromWarehouseID string
	ToWarehouseID   string
	BalanceAfter    int64 // saldo del producto después de aplicar el movimiento
	Note            string
	Date            string // YYYY-MM-DD en la zona horaria del ledger
	CreatedAt       time.Time
	CreatedBy       string
}
