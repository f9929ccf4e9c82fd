package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
// Los errores específicos envuelven a su categoría con %w, así el caller puede
// preguntar por el caso concreto (ErrInvalidQuantity) o por la familia (ErrValidation).
var (
	ErrValidation        = errors.New("entrada inválida")
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")

	// ErrWriteConflict lo devuelve el store cuando otra transacción modificó la misma fila.
	// El motor del ledger lo reintenta; nunca debería llegar al handler.
	ErrWriteConflict = errors.New("conflicto de escritura concurrente")
	// ErrTransientStore se devuelve cuando se agotaron los reintentos o venció el contexto.
	ErrTransientStore = errors.New("almacenamiento no disponible temporalmente")
)

// Validación (antes de cualquier acceso al store).
var (
	ErrInvalidInput          = fmt.Errorf("%w: datos inválidos", ErrValidation)
	ErrInvalidQuantity       = fmt.Errorf("%w: la cantidad debe ser un entero mayor o igual a 1", ErrValidation)
	ErrSameWarehouseTransfer = fmt.Errorf("%w: no se puede trasladar a la misma bodega", ErrValidation)
	ErrInvalidMovementKind   = fmt.Errorf("%w: tipo de movimiento inválido", ErrValidation)
	ErrMissingWarehouse      = fmt.Errorf("%w: bodega requerida", ErrValidation)
	ErrInvalidReason         = fmt.Errorf("%w: motivo de devolución inválido", ErrValidation)
)

// No encontrados.
var (
	ErrProductNotFound   = fmt.Errorf("%w: producto no encontrado", ErrNotFound)
	ErrWarehouseNotFound = fmt.Errorf("%w: bodega no encontrada", ErrNotFound)
	ErrReturnNotFound    = fmt.Errorf("%w: devolución no encontrada", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("%w: usuario no encontrado", ErrNotFound)
)

// Conflictos de estado.
var (
	ErrEmailAlreadyExists = fmt.Errorf("%w: el email ya está registrado", ErrDuplicate)
	ErrInvalidTransition  = fmt.Errorf("%w: la devolución ya fue revisada", ErrConflict)
	ErrInUse              = fmt.Errorf("%w: el recurso tiene movimientos asociados", ErrConflict)
)
