package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo.
// Quantity es el saldo disponible agregado; solo lo modifica el motor del ledger.
type Product struct {
	ID        string
	SKU       string // código de barras o código interno, único
	Name      string
	Category  string
	Price     decimal.Decimal // precio unitario de venta
	MinStock  int64           // umbral de stock mínimo para alertas
	Quantity  int64           // saldo disponible, nunca negativo
	ImageURL  string
	Version   int64 // se incrementa en cada cambio de saldo (control optimista)
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLowStock indica si el saldo está en o por debajo del mínimo configurado.
func (p *Product) IsLowStock() bool {
	return p.Quantity <= p.MinStock
}
