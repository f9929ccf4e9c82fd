package entity

import "time"

// ReturnReason motivo de una devolución.
type ReturnReason string

// Motivos válidos de devolución.
const (
	ReasonDamaged   ReturnReason = "damaged"
	ReasonWrongItem ReturnReason = "wrong_item"
	ReasonOther     ReturnReason = "other"
)

// Valid indica si el motivo pertenece al catálogo.
func (r ReturnReason) Valid() bool {
	switch r {
	case ReasonDamaged, ReasonWrongItem, ReasonOther:
		return true
	}
	return false
}

// ReturnStatus estado de una devolución. approved y rejected son terminales.
type ReturnStatus string

const (
	ReturnPending  ReturnStatus = "pending"
	ReturnApproved ReturnStatus = "approved"
	ReturnRejected ReturnStatus = "rejected"
)

// ReturnRequest solicitud de devolución de un cliente.
type ReturnRequest struct {
	ID          string
	InvoiceRef  string // factura original
	ProductID   string
	WarehouseID string // bodega donde reingresa el producto al aprobarse
	Quantity    int64
	Reason      ReturnReason
	Status      ReturnStatus
	Date        string // YYYY-MM-DD de la solicitud
	MovementID  string // movimiento "return" generado al aprobar (si aplica)
	CreatedBy   string
	ReviewedBy  string
	ReviewedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Review aplica la transición pending -> approved|rejected. Solo ocurre una vez.
func (r *ReturnRequest) Review(status ReturnStatus, reviewerID string, at time.Time) bool {
	if r.Status != ReturnPending {
		return false
	}
	if status != ReturnApproved && status != ReturnRejected {
		return false
	}
	r.Status = status
	r.ReviewedBy = reviewerID
	r.ReviewedAt = &at
	r.UpdatedAt = at
	return true
}
