package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
)

// Prefijos de las referencias basadas en token.
const (
	PrefixIn       = "IN"
	PrefixTransfer = "TR"
	PrefixReturn   = "RT"
)

// DayKey devuelve la clave de día calendario (YYYY-MM-DD) de t en su propia zona.
func DayKey(t time.Time) string {
	return t.Format(entity.DateLayout)
}

// OutboundReference arma la referencia legible de una salida: MMDD + secuencia de 4 dígitos.
// Una secuencia mayor a 9999 no se trunca.
func OutboundReference(t time.Time, seq int64) string {
	return fmt.Sprintf("%02d%02d%04d", int(t.Month()), t.Day(), seq)
}

// TokenReference genera una referencia única para entradas, traslados y devoluciones.
// UUIDv7 es ordenable por tiempo; si falla la fuente aleatoria se usa v4.
func TokenReference(kind entity.MovementKind) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return tokenPrefix(kind) + "-" + id.String()
}

func tokenPrefix(kind entity.MovementKind) string {
	switch kind {
	case entity.MovementTransfer:
		return PrefixTransfer
	case entity.MovementReturn:
		return PrefixReturn
	default:
		return PrefixIn
	}
}
