package ledger

import (
	"context"
	"time"

	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción del store, pasando repositorios atados a esa tx.
// Los conflictos de escritura se devuelven como domain.ErrWriteConflict para que el motor reintente.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		products repository.ProductRepository,
		movements repository.MovementRepository,
		sequences repository.SequenceRepository,
	) error) error
}

// Publisher recibe cada movimiento ya confirmado (Kafka, Redis, broadcaster en memoria).
// Es best effort: un error se registra en el log y no afecta al movimiento.
type Publisher interface {
	PublishMovement(ctx context.Context, movement *entity.Movement) error
}

// Metrics observa el motor. La implementación Prometheus vive en infrastructure/metrics.
type Metrics interface {
	MovementRecorded(kind entity.MovementKind, duration time.Duration)
	MovementRejected(kind entity.MovementKind, reason string)
	ConflictRetried(kind entity.MovementKind)
}

type nopMetrics struct{}

func (nopMetrics) MovementRecorded(entity.MovementKind, time.Duration) {}
func (nopMetrics) MovementRejected(entity.MovementKind, string)        {}
func (nopMetrics) ConflictRetried(entity.MovementKind)                 {}
