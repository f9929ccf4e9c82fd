// Package ledger es el motor de movimientos de inventario: aplica entradas, salidas,
// traslados y reingresos sobre el saldo del producto y agrega el registro al log,
// ambos en la misma transacción.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/jhoicas/storeflow-api/internal/application/dto"
	"github.com/jhoicas/storeflow-api/internal/domain"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	domledger "github.com/jhoicas/storeflow-api/internal/domain/ledger"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
	"github.com/jhoicas/storeflow-api/pkg/logger"
)

// Límites de paginación del historial.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// MovementInput solicitud de movimiento.
// Para in/out: WarehouseID. Para transfer: FromWarehouseID y ToWarehouseID distintos.
type MovementInput struct {
	Kind            entity.MovementKind
	ProductID       string
	Quantity        int64
	WarehouseID     string
	FromWarehouseID string
	ToWarehouseID   string
	UserID          string
	Note            string
}

func (in MovementInput) request() domledger.Request {
	return domledger.Request{
		Kind:            in.Kind,
		ProductID:       in.ProductID,
		Quantity:        in.Quantity,
		WarehouseID:     in.WarehouseID,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
	}
}

// RetryPolicy controla el reintento ante conflictos de escritura.
type RetryPolicy struct {
	MaxAttempts int // 0 = sin límite; el contexto acota la espera
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Engine motor del ledger. No guarda estado autoritativo: todo vive en el store.
type Engine struct {
	txRunner      TxRunner
	warehouseRepo repository.WarehouseRepository
	movementRepo  repository.MovementRepository

	loc        *time.Location
	now        func() time.Time
	retry      RetryPolicy
	log        *logger.Logger
	metrics    Metrics
	publishers []Publisher
}

// Option configura el Engine.
type Option func(*Engine)

// WithLocation zona horaria del día calendario (referencias de salida y fecha de texto).
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRetry política de reintentos.
func WithRetry(p RetryPolicy) Option {
	return func(e *Engine) { e.retry = p }
}

// WithLogger logger del motor.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l.Component("ledger") }
}

// WithMetrics métricas del motor.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithPublishers agrega destinos post-commit.
func WithPublishers(p ...Publisher) Option {
	return func(e *Engine) {
		for _, pub := range p {
			if pub != nil {
				e.publishers = append(e.publishers, pub)
			}
		}
	}
}

// NewEngine construye el motor.
func NewEngine(
	txRunner TxRunner,
	warehouseRepo repository.WarehouseRepository,
	movementRepo repository.MovementRepository,
	opts ...Option,
) *Engine {
	e := &Engine{
		txRunner:      txRunner,
		warehouseRepo: warehouseRepo,
		movementRepo:  movementRepo,
		loc:           time.Local,
		now:           time.Now,
		retry:         RetryPolicy{BaseBackoff: 5 * time.Millisecond, MaxBackoff: 500 * time.Millisecond},
		log:           logger.Nop(),
		metrics:       nopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ApplyMovement registra una entrada, salida o traslado.
// Valida la forma antes de tocar el store, verifica bodegas y luego, en una sola
// transacción: bloquea el producto, calcula el saldo, lo escribe y agrega el movimiento.
// Ante conflicto de escritura re-ejecuta la transacción completa con una lectura nueva.
func (e *Engine) ApplyMovement(ctx context.Context, in MovementInput) (*entity.Movement, error) {
	if in.Kind == entity.MovementReturn {
		// los reingresos solo nacen de una devolución aprobada
		e.metrics.MovementRejected(in.Kind, "validation")
		return nil, domain.ErrInvalidMovementKind
	}
	if err := domledger.Validate(in.request()); err != nil {
		e.metrics.MovementRejected(in.Kind, "validation")
		return nil, err
	}
	if err := e.checkWarehouses(ctx, in); err != nil {
		e.metrics.MovementRejected(in.Kind, reasonOf(err))
		return nil, err
	}

	start := time.Now()
	var mov *entity.Movement
	err := e.Retry(ctx, in.Kind, func(ctx context.Context) error {
		return e.txRunner.Run(ctx, func(
			products repository.ProductRepository,
			movements repository.MovementRepository,
			sequences repository.SequenceRepository,
		) error {
			m, err := e.record(ctx, products, movements, sequences, in)
			if err != nil {
				return err
			}
			mov = m
			return nil
		})
	})
	if err != nil {
		e.metrics.MovementRejected(in.Kind, reasonOf(err))
		e.log.Warn().Err(err).
			Str("kind", string(in.Kind)).
			Str("product_id", in.ProductID).
			Int64("quantity", in.Quantity).
			Msg("movimiento rechazado")
		return nil, err
	}

	e.metrics.MovementRecorded(mov.Kind, time.Since(start))
	e.Committed(ctx, mov)
	return mov, nil
}

// OpenProduct crea el producto y, si openingQty > 0, registra la entrada inicial en la
// misma transacción: el saldo de apertura también queda en el log.
func (e *Engine) OpenProduct(ctx context.Context, product *entity.Product, openingQty int64, warehouseID, userID string) (*entity.Movement, error) {
	if openingQty < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	in := MovementInput{
		Kind:        entity.MovementIn,
		ProductID:   product.ID,
		Quantity:    openingQty,
		WarehouseID: warehouseID,
		UserID:      userID,
		Note:        "saldo inicial",
	}
	if openingQty > 0 {
		if err := domledger.Validate(in.request()); err != nil {
			return nil, err
		}
		if err := e.checkWarehouses(ctx, in); err != nil {
			return nil, err
		}
	}

	var mov *entity.Movement
	err := e.Retry(ctx, entity.MovementIn, func(ctx context.Context) error {
		mov = nil
		return e.txRunner.Run(ctx, func(
			products repository.ProductRepository,
			movements repository.MovementRepository,
			sequences repository.SequenceRepository,
		) error {
			p := *product
			p.Quantity = 0
			p.Version = 0
			if err := products.Create(ctx, &p); err != nil {
				return err
			}
			if openingQty == 0 {
				return nil
			}
			m, err := e.record(ctx, products, movements, sequences, in)
			if err != nil {
				return err
			}
			mov = m
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if mov != nil {
		product.Quantity = mov.BalanceAfter
		e.metrics.MovementRecorded(mov.Kind, 0)
		e.Committed(ctx, mov)
	}
	return mov, nil
}

// ReturnInput reingreso por devolución aprobada.
type ReturnInput struct {
	ReturnID    string
	ProductID   string
	Quantity    int64
	WarehouseID string
	UserID      string
}

// ApplyReturnInTx registra un movimiento "return" (+q) con los repositorios de la
// transacción del caller. El caller confirma y luego llama a Committed.
func (e *Engine) ApplyReturnInTx(
	ctx context.Context,
	products repository.ProductRepository,
	movements repository.MovementRepository,
	sequences repository.SequenceRepository,
	in ReturnInput,
) (*entity.Movement, error) {
	mi := MovementInput{
		Kind:        entity.MovementReturn,
		ProductID:   in.ProductID,
		Quantity:    in.Quantity,
		WarehouseID: in.WarehouseID,
		UserID:      in.UserID,
		Note:        in.ReturnID,
	}
	if err := domledger.Validate(mi.request()); err != nil {
		return nil, err
	}
	return e.record(ctx, products, movements, sequences, mi)
}

// Committed ejecuta los hooks post-commit: log y publicación. No falla.
func (e *Engine) Committed(ctx context.Context, mov *entity.Movement) {
	e.log.Info().
		Str("movement_id", mov.ID).
		Str("kind", string(mov.Kind)).
		Str("product_id", mov.ProductID).
		Int64("quantity", mov.Quantity).
		Int64("balance_after", mov.BalanceAfter).
		Msg("movimiento registrado")

	// la publicación no depende de que el request siga vivo
	pubCtx := context.WithoutCancel(ctx)
	for _, p := range e.publishers {
		if err := p.PublishMovement(pubCtx, mov); err != nil {
			e.log.Warn().Err(err).Str("movement_id", mov.ID).Msg("publicar movimiento")
		}
	}
}

// ListMovements historial filtrado, más reciente primero.
func (e *Engine) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]*entity.Movement, error) {
	if filter.Kind != "" {
		switch filter.Kind {
		case entity.MovementIn, entity.MovementOut, entity.MovementTransfer, entity.MovementReturn:
		default:
			return nil, domain.ErrInvalidMovementKind
		}
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("%w: rango de fechas invertido", domain.ErrValidation)
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultPageSize
	}
	if filter.Limit > MaxPageSize {
		filter.Limit = MaxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return e.movementRepo.List(ctx, filter)
}

// GetMovement devuelve un movimiento por referencia.
func (e *Engine) GetMovement(ctx context.Context, id string) (*entity.Movement, error) {
	m, err := e.movementRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: movimiento", domain.ErrNotFound)
	}
	return m, nil
}

// record es el read-modify-write dentro de la transacción. Comparte la lógica entre
// ApplyMovement, OpenProduct y ApplyReturnInTx.
func (e *Engine) record(
	ctx context.Context,
	products repository.ProductRepository,
	movements repository.MovementRepository,
	sequences repository.SequenceRepository,
	in MovementInput,
) (*entity.Movement, error) {
	product, err := products.GetForUpdate(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}

	balance, err := domledger.NextBalance(in.Kind, product.Quantity, in.Quantity)
	if err != nil {
		return nil, fmt.Errorf("%w: disponible %d, solicitado %d", err, product.Quantity, in.Quantity)
	}

	now := e.now().In(e.loc)
	id, err := e.reference(ctx, sequences, in.Kind, now)
	if err != nil {
		return nil, err
	}

	if err := products.UpdateQuantity(ctx, product.ID, balance, product.Version); err != nil {
		return nil, err
	}

	mov := &entity.Movement{
		ID:           id,
		ProductID:    product.ID,
		Kind:         in.Kind,
		Quantity:     in.Quantity,
		BalanceAfter: balance,
		Note:         in.Note,
		Date:         domledger.DayKey(now),
		CreatedAt:    now,
		CreatedBy:    in.UserID,
	}
	if in.Kind == entity.MovementTransfer {
		mov.FromWarehouseID = in.FromWarehouseID
		mov.ToWarehouseID = in.ToWarehouseID
	} else {
		mov.WarehouseID = in.WarehouseID
	}
	if err := movements.Create(ctx, mov); err != nil {
		return nil, err
	}
	return mov, nil
}

// reference asigna el id del movimiento. Las salidas toman la siguiente secuencia del
// día desde el store (misma transacción); el resto usa un token único.
func (e *Engine) reference(ctx context.Context, sequences repository.SequenceRepository, kind entity.MovementKind, now time.Time) (string, error) {
	if kind != entity.MovementOut {
		return domledger.TokenReference(kind), nil
	}
	seq, err := sequences.Next(ctx, domledger.DayKey(now))
	if err != nil {
		return "", err
	}
	return domledger.OutboundReference(now, seq), nil
}

func (e *Engine) checkWarehouses(ctx context.Context, in MovementInput) error {
	ids := []string{in.WarehouseID}
	if in.Kind == entity.MovementTransfer {
		ids = []string{in.FromWarehouseID, in.ToWarehouseID}
	}
	for _, id := range ids {
		wh, err := e.warehouseRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if wh == nil {
			return domain.ErrWarehouseNotFound
		}
	}
	return nil
}

// Retry re-ejecuta fn mientras devuelva ErrWriteConflict. Si se agotan los
// intentos o vence el contexto devuelve ErrTransientStore envolviendo la última causa.
func (e *Engine) Retry(ctx context.Context, kind entity.MovementKind, fn func(context.Context) error) error {
	var lastConflict error
	attempts := 0
	err := retry.Do(ctx, e.backoff(), func(ctx context.Context) error {
		attempts++
		err := fn(ctx)
		if errors.Is(err, domain.ErrWriteConflict) {
			lastConflict = err
			e.metrics.ConflictRetried(kind)
			e.log.Debug().Err(err).Int("attempt", attempts).Str("kind", string(kind)).Msg("conflicto de escritura, reintentando")
			return retry.RetryableError(err)
		}
		return err
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrWriteConflict):
		return fmt.Errorf("%w: %d intentos: %w", domain.ErrTransientStore, attempts, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		if lastConflict != nil {
			return fmt.Errorf("%w: %w (último conflicto: %v)", domain.ErrTransientStore, err, lastConflict)
		}
		return fmt.Errorf("%w: %w", domain.ErrTransientStore, err)
	}
	return err
}

func (e *Engine) backoff() retry.Backoff {
	base := e.retry.BaseBackoff
	if base <= 0 {
		base = time.Millisecond
	}
	b := retry.NewExponential(base)
	b = retry.WithJitterPercent(20, b)
	if e.retry.MaxBackoff > 0 {
		b = retry.WithCappedDuration(e.retry.MaxBackoff, b)
	}
	if e.retry.MaxAttempts > 0 {
		b = retry.WithMaxRetries(uint64(e.retry.MaxAttempts-1), b)
	}
	return b
}

// reasonOf etiqueta del rechazo para métricas.
func reasonOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrTransientStore):
		return "transient"
	}
	return "error"
}

// ToMovementResponse adapta un movimiento al DTO de salida.
func ToMovementResponse(m *entity.Movement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:              m.ID,
		ProductID:       m.ProductID,
		Type:            string(m.Kind),
		Quantity:        m.Quantity,
		WarehouseID:     m.WarehouseID,
		FromWarehouseID: m.FromWarehouseID,
		ToWarehouseID:   m.ToWarehouseID,
		BalanceAfter:    m.BalanceAfter,
		Note:            m.Note,
		Date:            m.Date,
		CreatedAt:       m.CreatedAt,
		CreatedBy:       m.CreatedBy,
	}
}
