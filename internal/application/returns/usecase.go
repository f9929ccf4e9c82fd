// Package returns implementa el flujo de devoluciones: solicitud, aprobación y rechazo.
// La aprobación puede reingresar el producto al inventario mediante el ledger.
package returns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/storeflow-api/internal/application/dto"
	"github.com/jhoicas/storeflow-api/internal/application/ledger"
	"github.com/jhoicas/storeflow-api/internal/domain"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
	"github.com/jhoicas/storeflow-api/pkg/logger"
)

// TxRunner ejecuta la revisión de una devolución y su reingreso en una sola transacción.
type TxRunner interface {
	RunReturn(ctx context.Context, fn func(
		returnRepo repository.ReturnRepository,
		products repository.ProductRepository,
		movements repository.MovementRepository,
		sequences repository.SequenceRepository,
	) error) error
}

// Config comportamiento de la aprobación.
type Config struct {
	RestockOnApproval bool   // la aprobación genera un movimiento "return" (+cantidad)
	DefaultWarehouse  string // bodega de reingreso si la devolución no indica una
}

// UseCase casos de uso de devoluciones.
type UseCase struct {
	txRunner      TxRunner
	returnRepo    repository.ReturnRepository
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
	engine        *ledger.Engine
	cfg           Config
	loc           *time.Location
	log           *logger.Logger
}

// NewUseCase construye el caso de uso.
func NewUseCase(
	txRunner TxRunner,
	returnRepo repository.ReturnRepository,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	engine *ledger.Engine,
	cfg Config,
	loc *time.Location,
	log *logger.Logger,
) *UseCase {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		txRunner:      txRunner,
		returnRepo:    returnRepo,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
		engine:        engine,
		cfg:           cfg,
		loc:           loc,
		log:           log.Component("returns"),
	}
}

// Create registra una devolución en estado pending.
func (uc *UseCase) Create(ctx context.Context, userID string, in dto.CreateReturnRequest) (*dto.ReturnResponse, error) {
	in.InvoiceRef = strings.TrimSpace(in.InvoiceRef)
	if in.InvoiceRef == "" || in.ProductID == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.Quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	reason := entity.ReturnReason(in.Reason)
	if !reason.Valid() {
		return nil, domain.ErrInvalidReason
	}
	product, err := uc.productRepo.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	if in.WarehouseID != "" {
		wh, err := uc.warehouseRepo.GetByID(ctx, in.WarehouseID)
		if err != nil {
			return nil, err
		}
		if wh == nil {
			return nil, domain.ErrWarehouseNotFound
		}
	}

	now := time.Now().In(uc.loc)
	ret := &entity.ReturnRequest{
		ID:          uuid.New().String(),
		InvoiceRef:  in.InvoiceRef,
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Quantity:    in.Quantity,
		Reason:      reason,
		Status:      entity.ReturnPending,
		Date:        now.Format(entity.DateLayout),
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.returnRepo.Create(ctx, ret); err != nil {
		return nil, err
	}
	return toReturnResponse(ret), nil
}

// Approve pasa la devolución de pending a approved. Con RestockOnApproval el
// reingreso al inventario ocurre en la misma transacción que el cambio de estado.
func (uc *UseCase) Approve(ctx context.Context, reviewerID, id string) (*dto.ReturnResponse, error) {
	return uc.review(ctx, reviewerID, id, entity.ReturnApproved)
}

// Reject pasa la devolución de pending a rejected.
func (uc *UseCase) Reject(ctx context.Context, reviewerID, id string) (*dto.ReturnResponse, error) {
	return uc.review(ctx, reviewerID, id, entity.ReturnRejected)
}

func (uc *UseCase) review(ctx context.Context, reviewerID, id string, status entity.ReturnStatus) (*dto.ReturnResponse, error) {
	if status == entity.ReturnApproved && uc.cfg.RestockOnApproval {
		if err := uc.checkRestockWarehouse(ctx, id); err != nil {
			return nil, err
		}
	}

	var (
		reviewed *entity.ReturnRequest
		mov      *entity.Movement
	)
	err := uc.engine.Retry(ctx, entity.MovementReturn, func(ctx context.Context) error {
		return uc.txRunner.RunReturn(ctx, func(
			returnRepo repository.ReturnRepository,
			products repository.ProductRepository,
			movements repository.MovementRepository,
			sequences repository.SequenceRepository,
		) error {
			ret, err := returnRepo.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if ret == nil {
				return domain.ErrReturnNotFound
			}
			if !ret.Review(status, reviewerID, time.Now().In(uc.loc)) {
				return domain.ErrInvalidTransition
			}

			var m *entity.Movement
			if status == entity.ReturnApproved && uc.cfg.RestockOnApproval {
				if m, err = uc.restock(ctx, products, movements, sequences, ret, reviewerID); err != nil {
					return err
				}
			}
			if err := returnRepo.Update(ctx, ret); err != nil {
				return err
			}
			reviewed, mov = ret, m
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("return_id", id).Str("status", string(status)).Str("reviewer_id", reviewerID).Msg("devolución revisada")
	if mov != nil {
		uc.engine.Committed(ctx, mov)
	}
	return toReturnResponse(reviewed), nil
}

// checkRestockWarehouse verifica antes de abrir la transacción que la bodega de reingreso exista.
func (uc *UseCase) checkRestockWarehouse(ctx context.Context, id string) error {
	ret, err := uc.returnRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ret == nil {
		return domain.ErrReturnNotFound
	}
	if ret.Status != entity.ReturnPending {
		return nil // la transición la rechaza la transacción
	}
	warehouseID := ret.WarehouseID
	if warehouseID == "" {
		warehouseID = uc.cfg.DefaultWarehouse
	}
	if warehouseID == "" {
		return nil // restock lo rechaza con ErrMissingWarehouse
	}
	wh, err := uc.warehouseRepo.GetByID(ctx, warehouseID)
	if err != nil {
		return err
	}
	if wh == nil {
		return domain.ErrWarehouseNotFound
	}
	return nil
}

// restock reingresa la cantidad devuelta con los repositorios de la transacción en curso.
func (uc *UseCase) restock(
	ctx context.Context,
	products repository.ProductRepository,
	movements repository.MovementRepository,
	sequences repository.SequenceRepository,
	ret *entity.ReturnRequest,
	reviewerID string,
) (*entity.Movement, error) {
	warehouseID := ret.WarehouseID
	if warehouseID == "" {
		warehouseID = uc.cfg.DefaultWarehouse
	}
	if warehouseID == "" {
		return nil, fmt.Errorf("%w: la devolución no tiene bodega de reingreso", domain.ErrMissingWarehouse)
	}
	m, err := uc.engine.ApplyReturnInTx(ctx, products, movements, sequences, ledger.ReturnInput{
		ReturnID:    ret.ID,
		ProductID:   ret.ProductID,
		Quantity:    ret.Quantity,
		WarehouseID: warehouseID,
		UserID:      reviewerID,
	})
	if err != nil {
		return nil, err
	}
	ret.WarehouseID = warehouseID
	ret.MovementID = m.ID
	return m, nil
}

// GetByID devuelve una devolución.
func (uc *UseCase) GetByID(ctx context.Context, id string) (*dto.ReturnResponse, error) {
	ret, err := uc.returnRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, domain.ErrReturnNotFound
	}
	return toReturnResponse(ret), nil
}

// List devuelve devoluciones, más recientes primero. status vacío = todas.
func (uc *UseCase) List(ctx context.Context, status string, limit, offset int) (*dto.ReturnListResponse, error) {
	st := entity.ReturnStatus(status)
	switch st {
	case "", entity.ReturnPending, entity.ReturnApproved, entity.ReturnRejected:
	default:
		return nil, fmt.Errorf("%w: estado %q", domain.ErrValidation, status)
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	list, err := uc.returnRepo.List(ctx, st, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ReturnResponse, 0, len(list))
	for _, r := range list {
		items = append(items, *toReturnResponse(r))
	}
	return &dto.ReturnListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func toReturnResponse(r *entity.ReturnRequest) *dto.ReturnResponse {
	if r == nil {
		return nil
	}
	return &dto.ReturnResponse{
		ID:          r.ID,
		InvoiceRef:  r.InvoiceRef,
		ProductID:   r.ProductID,
		WarehouseID: r.WarehouseID,
		Quantity:    r.Quantity,
		Reason:      string(r.Reason),
		Status:      string(r.Status),
		Date:        r.Date,
		MovementID:  r.MovementID,
		CreatedBy:   r.CreatedBy,
		ReviewedBy:  r.ReviewedBy,
		ReviewedAt:  r.ReviewedAt,
		CreatedAt:   r.CreatedAt,
	}
}
