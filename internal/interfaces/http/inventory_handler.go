package http

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/storeflow-api/internal/application/dto"
	"github.com/jhoicas/storeflow-api/internal/application/feed"
	"github.com/jhoicas/storeflow-api/internal/application/ledger"
	"github.com/jhoicas/storeflow-api/internal/domain"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
)

const streamHeartbeat = 15 * time.Second

// InventoryHandler movimientos de stock, historial y feed en vivo (protegido).
type InventoryHandler struct {
	engine    *ledger.Engine
	projector *feed.Projector
	metrics   StreamMetrics
	loc       *time.Location
}

// NewInventoryHandler construye el handler. loc interpreta las fechas from/to del historial.
func NewInventoryHandler(engine *ledger.Engine, projector *feed.Projector, metrics StreamMetrics, loc *time.Location) *InventoryHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &InventoryHandler{engine: engine, projector: projector, metrics: metrics, loc: loc}
}

// StockIn godoc
// @Summary      Registrar entrada
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockInRequest  true  "product_id, warehouse_id, quantity"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/stock-in [post]
func (h *InventoryHandler) StockIn(c *fiber.Ctx) error {
	var in dto.StockInRequest
	if err := c.BodyParser(&in); err != nil {
		return quantityBodyError(c, err)
	}
	return h.apply(c, ledger.MovementInput{
		Kind:        entity.MovementIn,
		ProductID:   in.ProductID,
		Quantity:    in.Quantity,
		WarehouseID: in.WarehouseID,
		Note:        in.Note,
	})
}

// StockOut godoc
// @Summary      Registrar salida
// @Description  La referencia tiene la forma MMDDNNNN (secuencia diaria).
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockOutRequest  true  "product_id, warehouse_id, quantity"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/stock-out [post]
func (h *InventoryHandler) StockOut(c *fiber.Ctx) error {
	var in dto.StockOutRequest
	if err := c.BodyParser(&in); err != nil {
		return quantityBodyError(c, err)
	}
	return h.apply(c, ledger.MovementInput{
		Kind:        entity.MovementOut,
		ProductID:   in.ProductID,
		Quantity:    in.Quantity,
		WarehouseID: in.WarehouseID,
		Note:        in.Note,
	})
}

// Transfer godoc
// @Summary      Trasladar entre bodegas
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "product_id, from_warehouse_id, to_warehouse_id, quantity"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfer [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return quantityBodyError(c, err)
	}
	return h.apply(c, ledger.MovementInput{
		Kind:            entity.MovementTransfer,
		ProductID:       in.ProductID,
		Quantity:        in.Quantity,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Note:            in.Note,
	})
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de inventario
// @Description  Forma genérica: type = in | out | transfer.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "type, product_id, warehouse_id (o from/to para transfer), quantity"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return quantityBodyError(c, err)
	}
	return h.apply(c, ledger.MovementInput{
		Kind:            entity.MovementKind(strings.ToLower(strings.TrimSpace(in.Type))),
		ProductID:       in.ProductID,
		Quantity:        in.Quantity,
		WarehouseID:     in.WarehouseID,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Note:            in.Note,
	})
}

func (h *InventoryHandler) apply(c *fiber.Ctx, in ledger.MovementInput) error {
	in.UserID = GetUserID(c)
	mov, err := h.engine.ApplyMovement(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ledger.ToMovementResponse(mov))
}

// ListMovements godoc
// @Summary      Historial de movimientos
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  false  "Producto"
// @Param        warehouse_id  query  string  false  "Bodega (origen, destino o propia)"
// @Param        type          query  string  false  "in | out | transfer | return"
// @Param        from          query  string  false  "Desde (YYYY-MM-DD, inclusive)"
// @Param        to            query  string  false  "Hasta (YYYY-MM-DD, inclusive)"
// @Param        limit         query  int     false  "Límite"  default(50)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	filter, err := movementFilter(c, h.loc)
	if err != nil {
		return writeError(c, err)
	}
	items, err := h.engine.ListMovements(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = ledger.DefaultPageSize
	}
	if limit > ledger.MaxPageSize {
		limit = ledger.MaxPageSize
	}
	out := dto.MovementListResponse{
		Items: make([]dto.MovementResponse, 0, len(items)),
		Page:  dto.PageResponse{Limit: limit, Offset: filter.Offset},
	}
	for _, m := range items {
		out.Items = append(out.Items, ledger.ToMovementResponse(m))
	}
	return c.JSON(out)
}

// GetMovement godoc
// @Summary      Obtener movimiento por referencia
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "Referencia (MMDDNNNN, IN-, TR-, RT-)"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/{id} [get]
func (h *InventoryHandler) GetMovement(c *fiber.Ctx) error {
	m, err := h.engine.GetMovement(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(ledger.ToMovementResponse(m))
}

// Feed godoc
// @Summary      Movimientos recientes
// @Description  Vista en memoria, más reciente primero.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.FeedResponse
// @Router       /api/inventory/feed [get]
func (h *InventoryHandler) Feed(c *fiber.Ctx) error {
	items := h.projector.Snapshot()
	out := dto.FeedResponse{Items: make([]dto.MovementResponse, 0, len(items))}
	for _, m := range items {
		out.Items = append(out.Items, ledger.ToMovementResponse(m))
	}
	return c.JSON(out)
}

// Stream godoc
// @Summary      Feed en vivo (SSE)
// @Description  Un evento "movement" por cada movimiento confirmado.
// @Tags         inventory
// @Security     Bearer
// @Produce      text/event-stream
// @Success      200
// @Router       /api/inventory/feed/stream [get]
func (h *InventoryHandler) Stream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	events, cancel := h.projector.Subscribe(32)
	h.metrics.StreamOpened()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer h.metrics.StreamClosed()
		defer cancel()

		ticker := time.NewTicker(streamHeartbeat)
		defer ticker.Stop()

		fmt.Fprint(w, ": conectado\n\n")
		if err := w.Flush(); err != nil {
			return
		}
		for {
			select {
			case m, ok := <-events:
				if !ok {
					return
				}
				payload, err := json.Marshal(ledger.ToMovementResponse(m))
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "id: %s\nevent: movement\ndata: %s\n\n", m.ID, payload)
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			// Flush falla cuando el cliente cerró la conexión.
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
	return nil
}

// movementFilter lee los filtros del historial. from/to son días calendario en loc; to es inclusive.
func movementFilter(c *fiber.Ctx, loc *time.Location) (repository.MovementFilter, error) {
	f := repository.MovementFilter{
		ProductID:   c.Query("product_id"),
		WarehouseID: c.Query("warehouse_id"),
		Kind:        entity.MovementKind(strings.ToLower(c.Query("type"))),
		Limit:       c.QueryInt("limit", ledger.DefaultPageSize),
		Offset:      c.QueryInt("offset", 0),
	}
	if s := c.Query("from"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			return f, fmt.Errorf("%w: from debe tener formato YYYY-MM-DD", domain.ErrValidation)
		}
		f.From = &t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			return f, fmt.Errorf("%w: to debe tener formato YYYY-MM-DD", domain.ErrValidation)
		}
		t = t.AddDate(0, 0, 1)
		f.To = &t
	}
	return f, nil
}
