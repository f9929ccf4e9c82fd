package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/storeflow-api/internal/application/reports"
)

// ReportHandler dashboard, reportes y exportaciones (protegido).
type ReportHandler struct {
	uc  *reports.UseCase
	loc *time.Location
}

// NewReportHandler construye el handler.
func NewReportHandler(uc *reports.UseCase, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReportHandler{uc: uc, loc: loc}
}

// Dashboard godoc
// @Summary      Resumen del inventario
// @Description  Totales, valor del inventario y entradas/salidas de los últimos 6 meses.
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.DashboardSummaryDTO
// @Router       /api/reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *fiber.Ctx) error {
	out, err := h.uc.Dashboard(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// LowStock godoc
// @Summary      Productos en o bajo el mínimo
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        limit  query  int  false  "Límite"  default(100)
// @Success      200    {array}  dto.LowStockDTO
// @Router       /api/reports/low-stock [get]
func (h *ReportHandler) LowStock(c *fiber.Ctx) error {
	out, err := h.uc.LowStock(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(out), "items": out})
}

// StockByWarehouse godoc
// @Summary      Saldo por producto y bodega
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.WarehouseStockDTO
// @Router       /api/reports/stock-by-warehouse [get]
func (h *ReportHandler) StockByWarehouse(c *fiber.Ctx) error {
	out, err := h.uc.StockByWarehouse(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(out), "items": out})
}

// ReturnsByReason godoc
// @Summary      Devoluciones por motivo
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "pending | approved | rejected"
// @Success      200     {array}  dto.ReasonCountDTO
// @Failure      400     {object}  dto.ErrorResponse
// @Router       /api/reports/returns-by-reason [get]
func (h *ReportHandler) ReturnsByReason(c *fiber.Ctx) error {
	out, err := h.uc.ReturnsByReason(c.UserContext(), c.Query("status"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"items": out})
}

// MonthlyMovements godoc
// @Summary      Entradas y salidas por mes
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        from  query  string  false  "YYYY-MM (por defecto hace 5 meses)"
// @Param        to    query  string  false  "YYYY-MM (por defecto el mes actual)"
// @Success      200   {array}  dto.MonthlyMovementDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/reports/monthly-movements [get]
func (h *ReportHandler) MonthlyMovements(c *fiber.Ctx) error {
	out, err := h.uc.MonthlyMovements(c.UserContext(), c.Query("from"), c.Query("to"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"items": out})
}

// MovementsXLSX godoc
// @Summary      Exportar historial a Excel
// @Tags         reports
// @Security     Bearer
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        product_id    query  string  false  "Producto"
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        type          query  string  false  "in | out | transfer | return"
// @Param        from          query  string  false  "YYYY-MM-DD"
// @Param        to            query  string  false  "YYYY-MM-DD"
// @Success      200
// @Router       /api/reports/movements.xlsx [get]
func (h *ReportHandler) MovementsXLSX(c *fiber.Ctx) error {
	filter, err := movementFilter(c, h.loc)
	if err != nil {
		return writeError(c, err)
	}
	data, err := h.uc.ExportMovementsXLSX(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	name := fmt.Sprintf("movimientos-%s.xlsx", time.Now().In(h.loc).Format("20060102"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(data)
}

// StockPDF godoc
// @Summary      Reporte de stock en PDF
// @Tags         reports
// @Security     Bearer
// @Produce      application/pdf
// @Success      200
// @Router       /api/reports/stock.pdf [get]
func (h *ReportHandler) StockPDF(c *fiber.Ctx) error {
	data, err := h.uc.ExportStockPDF(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	name := fmt.Sprintf("stock-%s.pdf", time.Now().In(h.loc).Format("20060102"))
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+name+`"`)
	return c.Send(data)
}
