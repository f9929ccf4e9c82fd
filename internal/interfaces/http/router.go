package http

import (
	nethttp "net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jhoicas/storeflow-api/internal/application/auth"
	"github.com/jhoicas/storeflow-api/internal/application/feed"
	"github.com/jhoicas/storeflow-api/internal/application/ledger"
	"github.com/jhoicas/storeflow-api/internal/application/reports"
	"github.com/jhoicas/storeflow-api/internal/application/returns"
	"github.com/jhoicas/storeflow-api/internal/application/usecase"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
)

// Metrics lo que el router necesita de la capa de métricas.
type Metrics interface {
	HTTPMetrics
	StreamMetrics
	Handler() nethttp.Handler
}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      *auth.AuthUseCase
	ProductUC   *usecase.ProductUseCase
	WarehouseUC *usecase.WarehouseUseCase
	UserUC      *usecase.UserUseCase
	Engine      *ledger.Engine
	Projector   *feed.Projector
	ReturnsUC   *returns.UseCase
	ReportsUC   *reports.UseCase
	Metrics     Metrics        // opcional
	MetricsPath string         // por defecto /metrics
	Location    *time.Location // día calendario de los filtros por fecha
	ServiceName string
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	var streamMetrics StreamMetrics = nopMetrics{}
	if deps.Metrics != nil {
		app.Use(MetricsMiddleware(deps.Metrics))
		streamMetrics = deps.Metrics
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		status := "ok"
		if deps.Projector != nil {
			select {
			case <-deps.Projector.Ready():
			default:
				status = "starting"
			}
		}
		return c.JSON(fiber.Map{"status": status, "service": deps.ServiceName})
	})

	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	catalogEditors := RequireRole(entity.RoleAdmin, entity.RoleManager)

	// Products
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Post("/", catalogEditors, productHandler.Create)
	products.Put("/:id", catalogEditors, productHandler.Update)
	products.Delete("/:id", catalogEditors, productHandler.Delete)

	// Warehouses
	warehouses := protected.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)
	warehouses.Post("/", catalogEditors, warehouseHandler.Create)
	warehouses.Put("/:id", catalogEditors, warehouseHandler.Update)
	warehouses.Delete("/:id", catalogEditors, warehouseHandler.Delete)

	// Inventory: cualquier rol autenticado registra movimientos
	invGroup := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Engine, deps.Projector, streamMetrics, deps.Location)
	invGroup.Post("/stock-in", inventoryHandler.StockIn)
	invGroup.Post("/stock-out", inventoryHandler.StockOut)
	invGroup.Post("/transfer", inventoryHandler.Transfer)
	invGroup.Post("/movements", inventoryHandler.RegisterMovement)
	invGroup.Get("/movements", inventoryHandler.ListMovements)
	invGroup.Get("/movements/:id", inventoryHandler.GetMovement)
	invGroup.Get("/feed", inventoryHandler.Feed)
	invGroup.Get("/feed/stream", inventoryHandler.Stream)

	// Returns
	returnsGroup := protected.Group("/returns")
	returnHandler := NewReturnHandler(deps.ReturnsUC)
	returnsGroup.Post("/", returnHandler.Create)
	returnsGroup.Get("/", returnHandler.List)
	returnsGroup.Get("/:id", returnHandler.GetByID)
	returnsGroup.Post("/:id/approve", catalogEditors, returnHandler.Approve)
	returnsGroup.Post("/:id/reject", catalogEditors, returnHandler.Reject)

	// Reports
	reportsGroup := protected.Group("/reports")
	reportHandler := NewReportHandler(deps.ReportsUC, deps.Location)
	reportsGroup.Get("/dashboard", reportHandler.Dashboard)
	reportsGroup.Get("/low-stock", reportHandler.LowStock)
	reportsGroup.Get("/stock-by-warehouse", reportHandler.StockByWarehouse)
	reportsGroup.Get("/returns-by-reason", reportHandler.ReturnsByReason)
	reportsGroup.Get("/monthly-movements", reportHandler.MonthlyMovements)
	reportsGroup.Get("/movements.xlsx", reportHandler.MovementsXLSX)
	reportsGroup.Get("/stock.pdf", reportHandler.StockPDF)

	// Users (solo admin)
	users := protected.Group("/users", RequireRole(entity.RoleAdmin))
	userHandler := NewUserHandler(deps.UserUC)
	users.Get("/", userHandler.List)
	users.Get("/:id", userHandler.GetByID)
}
