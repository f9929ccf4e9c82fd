package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/storeflow-api/internal/application/auth"
	"github.com/jhoicas/storeflow-api/internal/application/feed"
	"github.com/jhoicas/storeflow-api/internal/application/ledger"
	"github.com/jhoicas/storeflow-api/internal/application/reports"
	"github.com/jhoicas/storeflow-api/internal/application/returns"
	"github.com/jhoicas/storeflow-api/internal/application/usecase"
	"github.com/jhoicas/storeflow-api/internal/domain/repository"
	"github.com/jhoicas/storeflow-api/internal/infrastructure/kafka"
	"github.com/jhoicas/storeflow-api/internal/infrastructure/memory"
	"github.com/jhoicas/storeflow-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/storeflow-api/internal/infrastructure/pdf"
	"github.com/jhoicas/storeflow-api/internal/infrastructure/postgres"
	"github.com/jhoicas/storeflow-api/internal/infrastructure/redisfeed"
	"github.com/jhoicas/storeflow-api/internal/infrastructure/xlsx"
	httpRouter "github.com/jhoicas/storeflow-api/internal/interfaces/http"
	"github.com/jhoicas/storeflow-api/pkg/config"
	"github.com/jhoicas/storeflow-api/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

// stores repositorios y transacciones de un backend concreto.
type stores struct {
	tx interface {
		ledger.TxRunner
		returns.TxRunner
	}
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	movements  repository.MovementRepository
	returns    repository.ReturnRepository
	users      repository.UserRepository
	reports    repository.ReportRepository
	source     feed.Source // LISTEN/NOTIFY o broadcaster en memoria
	publisher  ledger.Publisher
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.App.Store).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es requerido")
	}
	loc, err := cfg.Ledger.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("zona horaria del ledger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer st.close()

	var publishers []ledger.Publisher
	if st.publisher != nil {
		publishers = append(publishers, st.publisher)
	}
	source := st.source

	if cfg.Redis.Enabled() {
		client, err := redisfeed.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		bus := redisfeed.New(client, cfg.Feed.Channel)
		publishers = append(publishers, bus)
		if cfg.Feed.Source == "redis" {
			source = bus
		}
	} else if cfg.Feed.Source == "redis" {
		log.Fatal().Msg("FEED_SOURCE=redis requiere REDIS_ADDR")
	}
	if source == nil {
		log.Fatal().Str("feed_source", cfg.Feed.Source).Msg("FEED_SOURCE no soportado para este almacenamiento")
	}

	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ClientID, log)
		if err != nil {
			log.Fatal().Err(err).Msg("productor Kafka")
		}
		defer producer.Close()
		publishers = append(publishers, producer)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("eventos de movimiento hacia Kafka")
	}

	var prom *metrics.Prometheus
	engineOpts := []ledger.Option{
		ledger.WithLocation(loc),
		ledger.WithRetry(ledger.RetryPolicy{
			MaxAttempts: cfg.Ledger.MaxAttempts,
			BaseBackoff: cfg.Ledger.BaseBackoff,
			MaxBackoff:  cfg.Ledger.MaxBackoff,
		}),
		ledger.WithLogger(log),
		ledger.WithPublishers(publishers...),
	}
	if cfg.Metrics.Enabled {
		prom = metrics.New()
		engineOpts = append(engineOpts, ledger.WithMetrics(prom))
	}
	engine := ledger.NewEngine(st.tx, st.warehouses, st.movements, engineOpts...)

	projector := feed.NewProjector(st.movements, source, cfg.Feed.Size, log)
	go func() {
		if err := projector.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("feed de movimientos detenido")
		}
	}()

	productUC := usecase.NewProductUseCase(st.products, st.movements, engine)
	warehouseUC := usecase.NewWarehouseUseCase(st.warehouses, st.movements)
	userUC := usecase.NewUserUseCase(st.users)
	returnsUC := returns.NewUseCase(st.tx, st.returns, st.products, st.warehouses, engine, returns.Config{
		RestockOnApproval: cfg.Returns.RestockOnApproval,
		DefaultWarehouse:  cfg.Returns.DefaultWarehouse,
	}, loc, log)
	reportsUC := reports.NewUseCase(st.reports, engine, infrapdf.NewMarotoPDFGenerator(cfg.App.Name), xlsx.NewMovementWriter(), loc)
	authUC := auth.NewAuthUseCase(st.users, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Second * 60,
		// sin WriteTimeout: el stream SSE queda abierto
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.HTTP.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Storeflow API",
		}))
	}

	deps := httpRouter.RouterDeps{
		AuthUC:      authUC,
		ProductUC:   productUC,
		WarehouseUC: warehouseUC,
		UserUC:      userUC,
		Engine:      engine,
		Projector:   projector,
		ReturnsUC:   returnsUC,
		ReportsUC:   reportsUC,
		MetricsPath: cfg.Metrics.Path,
		Location:    loc,
		ServiceName: cfg.App.Name,
		JWTSecret:   cfg.JWT.Secret,
	}
	if prom != nil {
		deps.Metrics = prom
	}
	httpRouter.Router(app, deps)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// openStores arma el backend según STORE_DRIVER.
func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	switch strings.ToLower(cfg.App.Store) {
	case "memory":
		if cfg.Feed.Source == "postgres" {
			cfg.Feed.Source = "memory"
		}
		s := memory.New()
		bus := memory.NewBroadcaster()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		return &stores{
			tx:         s,
			products:   s.Products(),
			warehouses: s.Warehouses(),
			movements:  s.Movements(),
			returns:    s.Returns(),
			users:      s.Users(),
			reports:    s.Reports(),
			source:     bus,
			publisher:  bus,
			close:      func() {},
		}, nil
	default:
		if cfg.DB.AutoMigrate {
			if err := postgres.Migrate(ctx, cfg.DB.ConnectionString()); err != nil {
				return nil, err
			}
			log.Info().Msg("migraciones aplicadas")
		}
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		var notify string
		if cfg.Feed.Source == "postgres" {
			notify = cfg.Feed.Channel
		}
		st := &stores{
			tx:         postgres.NewTxRunner(pool, notify),
			products:   postgres.NewProductRepository(pool),
			warehouses: postgres.NewWarehouseRepository(pool),
			movements:  postgres.NewMovementRepository(pool, notify),
			returns:    postgres.NewReturnRepository(pool),
			users:      postgres.NewUserRepository(pool),
			reports:    postgres.NewReportRepository(pool),
			close:      pool.Close,
		}
		if notify != "" {
			st.source = postgres.NewListener(pool, notify)
		}
		return st, nil
	}
}
