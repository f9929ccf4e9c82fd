// seed carga el catálogo inicial desde un CSV exportado de la hoja de cálculo de la tienda.
// Crea las bodegas que no existan y cada producto con su saldo de apertura, que queda
// registrado en el ledger como entrada inicial.
//
// Uso: go run ./cmd/seed catalogo.csv [windows-1252|iso-8859-1|utf-8]
// Columnas: sku;nombre;categoria;precio;stock_minimo;stock_inicial;bodega
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/storeflow-api/internal/application/dto"
	"github.com/jhoicas/storeflow-api/internal/application/ledger"
	"github.com/jhoicas/storeflow-api/internal/application/usecase"
	"github.com/jhoicas/storeflow-api/internal/domain"
	"github.com/jhoicas/storeflow-api/internal/infrastructure/postgres"
	"github.com/jhoicas/storeflow-api/pkg/config"
	"github.com/jhoicas/storeflow-api/pkg/logger"
)

const seedUser = "seed"

type catalogRow struct {
	line      int
	sku       string
	name      string
	category  string
	price     decimal.Decimal
	minStock  int64
	opening   int64
	warehouse string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "uso: seed <catalogo.csv> [charset]")
		os.Exit(2)
	}
	charset := "windows-1252"
	if len(os.Args) > 2 {
		charset = os.Args[2]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	f, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatal().Err(err).Msg("abrir CSV")
	}
	defer f.Close()

	rows, err := parseCatalog(f, charset)
	if err != nil {
		log.Fatal().Err(err).Msg("leer catálogo")
	}

	ctx := context.Background()
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, cfg.DB.ConnectionString()); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	loc, err := cfg.Ledger.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("zona horaria del ledger")
	}
	// sin canal de NOTIFY: la API recarga el feed al arrancar
	movementRepo := postgres.NewMovementRepository(pool, "")
	warehouseRepo := postgres.NewWarehouseRepository(pool)
	engine := ledger.NewEngine(postgres.NewTxRunner(pool, ""), warehouseRepo, movementRepo,
		ledger.WithLocation(loc), ledger.WithLogger(log))
	products := usecase.NewProductUseCase(postgres.NewProductRepository(pool), movementRepo, engine)
	warehouses := usecase.NewWarehouseUseCase(warehouseRepo, movementRepo)

	created, skipped, err := importCatalog(ctx, rows, products, warehouses, log)
	if err != nil {
		log.Fatal().Err(err).Msg("importar catálogo")
	}
	log.Info().Int("creados", created).Int("omitidos", skipped).Msg("catálogo importado")
}

// parseCatalog decodifica el CSV (con o sin encabezado; separador ; o ,).
func parseCatalog(r io.Reader, charset string) ([]catalogRow, error) {
	var in io.Reader = r
	switch strings.ToLower(charset) {
	case "windows-1252", "cp1252":
		in = transform.NewReader(r, charmap.Windows1252.NewDecoder())
	case "iso-8859-1", "latin1":
		in = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	case "utf-8", "utf8":
	default:
		return nil, fmt.Errorf("charset no soportado: %s", charset)
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	cr := csv.NewReader(strings.NewReader(text))
	firstLine, _, _ := strings.Cut(text, "\n")
	if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		cr.Comma = ';'
	}
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	var rows []catalogRow
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "sku") {
			continue
		}
		if len(rec) < 7 {
			return nil, fmt.Errorf("línea %d: se esperaban 7 columnas, hay %d", line, len(rec))
		}
		row, err := parseRow(line, rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(line int, rec []string) (catalogRow, error) {
	row := catalogRow{
		line:      line,
		sku:       strings.TrimSpace(rec[0]),
		name:      strings.TrimSpace(rec[1]),
		category:  strings.TrimSpace(rec[2]),
		warehouse: strings.TrimSpace(rec[6]),
	}
	// precio con coma decimal o separador de miles: "1.250,50" o "1250.50"
	price := strings.TrimSpace(rec[3])
	if strings.Contains(price, ",") {
		price = strings.ReplaceAll(price, ".", "")
		price = strings.ReplaceAll(price, ",", ".")
	}
	if price == "" {
		price = "0"
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return row, fmt.Errorf("línea %d: precio %q inválido", line, rec[3])
	}
	row.price = p
	if row.minStock, err = parseQty(rec[4]); err != nil {
		return row, fmt.Errorf("línea %d: stock_minimo: %w", line, err)
	}
	if row.opening, err = parseQty(rec[5]); err != nil {
		return row, fmt.Errorf("línea %d: stock_inicial: %w", line, err)
	}
	return row, nil
}

func parseQty(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("cantidad %q inválida", s)
	}
	return n, nil
}

// importCatalog crea bodegas por nombre y productos. Los SKU existentes se omiten.
func importCatalog(ctx context.Context, rows []catalogRow, products *usecase.ProductUseCase, warehouses *usecase.WarehouseUseCase, log *logger.Logger) (created, skipped int, err error) {
	byName := make(map[string]string)
	for offset := 0; ; offset += 100 {
		page, err := warehouses.List(ctx, 100, offset)
		if err != nil {
			return 0, 0, err
		}
		for _, w := range page.Items {
			byName[strings.ToLower(w.Name)] = w.ID
		}
		if len(page.Items) < 100 {
			break
		}
	}

	for _, row := range rows {
		whID := ""
		if row.warehouse != "" {
			key := strings.ToLower(row.warehouse)
			id, ok := byName[key]
			if !ok {
				w, err := warehouses.Create(ctx, dto.CreateWarehouseRequest{Name: row.warehouse})
				if err != nil {
					return created, skipped, fmt.Errorf("línea %d: bodega: %w", row.line, err)
				}
				id = w.ID
				byName[key] = id
				log.Info().Str("bodega", row.warehouse).Msg("bodega creada")
			}
			whID = id
		}
		_, err := products.Create(ctx, seedUser, dto.CreateProductRequest{
			SKU:          row.sku,
			Name:         row.name,
			Category:     row.category,
			Price:        row.price,
			MinStock:     row.minStock,
			OpeningStock: row.opening,
			WarehouseID:  whID,
		})
		if errors.Is(err, domain.ErrDuplicate) {
			skipped++
			log.Warn().Str("sku", row.sku).Int("linea", row.line).Msg("SKU existente, se omite")
			continue
		}
		if err != nil {
			return created, skipped, fmt.Errorf("línea %d (%s): %w", row.line, row.sku, err)
		}
		created++
	}
	return created, skipped, nil
}
