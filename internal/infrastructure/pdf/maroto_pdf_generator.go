// Package pdf genera el reporte de existencias en PDF con Maroto v2.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título + fecha de generación                        │
//	│  RESUMEN: Productos / Valor del inventario / Alertas         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  STOCK BAJO: SKU | Producto | Saldo | Mínimo | Déficit       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  POR BODEGA: Bodega | Producto | Saldo | Mínimo              │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/storeflow-api/internal/application/dto"
	"github.com/jhoicas/storeflow-api/internal/application/reports"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 180, Green: 30, Blue: 30}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa reports.StockPDFRenderer usando Maroto v2.
type MarotoPDFGenerator struct {
	company string
}

var _ reports.StockPDFRenderer = (*MarotoPDFGenerator)(nil)

// NewMarotoPDFGenerator construye el generador. company aparece como autor y en el header.
func NewMarotoPDFGenerator(company string) *MarotoPDFGenerator {
	return &MarotoPDFGenerator{company: company}
}

// RenderStockReport genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) RenderStockReport(_ context.Context, report reports.StockReport) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Reporte de existencias", true).
		WithAuthor(g.company, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(g.company, report))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRow(report))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(sectionTitle(fmt.Sprintf("STOCK BAJO (%d)", len(report.LowStock))))
	if len(report.LowStock) == 0 {
		m.AddRows(emptyRow("Ningún producto está por debajo de su mínimo."))
	} else {
		m.AddRows(lowStockHeaderRow())
		m.AddRows(lowStockRows(report.LowStock)...)
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(sectionTitle("EXISTENCIAS POR BODEGA"))
	if len(report.ByWarehouse) == 0 {
		m.AddRows(emptyRow("Sin movimientos registrados."))
	} else {
		m.AddRows(warehouseHeaderRow())
		m.AddRows(warehouseRows(report.ByWarehouse)...)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(company string, report reports.StockReport) core.Row {
	return row.New(16).Add(
		col.New(7).Add(
			text.New(nonEmpty(company, "Inventario"), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
		),
		col.New(5).Add(
			text.New("REPORTE DE EXISTENCIAS", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New("Generado: "+report.GeneratedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 8, Color: colorGray,
			}),
		),
	)
}

func summaryRow(report reports.StockReport) core.Row {
	cell := func(label, value string) core.Col {
		return col.New(4).Add(
			text.New(label, props.Text{Size: 7, Color: colorGray, Top: 1, Align: align.Center}),
			text.New(value, props.Text{Style: fontstyle.Bold, Size: 11, Top: 5, Align: align.Center}),
		)
	}
	return row.New(14).Add(
		cell("Productos", strconv.Itoa(report.TotalProducts)),
		cell("Valor del inventario", "$"+formatMoney(report.InventoryValue.StringFixed(0))),
		cell("Alertas de stock", strconv.Itoa(len(report.LowStock))),
	)
}

func sectionTitle(s string) core.Row {
	return row.New(7).Add(col.New(12).Add(
		text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Color: colorPrimary, Top: 1}),
	))
}

func emptyRow(s string) core.Row {
	return row.New(6).Add(col.New(12).Add(
		text.New(s, props.Text{Size: 8, Color: colorGray, Top: 1}),
	))
}

func th(label string, size int, a align.Type) core.Col {
	return col.New(size).Add(text.New(label, props.Text{
		Style: fontstyle.Bold, Size: 8, Align: a, Top: 1, Left: 1, Right: 1,
	}))
}

func td(value string, size int, a align.Type, color *props.Color) core.Col {
	return col.New(size).Add(text.New(value, props.Text{
		Size: 8, Align: a, Top: 1, Left: 1, Right: 1, Color: color,
	}))
}

func lowStockHeaderRow() core.Row {
	return row.New(6).Add(
		th("SKU", 2, align.Left),
		th("Producto", 5, align.Left),
		th("Saldo", 2, align.Right),
		th("Mínimo", 1, align.Right),
		th("Déficit", 2, align.Right),
	)
}

func lowStockRows(items []dto.LowStockDTO) []core.Row {
	rows := make([]core.Row, 0, len(items))
	for _, it := range items {
		rows = append(rows, row.New(5).Add(
			td(it.SKU, 2, align.Left, nil),
			td(it.Name, 5, align.Left, nil),
			td(strconv.FormatInt(it.Quantity, 10), 2, align.Right, colorAlert),
			td(strconv.FormatInt(it.MinStock, 10), 1, align.Right, nil),
			td(strconv.FormatInt(it.Deficit, 10), 2, align.Right, colorAlert),
		))
	}
	return rows
}

func warehouseHeaderRow() core.Row {
	return row.New(6).Add(
		th("Bodega", 4, align.Left),
		th("Producto", 5, align.Left),
		th("Saldo", 2, align.Right),
		th("Mínimo", 1, align.Right),
	)
}

func warehouseRows(items []dto.WarehouseStockDTO) []core.Row {
	rows := make([]core.Row, 0, len(items))
	for _, it := range items {
		var qtyColor *props.Color
		if it.LowStock {
			qtyColor = colorAlert
		}
		rows = append(rows, row.New(5).Add(
			td(nonEmpty(it.WarehouseName, it.WarehouseID), 4, align.Left, nil),
			td(nonEmpty(it.ProductName, it.ProductID), 5, align.Left, nil),
			td(strconv.FormatInt(it.Quantity, 10), 2, align.Right, qtyColor),
			td(strconv.FormatInt(it.MinStock, 10), 1, align.Right, nil),
		))
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" → "25.000", "-1000000" → "-1.000.000"
func formatMoney(s string) string {
	sign := ""
	if len(s) > 0 && s[0] == '-' {
		sign, s = "-", s[1:]
	}
	n := len(s)
	if n <= 3 {
		return sign + s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf)
}
