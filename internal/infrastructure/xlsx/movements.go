// Package xlsx exporta el historial de movimientos a Excel con excelize.
package xlsx

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/storeflow-api/internal/application/reports"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
)

const sheetName = "Movimientos"

var header = []interface{}{
	"Referencia", "Fecha", "Tipo", "Producto", "Cantidad",
	"Bodega", "Origen", "Destino", "Saldo", "Usuario", "Nota",
}

var kindLabels = map[entity.MovementKind]string{
	entity.MovementIn:       "Entrada",
	entity.MovementOut:      "Salida",
	entity.MovementTransfer: "Traslado",
	entity.MovementReturn:   "Devolución",
}

// MovementWriter implementa reports.MovementSheetWriter.
type MovementWriter struct{}

var _ reports.MovementSheetWriter = (*MovementWriter)(nil)

// NewMovementWriter construye el writer.
func NewMovementWriter() *MovementWriter { return &MovementWriter{} }

// WriteMovements genera un .xlsx con una fila por movimiento en el orden recibido.
func (w *MovementWriter) WriteMovements(_ context.Context, movements []*entity.Movement) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheetName); err != nil {
		return nil, fmt.Errorf("xlsx: hoja: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("xlsx: encabezado: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx: estilo: %w", err)
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("xlsx: estilo: %w", err)
	}

	for i, m := range movements {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("xlsx: celda: %w", err)
		}
		row := []interface{}{
			m.ID,
			m.CreatedAt.Format("2006-01-02 15:04:05"),
			kindLabel(m.Kind),
			m.ProductID,
			m.Quantity,
			m.WarehouseID,
			m.FromWarehouseID,
			m.ToWarehouseID,
			m.BalanceAfter,
			m.CreatedBy,
			m.Note,
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("xlsx: fila %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(sheetName, "A", "A", 44)
	_ = f.SetColWidth(sheetName, "B", "B", 20)
	_ = f.SetColWidth(sheetName, "K", "K", 40)

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("xlsx: escribir: %w", err)
	}
	return buf.Bytes(), nil
}

func kindLabel(k entity.MovementKind) string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}
