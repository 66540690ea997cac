package infra

import (
	"bytes"
	"time"

	"magirls/internal/model"

	"github.com/xuri/excelize/v2"
)

const movementsSheet = "Movements"

var movementsHeader = []interface{}{
	"created_at",
	"movement_type",
	"qty_delta",
	"variant_id",
	"batch_id",
	"warehouse_id",
	"reference_sale_id",
	"reason",
	"performed_by_user_id",
}

// MovementsXLSX renders stock movements as a single-sheet workbook, one row
// per movement in the given order.
func MovementsXLSX(movements []model.StockMovement) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), movementsSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(movementsSheet, "A1", &movementsHeader); err != nil {
		return nil, err
	}

	for i, m := range movements {
		saleRef := ""
		if m.ReferenceSaleID != nil {
			saleRef = m.ReferenceSaleID.String()
		}
		reason := ""
		if m.Reason != nil {
			reason = *m.Reason
		}
		row := []interface{}{
			m.CreatedAt.UTC().Format(time.RFC3339),
			string(m.Kind),
			m.QtyDelta,
			m.VariantID.String(),
			m.BatchID.String(),
			m.WarehouseID.String(),
			saleRef,
			reason,
			m.PerformedBy.String(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(movementsSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
