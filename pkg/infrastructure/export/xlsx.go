package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

// ReportSheet is the sheet holding the flow report
const ReportSheet = "FlowReport"

// WriteFlowReport writes the flow report as a single-sheet workbook.
// Quantities are written as numbers so the sheet can be summed.
func WriteFlowReport(w io.Writer, rows []entities.FlowReportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	headers := []string{"Product", "Location", "Category", "Opening", "Incoming", "Outgoing", "Closing"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(ReportSheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(ReportSheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for r, row := range rows {
		values := []interface{}{
			string(row.Product),
			string(row.Location),
			row.Category,
			row.Opening.InexactFloat64(),
			row.Incoming.InexactFloat64(),
			row.Outgoing.InexactFloat64(),
			row.Closing.InexactFloat64(),
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ReportSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	if err := f.SetColWidth(ReportSheet, "A", "G", 15); err != nil {
		return err
	}
	return f.Write(w)
}
