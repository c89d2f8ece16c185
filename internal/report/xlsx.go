package report

import (
	"fmt"
	"time"

	"dealflow/internal/stats"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

const (
	kpiSheet       = "KPI"
	movementSheet  = "Movements"
	funnelSheet    = "Lead Funnel"
	sqlDetailSheet = "SQL Details"
	sourceSheet    = "Sources"
)

type workbookSheet struct {
	name string
	t    table
}

// WriteWorkbook writes monthly_report_<date>.xlsx with a KPI and a Movements sheet, plus the lead
// funnel sheets when funnel is not nil. Numeric columns hold numbers so the workbook can be filtered
// and summed.
func (w *Writer) WriteWorkbook(kpis []stats.MonthlyKPI, rows []MovementRow, funnel *stats.LeadFunnel, stamp time.Time) (string, error) {
	path := w.path("monthly_report", stamp, "xlsx")

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", kpiSheet); err != nil {
		return "", err
	}
	sheets := []workbookSheet{
		{kpiSheet, kpiTable(kpis, w.format)},
		{movementSheet, movementTable(rows, w.format)},
	}
	if funnel != nil {
		sheets = append(sheets,
			workbookSheet{funnelSheet, funnelTable(funnel.Months, w.format)},
			workbookSheet{sqlDetailSheet, sqlDetailTable(funnel.SQLDetails, w.format)},
			workbookSheet{sourceSheet, sourceTable(*funnel, w.format)},
		)
	}
	for _, sh := range sheets[1:] {
		if _, err := f.NewSheet(sh.name); err != nil {
			return "", err
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", err
	}

	for _, sh := range sheets {
		if err := fillSheet(f, sh.name, sh.t, header); err != nil {
			return "", fmt.Errorf("failed to fill %s sheet: %w", sh.name, err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", fmt.Errorf("failed to render workbook: %w", err)
	}
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	log.Info().Str("path", path).Msg("Written workbook")
	return path, nil
}

func fillSheet(f *excelize.File, sheet string, t table, headerStyle int) error {
	headerRow := make([]any, len(t.header))
	for i, h := range t.header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}

	for i, row := range t.rows {
		values := make([]any, len(row))
		for j, c := range row {
			if c.value != nil {
				values[j] = c.value
			} else {
				values[j] = c.text
			}
		}
		ref, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, ref, &values); err != nil {
			return err
		}
	}

	last, err := excelize.ColumnNumberToName(max(len(t.header), 1))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 18)
}
