package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/foodstation/internal/domain/models"
)

const (
	summarySheet = "Summary"
	dailySheet   = "Daily"

	// ContentType is the MIME type of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var dailyHeadings = []interface{}{
	"Date", "Category", "Opening", "Produced", "Unit price", "Shipped", "Manual", "Reconciled", "Planned", "Closing surplus", "Shortfall", "Raw input", "Raw price", "Note",
}

// Workbook builds a two-sheet workbook: the period totals and one row per
// record line. The caller must Close the file.
func Workbook(summary models.PeriodSummary, records []models.LedgerRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(dailySheet); err != nil {
		return nil, fmt.Errorf("create daily sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	if err := writeSummary(f, summary, bold); err != nil {
		return nil, err
	}
	if err := writeDaily(f, records, bold); err != nil {
		return nil, err
	}
	return f, nil
}

// Write streams the workbook for summary and records to w.
func Write(w io.Writer, summary models.PeriodSummary, records []models.LedgerRecord) error {
	f, err := Workbook(summary, records)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, s models.PeriodSummary, bold int) error {
	rows := [][]interface{}{
		{"Pipeline", string(s.Pipeline)},
		{"Period", fmt.Sprintf("%s to %s", s.Period.Start, s.Period.End)},
		{"Revenue basis", string(s.Basis)},
		{"Days recorded", s.DayCount},
		{"Days with shortfall", s.ShortfallDays},
		{"Raw input", s.RawInput.InexactFloat64()},
		{"Raw cost", s.RawCost.InexactFloat64()},
		{"Revenue", s.Revenue.InexactFloat64()},
		{"Net result", s.NetResult.InexactFloat64()},
		{},
		{"Category", "Produced", "Shipped", "Revenue", "Closing surplus"},
	}
	for _, c := range s.Categories {
		rows = append(rows, []interface{}{
			string(c.Category),
			c.Produced.InexactFloat64(),
			c.Shipped.InexactFloat64(),
			c.Revenue.InexactFloat64(),
			c.ClosingSurplus.InexactFloat64(),
		})
	}

	if err := setRows(f, summarySheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A1", "A9", bold); err != nil {
		return fmt.Errorf("style summary labels: %w", err)
	}
	if err := f.SetCellStyle(summarySheet, "A11", "E11", bold); err != nil {
		return fmt.Errorf("style summary header: %w", err)
	}
	return nil
}

func writeDaily(f *excelize.File, records []models.LedgerRecord, bold int) error {
	rows := [][]interface{}{dailyHeadings}
	for _, rec := range records {
		for _, l := range rec.Lines {
			rows = append(rows, []interface{}{
				string(rec.Date),
				string(l.Category),
				l.OpeningCarryOver.InexactFloat64(),
				l.Produced.InexactFloat64(),
				l.UnitPrice.InexactFloat64(),
				l.Shipped.InexactFloat64(),
				l.ShippedOverride,
				l.ReconciledShipped.InexactFloat64(),
				l.PlannedShipped.InexactFloat64(),
				l.ClosingSurplus.InexactFloat64(),
				l.Shortfall.InexactFloat64(),
				rec.RawInput.InexactFloat64(),
				rec.RawUnitPrice.InexactFloat64(),
				rec.Note,
			})
		}
	}

	if err := setRows(f, dailySheet, rows); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(dailyHeadings), 1)
	if err != nil {
		return fmt.Errorf("resolve header range: %w", err)
	}
	if err := f.SetCellStyle(dailySheet, "A1", last, bold); err != nil {
		return fmt.Errorf("style daily header: %w", err)
	}
	return nil
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("resolve cell for row %d: %w", i+1, err)
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
