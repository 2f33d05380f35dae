// Package importer reads stolen-vehicle records from spreadsheet exports.
package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"plate-check-service/internal/domain/stolen"
)

var ErrNoPlateColumn = errors.New("workbook has no plate column")

// Row is one workbook line. Record.CaseNumber and Record.ReportDate are empty when the
// sheet leaves them blank; the caller generates them on insertion.
type Row struct {
	Plate  string
	Record stolen.PlateRecord
}

// HasCaseNumber reports whether the row carries its own case number.
func (r Row) HasCaseNumber() bool {
	return r.Record.CaseNumber != ""
}

func (r Row) Info() stolen.RecordInfo {
	return stolen.RecordInfo{
		Region:   r.Record.Region,
		CarModel: r.Record.CarModel,
		Color:    r.Record.Color,
	}
}

var columnAliases = map[string]string{
	"plate":        "plate",
	"plate_number": "plate",
	"report_date":  "report_date",
	"region":       "region",
	"case_number":  "case_number",
	"car_model":    "car_model",
	"model":        "car_model",
	"color":        "color",
	"colour":       "color",
}

var dateLayouts = []string{stolen.DateLayout, "2006/01/02", "02.01.2006", "01-02-06"}

// ReadWorkbook parses the first sheet of an .xlsx file. The first row is a header naming
// the columns; rows with an empty plate are skipped.
func ReadWorkbook(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoPlateColumn
	}

	columns := make(map[string]int)
	for i, name := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.ReplaceAll(key, " ", "_")
		if canonical, ok := columnAliases[key]; ok {
			if _, seen := columns[canonical]; !seen {
				columns[canonical] = i
			}
		}
	}
	if _, ok := columns["plate"]; !ok {
		return nil, ErrNoPlateColumn
	}

	cell := func(row []string, column string) string {
		i, ok := columns[column]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := make([]Row, 0, len(rows)-1)
	for n, row := range rows[1:] {
		plate := cell(row, "plate")
		if plate == "" {
			continue
		}

		reportDate := cell(row, "report_date")
		if reportDate != "" {
			parsed, err := parseDate(reportDate)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", n+2, err)
			}
			reportDate = parsed
		}

		out = append(out, Row{
			Plate: plate,
			Record: stolen.PlateRecord{
				ReportDate: reportDate,
				Region:     cell(row, "region"),
				CaseNumber: cell(row, "case_number"),
				CarModel:   cell(row, "car_model"),
				Color:      cell(row, "color"),
			},
		})
	}
	return out, nil
}

func parseDate(v string) (string, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(stolen.DateLayout), nil
		}
	}
	return "", fmt.Errorf("invalid report date %q", v)
}
