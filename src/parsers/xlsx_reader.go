// src/parsers/xlsx_reader.go
package parsers

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/xuri/excelize/v2"

	"github.com/username/cashflowrisk/backend/src/logger"
	"github.com/username/cashflowrisk/backend/src/models"
)

// Workbook is the typed content of a spreadsheet, sheets in workbook order.
type Workbook struct {
	Name   string
	Sheets []models.RawTable
	// Skipped lists sheets that could not be read at all.
	Skipped []string
}

// SheetNames returns the names of the readable sheets in order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// Sheet returns the sheet with the given name.
func (w *Workbook) Sheet(name string) (models.RawTable, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return models.RawTable{}, false
}

// ReadWorkbook opens an xlsx/xlsm payload and converts every sheet into a RawTable.
// Unreadable sheets are skipped; a workbook with no readable sheet is a *models.FormatError.
func ReadWorkbook(name string, data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &models.FormatError{Source: name, Cause: fmt.Sprintf("cannot open workbook: %v", err)}
	}
	defer f.Close()

	r := &sheetReader{file: f, styles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		r.date1904 = *props.Date1904
	}

	wb := &Workbook{Name: name}
	sheetList := f.GetSheetList()
	for _, sheet := range sheetList {
		table, err := r.readTyped(sheet)
		if err != nil {
			logger.L.Warn("Typed sheet read failed, falling back to formatted values", "sheet", sheet, "error", err)
			table, err = r.readFormatted(sheet)
		}
		if err != nil {
			logger.L.Warn("Skipping unreadable sheet", "sheet", sheet, "error", err)
			wb.Skipped = append(wb.Skipped, sheet)
			continue
		}
		wb.Sheets = append(wb.Sheets, table)
	}

	if len(wb.Sheets) == 0 && len(sheetList) > 0 {
		return nil, &models.FormatError{Source: name, Cause: "no readable sheet in workbook"}
	}
	return wb, nil
}

type sheetReader struct {
	file     *excelize.File
	date1904 bool
	styles   map[int]bool // style index -> has a date number format
}

func (r *sheetReader) readTyped(sheet string) (models.RawTable, error) {
	rows, err := r.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return models.RawTable{}, err
	}

	out := make([][]models.Cell, len(rows))
	for i, row := range rows {
		cells := make([]models.Cell, len(row))
		for j, raw := range row {
			c, err := r.typedCell(sheet, i, j, raw)
			if err != nil {
				return models.RawTable{}, err
			}
			cells[j] = c
		}
		out[i] = cells
	}
	return models.RawTable{Name: sheet, Rows: out}, nil
}

func (r *sheetReader) readFormatted(sheet string) (models.RawTable, error) {
	rows, err := r.file.GetRows(sheet)
	if err != nil {
		return models.RawTable{}, err
	}
	return models.RawTable{Name: sheet, Rows: toCells(rows)}, nil
}

func (r *sheetReader) typedCell(sheet string, row, col int, raw string) (models.Cell, error) {
	if strings.TrimSpace(raw) == "" {
		return models.BlankCell(), nil
	}

	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return models.Cell{}, err
	}
	typ, err := r.file.GetCellType(sheet, ref)
	if err != nil {
		return models.Cell{}, err
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeBool, excelize.CellTypeError:
		return models.TextCell(raw), nil
	case excelize.CellTypeDate:
		// ISO 8601 value stored with t="d".
		if d, ok := ParseDateString(raw); ok {
			return models.DateCell(d), nil
		}
		return models.TextCell(raw), nil
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return models.TextCell(raw), nil
	}

	isDate, err := r.hasDateFormat(sheet, ref)
	if err != nil {
		return models.Cell{}, err
	}
	if isDate {
		t, err := excelize.ExcelDateToTime(v, r.date1904)
		if err == nil {
			return models.DateCell(civil.DateOf(t)), nil
		}
	}
	return models.NumberCell(v), nil
}

func (r *sheetReader) hasDateFormat(sheet, ref string) (bool, error) {
	idx, err := r.file.GetCellStyle(sheet, ref)
	if err != nil {
		return false, err
	}
	if isDate, ok := r.styles[idx]; ok {
		return isDate, nil
	}

	isDate := false
	if style, err := r.file.GetStyle(idx); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			isDate = IsDateNumFmt(*style.CustomNumFmt)
		} else {
			isDate = isBuiltInDateNumFmt(style.NumFmt)
		}
	}
	r.styles[idx] = isDate
	return isDate, nil
}

// isBuiltInDateNumFmt reports whether a built-in number format id renders a date.
// Time-only formats (18-21, 45-47) are left as numbers.
func isBuiltInDateNumFmt(id int) bool {
	switch {
	case id >= 14 && id <= 17, id == 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

var numFmtLiteralRe = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]|\\.`)

// IsDateNumFmt reports whether a custom number format code renders a calendar date.
func IsDateNumFmt(code string) bool {
	code = strings.ToLower(numFmtLiteralRe.ReplaceAllString(code, ""))
	return strings.ContainsAny(code, "yd")
}
