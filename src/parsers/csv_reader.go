// src/parsers/csv_reader.go
package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/username/cashflowrisk/backend/src/models"
)

// Encodings understood by the delimited-text reader.
const (
	EncodingUTF8BOM = "utf-8-sig"
	EncodingUTF8    = "utf-8"
	EncodingCP1251  = "cp1251"
)

// DefaultMinColumns is the smallest header width accepted as a correct delimiter guess.
const DefaultMinColumns = 3

// CSVAttempt is one (delimiter, encoding) combination.
type CSVAttempt struct {
	Delimiter rune
	Encoding  string
}

// DefaultCSVAttempts lists the combinations tried, in order.
var DefaultCSVAttempts = []CSVAttempt{
	{';', EncodingUTF8BOM},
	{';', EncodingUTF8},
	{';', EncodingCP1251},
	{',', EncodingUTF8BOM},
	{',', EncodingUTF8},
	{',', EncodingCP1251},
}

var errInvalidUTF8 = errors.New("invalid UTF-8 byte sequence")

// CSVResult is the outcome of a successful delimited read.
type CSVResult struct {
	Table    models.RawTable
	Used     models.ReadAttempt
	Attempts []models.ReadAttempt
}

// CSVReader reads delimited text whose delimiter and encoding are unknown.
type CSVReader struct {
	Attempts   []CSVAttempt
	MinColumns int
}

// NewCSVReader creates a reader with the default attempt list.
func NewCSVReader() *CSVReader {
	return &CSVReader{Attempts: DefaultCSVAttempts, MinColumns: DefaultMinColumns}
}

// Read tries every attempt in order and returns the first whose header has at
// least MinColumns columns. When none qualifies it returns a *models.FormatError
// listing what was tried.
func (r *CSVReader) Read(name string, data []byte) (*CSVResult, error) {
	minCols := r.MinColumns
	if minCols <= 0 {
		minCols = DefaultMinColumns
	}

	var tried []models.ReadAttempt
	for _, a := range r.Attempts {
		attempt := models.ReadAttempt{Delimiter: string(a.Delimiter), Encoding: a.Encoding}

		rows, err := parseDelimited(data, a)
		if err != nil {
			attempt.Error = err.Error()
			tried = append(tried, attempt)
			continue
		}
		if len(rows) > 0 {
			attempt.Columns = len(rows[0])
		}
		if attempt.Columns < minCols {
			attempt.Error = fmt.Sprintf("header has %d column(s), need at least %d", attempt.Columns, minCols)
			tried = append(tried, attempt)
			continue
		}

		tried = append(tried, attempt)
		return &CSVResult{
			Table:    models.RawTable{Name: name, Rows: toCells(rows)},
			Used:     attempt,
			Attempts: tried,
		}, nil
	}

	return nil, &models.FormatError{
		Source:   name,
		Attempts: tried,
		Cause:    "likely irregular quoting or delimiters embedded in values",
	}
}

func parseDelimited(data []byte, a CSVAttempt) ([][]string, error) {
	text, err := decode(data, a.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = a.Delimiter
	reader.FieldsPerRecord = -1 // Allow variable number of fields per record

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func decode(data []byte, encoding string) (string, error) {
	switch encoding {
	case EncodingUTF8BOM:
		if !utf8.Valid(data) {
			return "", errInvalidUTF8
		}
		out, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	case EncodingUTF8:
		if !utf8.Valid(data) {
			return "", errInvalidUTF8
		}
		return string(data), nil
	case EncodingCP1251:
		out, _, err := transform.Bytes(charmap.Windows1251.NewDecoder(), data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", encoding)
	}
}

func toCells(rows [][]string) [][]models.Cell {
	out := make([][]models.Cell, len(rows))
	for i, row := range rows {
		cells := make([]models.Cell, len(row))
		for j, v := range row {
			cells[j] = models.TextCell(v)
		}
		out[i] = cells
	}
	return out
}
