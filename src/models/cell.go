// src/models/cell.go
package models

import (
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
)

// CellKind tags the variant held by a Cell.
type CellKind int

const (
	CellBlank CellKind = iota
	CellText
	CellNumber
	CellDate
)

func (k CellKind) String() string {
	switch k {
	case CellText:
		return "text"
	case CellNumber:
		return "number"
	case CellDate:
		return "date"
	default:
		return "blank"
	}
}

// Cell is a single value read from a source table. Exactly one of Text, Number
// or Date is meaningful, according to Kind.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Date   civil.Date
}

// BlankCell returns an empty cell.
func BlankCell() Cell { return Cell{Kind: CellBlank} }

// TextCell returns a text cell, or a blank cell when s is only whitespace.
func TextCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return BlankCell()
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell returns a numeric cell.
func NumberCell(v float64) Cell { return Cell{Kind: CellNumber, Number: v} }

// DateCell returns a calendar-date cell.
func DateCell(d civil.Date) Cell { return Cell{Kind: CellDate, Date: d} }

// IsBlank reports whether the cell carries no value.
func (c Cell) IsBlank() bool { return c.Kind == CellBlank }

// String renders the cell the way it would appear in a text export.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellDate:
		return c.Date.String()
	default:
		return ""
	}
}

// RawTable is the rectangular-ish output of the tabular reader. Rows keep their
// physical order; row 0 is the first row of the sheet or file. Rows may have
// different lengths.
type RawTable struct {
	Name string
	Rows [][]Cell
}

// Width returns the length of the longest row.
func (t RawTable) Width() int {
	w := 0
	for _, row := range t.Rows {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// At returns the cell at (row, col), or a blank cell when out of range.
func (t RawTable) At(row, col int) Cell {
	if row < 0 || row >= len(t.Rows) {
		return BlankCell()
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return BlankCell()
	}
	return r[col]
}
