package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// BoilerID identifies one of the three physical boilers.
type BoilerID int

const (
	Boiler1 BoilerID = 1
	Boiler2 BoilerID = 2
	Boiler3 BoilerID = 3
)

// Boilers lists every boiler in display order.
var Boilers = []BoilerID{Boiler1, Boiler2, Boiler3}

// Valid reports whether b is one of the known boilers.
func (b BoilerID) Valid() bool {
	return b >= Boiler1 && b <= Boiler3
}

// Name is the operator-facing label, e.g. "Boiler No. 2".
func (b BoilerID) Name() string {
	return fmt.Sprintf("Boiler No. %d", int(b))
}

func (b BoilerID) String() string {
	return strconv.Itoa(int(b))
}

// CellKind is the decoded type of a cell's raw value.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellNumber
	CellText
)

// CellFormat is an optional hint from the source file about how a numeric
// value was displayed.
type CellFormat uint8

const (
	FormatGeneral CellFormat = iota
	FormatDate
	FormatTime
)

// Cell is one grid position. Only computed values are consumed; Formula is
// kept for diagnostics.
type Cell struct {
	Kind    CellKind
	Number  float64
	Text    string
	Format  CellFormat
	Formula string
}

// NumberCell returns a numeric cell.
func NumberCell(v float64) Cell {
	return Cell{Kind: CellNumber, Number: v}
}

// TextCell returns a text cell, or an empty cell for "".
func TextCell(s string) Cell {
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: CellText, Text: s}
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// Raw renders the cell's value for audit messages.
func (c Cell) Raw() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellText:
		return c.Text
	default:
		return ""
	}
}

// Sheet is a named, row-major grid of cells. Rows may be ragged.
type Sheet struct {
	Name string
	Rows [][]Cell
}

// Cell returns the cell at (row, col), or an empty cell when out of range.
func (s *Sheet) Cell(row, col int) Cell {
	if s == nil || row < 0 || row >= len(s.Rows) || col < 0 {
		return Cell{}
	}
	r := s.Rows[row]
	if col >= len(r) {
		return Cell{}
	}
	return r[col]
}

// LastRow is the index of the last row, or -1 for an empty sheet.
func (s *Sheet) LastRow() int {
	if s == nil {
		return -1
	}
	return len(s.Rows) - 1
}

// Workbook is an ordered collection of sheets. Order matters for sheet
// lookup: the first match wins.
type Workbook struct {
	Name   string
	Sheets []*Sheet
}

// SheetNames returns sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, 0, len(w.Sheets))
	for _, s := range w.Sheets {
		names = append(names, s.Name)
	}
	return names
}

// RawWorkbook is the undecoded file handed over by a source.
type RawWorkbook struct {
	Name  string
	Bytes []byte
}

// ContentHash is the hex SHA-256 of the workbook bytes. Builds are pure, so
// equal hashes imply equal records.
func ContentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
