package domain

import (
	"errors"
	"fmt"
)

// NoCeiling disables the upper bound of a ScanWindow.
const NoCeiling = -1

// Default scan bounds for the ratio sheets. Rows past 540 hold test entries.
const (
	DefaultScanFloor   = 9
	DefaultScanCeiling = 540
)

// ScanWindow bounds the backward scan: rows from min(lastRow, Ceiling) down
// to Floor, both inclusive.
type ScanWindow struct {
	Floor   int
	Ceiling int
}

// DefaultScanWindow returns the production bounds.
func DefaultScanWindow() ScanWindow {
	return ScanWindow{Floor: DefaultScanFloor, Ceiling: DefaultScanCeiling}
}

// Validate rejects windows that can never contain a row.
func (w ScanWindow) Validate() error {
	if w.Floor < 0 {
		return fmt.Errorf("scan floor %d is negative", w.Floor)
	}
	if w.Ceiling != NoCeiling && w.Ceiling < w.Floor {
		return fmt.Errorf("scan ceiling %d is below floor %d", w.Ceiling, w.Floor)
	}
	return nil
}

// start is the first row index the scan tests.
func (w ScanWindow) start(s *Sheet) int {
	last := s.LastRow()
	if w.Ceiling != NoCeiling && w.Ceiling < last {
		return w.Ceiling
	}
	return last
}

var activityFields = []Field{FieldSteam, FieldWater, FieldNaturalGas}

// FindLatestJointRow returns the highest row in the window where any
// layout's steam column is strictly positive. The same index is then used
// for every boiler on both ratio sheets. Rows are assumed chronological;
// there is no secondary sort by date.
func FindLatestJointRow(sheet *Sheet, steamLayouts []ColumnLayout, w ScanWindow) (int, error) {
	return scanBackward(sheet, steamLayouts, []Field{FieldSteam}, w)
}

// FindLatestActiveRow is the same any-of scan with no ceiling, over steam,
// water and natural gas.
func FindLatestActiveRow(sheet *Sheet, layouts []ColumnLayout, floor int) (int, error) {
	return scanBackward(sheet, layouts, activityFields, ScanWindow{Floor: floor, Ceiling: NoCeiling})
}

func scanBackward(sheet *Sheet, layouts []ColumnLayout, fields []Field, w ScanWindow) (int, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	if len(layouts) == 0 {
		return 0, errors.New("scan needs at least one layout")
	}
	for row := w.start(sheet); row >= w.Floor; row-- {
		if rowActive(sheet, row, layouts, fields) {
			return row, nil
		}
	}
	reason := "no row with a positive reading"
	if sheet.LastRow() < w.Floor {
		reason = fmt.Sprintf("sheet has %d rows", sheet.LastRow()+1)
	}
	return 0, &NoQualifyingRowError{
		Sheet:   sheetName(sheet),
		Floor:   w.Floor,
		Ceiling: w.Ceiling,
		Reason:  reason,
	}
}

func rowActive(sheet *Sheet, row int, layouts []ColumnLayout, fields []Field) bool {
	for _, l := range layouts {
		for _, f := range fields {
			col, ok := l.Column(f)
			if !ok {
				continue
			}
			if DecodeNumber(sheet.Cell(row, col)) > 0 {
				return true
			}
		}
	}
	return false
}

// DataRows returns the row indices below the layout's header, in order.
func DataRows(sheet *Sheet, layout ColumnLayout) []int {
	last := sheet.LastRow()
	if last < layout.HeaderRows {
		return nil
	}
	rows := make([]int, 0, last-layout.HeaderRows+1)
	for r := layout.HeaderRows; r <= last; r++ {
		rows = append(rows, r)
	}
	return rows
}
