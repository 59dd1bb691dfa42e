package spreadsheet

import (
	"bytes"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

// readXLSX reads every sheet with raw cell values, so dates and times come
// through as serials rather than display strings.
func readXLSX(b []byte) ([]*domain.Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names := f.GetSheetList()
	sheets := make([]*domain.Sheet, 0, len(names))
	for _, name := range names {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, err
		}
		s := &domain.Sheet{Name: name, Rows: make([][]domain.Cell, len(rows))}
		for i, rec := range rows {
			s.Rows[i] = rowFromStrings(rec)
		}
		sheets = append(sheets, s)
	}
	return sheets, nil
}
