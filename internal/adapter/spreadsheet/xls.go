package spreadsheet

import (
	"bytes"
	"errors"

	"github.com/extrame/xls"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

// xlsScanCols bounds the width scan. Row.LastCol is unreliable for files
// saved by some plant exporters.
const xlsScanCols = 64

// xlsCharsets is tried in order. Byte strings in workbooks saved by older
// Excel on the plant PCs use the Windows ANSI codepage.
var xlsCharsets = []string{"utf-8", "windows-1252"}

func readXLS(b []byte) ([]*domain.Sheet, error) {
	var (
		wb      *xls.WorkBook
		lastErr error
	)
	for _, cs := range xlsCharsets {
		w, err := xls.OpenReader(bytes.NewReader(b), cs)
		if err == nil && w != nil {
			wb = w
			break
		}
		lastErr = err
	}
	if wb == nil {
		if lastErr == nil {
			lastErr = errors.New("xls: failed to open workbook")
		}
		return nil, lastErr
	}

	sheets := make([]*domain.Sheet, 0, wb.NumSheets())
	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		sheets = append(sheets, readXLSSheet(ws))
	}
	return sheets, nil
}

func readXLSSheet(ws *xls.WorkSheet) *domain.Sheet {
	s := &domain.Sheet{Name: ws.Name}
	if ws.MaxRow == 0 && ws.Row(0) == nil {
		return s
	}
	s.Rows = make([][]domain.Cell, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			continue
		}
		width := 0
		cells := make([]domain.Cell, xlsScanCols)
		for j := 0; j < xlsScanCols; j++ {
			c := cellFromString(row.Col(j))
			if !c.IsEmpty() {
				cells[j] = c
				width = j + 1
			}
		}
		s.Rows[i] = cells[:width]
	}
	return s
}
