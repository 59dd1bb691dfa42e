// Package spreadsheet turns raw workbook bytes into the in-memory grid the
// domain package reads. It supports .xlsx/.xlsm, legacy .xls and a .zip of
// per-tab .csv exports.
package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

// Format is a supported file format. FormatCSV is a .zip holding one .csv
// file per tab, each named after its sheet; a lone .csv carries one tab and
// cannot form a workbook.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv-zip"
)

// ErrUnsupportedFormat is returned when neither the extension nor the file
// signature identifies a known format.
var ErrUnsupportedFormat = errors.New("unsupported workbook format")

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Decode parses raw into a workbook, keeping the source's sheet order.
func Decode(raw domain.RawWorkbook) (*domain.Workbook, error) {
	format, err := DetectFormat(raw.Name, raw.Bytes)
	if err != nil {
		return nil, err
	}

	var sheets []*domain.Sheet
	switch format {
	case FormatXLSX:
		sheets, err = readXLSX(raw.Bytes)
	case FormatXLS:
		sheets, err = readXLS(raw.Bytes)
	case FormatCSV:
		sheets, err = readCSVArchive(raw.Bytes)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s as %s: %w", raw.Name, format, err)
	}
	return &domain.Workbook{Name: raw.Name, Sheets: sheets}, nil
}

// DetectFormat picks a format from the file extension, falling back to the
// file signature when the extension is missing or unknown.
func DetectFormat(name string, b []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	case ".zip":
		return FormatCSV, nil
	case ".csv":
		return "", fmt.Errorf("%w: %s holds a single tab; zip one .csv per sheet", ErrUnsupportedFormat, name)
	}
	switch {
	case bytes.HasPrefix(b, zipMagic):
		return FormatXLSX, nil
	case bytes.HasPrefix(b, oleMagic):
		return FormatXLS, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// cellFromString converts a rendered cell value. Anything that parses as a
// plain float becomes a number; everything else stays text for the domain
// decoders.
func cellFromString(s string) domain.Cell {
	t := strings.TrimSpace(s)
	if t == "" {
		return domain.Cell{}
	}
	if v, err := strconv.ParseFloat(t, 64); err == nil {
		return domain.NumberCell(v)
	}
	return domain.TextCell(s)
}

func rowFromStrings(rec []string) []domain.Cell {
	row := make([]domain.Cell, len(rec))
	for i, v := range rec {
		row[i] = cellFromString(v)
	}
	return row
}

func sheetNameFromFile(name string) string {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." {
		return "Sheet1"
	}
	return stem
}
