package spreadsheet

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

const peekSize = 4096

// ErrEmptyArchive is returned for a .zip holding no .csv entries.
var ErrEmptyArchive = errors.New("archive holds no csv sheets")

// readCSVArchive reads a .zip of per-tab CSV exports. Each entry becomes one
// sheet named after the file, in archive order.
func readCSVArchive(b []byte) ([]*domain.Sheet, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, err
	}

	var sheets []*domain.Sheet
	for _, f := range zr.File {
		name := path.Base(f.Name)
		if f.FileInfo().IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(path.Ext(name), ".csv") {
			continue
		}
		if strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		s, err := readCSV(data, sheetNameFromFile(name))
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", f.Name, err)
		}
		sheets = append(sheets, s)
	}
	if len(sheets) == 0 {
		return nil, ErrEmptyArchive
	}
	return sheets, nil
}

// csvEncoding names the text encoding of one export from its first bytes.
// Excel writes UTF-8 for "CSV UTF-8" and UTF-16 for "Unicode Text"; older
// plant PCs save plain CSV in the Windows ANSI codepage, which is the
// fallback. truncated reports whether peek stops short of the end of the
// file. Unicode Text exports are tab separated.
func csvEncoding(peek []byte, truncated bool) (charset string, comma rune) {
	if truncated {
		peek = trimPartialRune(peek)
	}
	if utf8.Valid(peek) {
		return "utf-8", ','
	}
	if det, err := chardet.NewTextDetector().DetectBest(peek); err == nil && det != nil {
		switch cs := strings.ToLower(det.Charset); cs {
		case "utf-16le", "utf-16be":
			return cs, '\t'
		}
	}
	return "windows-1252", ','
}

func csvDecoder(charset string) transform.Transformer {
	switch charset {
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	case "windows-1252":
		return charmap.Windows1252.NewDecoder()
	default:
		// UTF-8, dropping a BOM if present.
		return unicode.BOMOverride(unicode.UTF8.NewDecoder())
	}
}

// trimPartialRune drops a UTF-8 sequence cut off at the end of a peek buffer.
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size != 1 {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}

// readCSV reads one sheet. Blank lines are kept as empty rows so row indices
// match the source tab.
func readCSV(b []byte, sheetName string) (*domain.Sheet, error) {
	br := bufio.NewReader(bytes.NewReader(b))
	peek, _ := br.Peek(peekSize)

	charset, comma := csvEncoding(peek, len(peek) == peekSize)
	cr := csv.NewReader(transform.NewReader(br, csvDecoder(charset)))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	s := &domain.Sheet{Name: sheetName}
	extra := 0 // newlines inside quoted fields so far
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		row := line - 1 - extra
		for len(s.Rows) < row {
			s.Rows = append(s.Rows, nil)
		}
		s.Rows = append(s.Rows, rowFromStrings(rec))
		for _, f := range rec {
			extra += strings.Count(f, "\n")
		}
	}
	return s, nil
}
