// Package source fetches raw workbook bytes from the local disk or over HTTP.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

// File reads the workbook from a local path on every fetch.
type File struct {
	path string
}

// NewFile creates a file source.
func NewFile(path string) *File {
	return &File{path: path}
}

// Kind labels the source in metrics.
func (f *File) Kind() string { return "file" }

// Fetch reads the whole file.
func (f *File) Fetch(ctx context.Context) (domain.RawWorkbook, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawWorkbook{}, err
	}
	b, err := os.ReadFile(f.path)
	if err != nil {
		return domain.RawWorkbook{}, fmt.Errorf("read workbook: %w", err)
	}
	return domain.RawWorkbook{Name: filepath.Base(f.path), Bytes: b}, nil
}
