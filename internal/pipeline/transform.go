package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

// DecodeFunc parses raw workbook bytes.
type DecodeFunc func(raw domain.RawWorkbook) (*domain.Workbook, error)

// WorkbookTransformer implements Transformer by decoding the workbook and
// running the domain build over it.
type WorkbookTransformer struct {
	decode DecodeFunc
	cfg    domain.BuildConfig
	logger *slog.Logger
}

// NewTransformer creates a WorkbookTransformer.
func NewTransformer(decode DecodeFunc, cfg domain.BuildConfig, logger *slog.Logger) *WorkbookTransformer {
	return &WorkbookTransformer{
		decode: decode,
		cfg:    cfg,
		logger: logger,
	}
}

func (t *WorkbookTransformer) Transform(ctx context.Context, raw domain.RawWorkbook) (domain.Records, error) {
	if err := ctx.Err(); err != nil {
		return domain.Records{}, err
	}
	wb, err := t.decode(raw)
	if err != nil {
		return domain.Records{}, err
	}
	t.logger.Debug("workbook decoded", "name", raw.Name, "sheets", wb.SheetNames())

	rec, err := domain.BuildRecords(wb, t.cfg)
	if err != nil {
		return domain.Records{}, fmt.Errorf("build records from %s: %w", raw.Name, err)
	}
	if rec.Snapshot == nil {
		t.logger.Warn("no snapshot row", "name", raw.Name, "reason", rec.SnapshotError)
	}
	return rec, nil
}
