// Package filesink publishes sync results as JSON files in a directory that
// a static frontend can serve directly.
package filesink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

// File names inside the output directory.
const (
	SnapshotFile   = "boiler_data.json"
	ValidationFile = "validation.json"
	HistoryFile    = "sync_history.jsonl"
)

// DailyFile is the daily series file of boiler b.
func DailyFile(b domain.BoilerID) string { return fmt.Sprintf("boiler_%d_daily.json", int(b)) }

// HourlyFile is the hourly series file of boiler b.
func HourlyFile(b domain.BoilerID) string { return fmt.Sprintf("boiler_%d_hourly.json", int(b)) }

// Validation is the content of validation.json.
type Validation struct {
	Issues []domain.Issue `json:"issues"`
	Flags  []domain.Flag  `json:"flags"`
}

// Writer writes each sync's records into dir. Record files are replaced
// atomically; the history file is appended to.
// It implements pipeline.Loader.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a file sink rooted at dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// Load writes the records of res. Without a snapshot, the previous
// boiler_data.json is left in place.
func (w *Writer) Load(ctx context.Context, res domain.SyncResult) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	rec := res.Records
	if rec.Snapshot != nil {
		if err := w.writeJSON(SnapshotFile, rec.Snapshot); err != nil {
			return err
		}
	} else {
		w.logger.Warn("no snapshot, keeping previous file", "file", SnapshotFile, "reason", rec.SnapshotError)
	}

	for _, d := range rec.Daily {
		if err := ctx.Err(); err != nil {
			return err
		}
		records := d.Records
		if records == nil {
			records = []domain.DailyRecord{}
		}
		if err := w.writeJSON(DailyFile(d.BoilerID), records); err != nil {
			return err
		}
	}
	for _, h := range rec.Hourly {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.writeJSON(HourlyFile(h.BoilerID), h.Records); err != nil {
			return err
		}
	}

	if err := w.writeJSON(ValidationFile, Validation{Issues: rec.Issues, Flags: rec.Flags}); err != nil {
		return err
	}
	return w.appendHistory(res.Summary())
}

// Close is a no-op; every Load closes its files.
func (w *Writer) Close() error { return nil }

func (w *Writer) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize %s: %w", name, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(w.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(w.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (w *Writer) appendHistory(s domain.SyncSummary) error {
	line, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("serialize history: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(w.dir, HistoryFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("append history: %w", err)
	}
	return f.Close()
}
