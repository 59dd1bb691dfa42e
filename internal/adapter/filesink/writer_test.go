package filesink

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

func testResult(runID string, withSnapshot bool) domain.SyncResult {
	var hourly domain.HourlySeries
	hourly.Append("1/5/2024", domain.HourlyRecord{TimeOfDay: "07:00", Steam: 11})

	rec := domain.Records{
		Daily: []domain.BoilerDaily{
			{BoilerID: domain.Boiler1, Sheet: "REPORT B1", Records: []domain.DailyRecord{{Date: "1/4/2024", Steam: 200}}},
			{BoilerID: domain.Boiler2, Sheet: "REPORT B2"},
		},
		Hourly: []domain.BoilerHourly{{BoilerID: domain.Boiler1, Sheet: "DATA B1", Records: hourly}},
		Issues: []domain.Issue{{ID: "decode_report-b1", Severity: domain.SeverityInfo}},
		Flags:  []domain.Flag{{Kind: domain.FlagDecodeDegraded, Sheet: "REPORT B1", Row: 8, Raw: "TOTAL"}},
	}
	if withSnapshot {
		rec.Snapshot = &domain.Snapshot{SourceRow: 10, Boilers: []domain.BoilerSnapshot{{BoilerID: domain.Boiler1, Steam: 11}}}
	} else {
		rec.SnapshotError = "no qualifying row"
	}
	start := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)
	return domain.SyncResult{RunID: runID, StartedAt: start, FinishedAt: start.Add(time.Second), Records: rec}
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestWriter_Load(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "public")
	w := NewWriter(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, w.Load(context.Background(), testResult("run-1", true)))

	var snap domain.Snapshot
	readJSON(t, filepath.Join(dir, SnapshotFile), &snap)
	assert.Equal(t, 10, snap.SourceRow)

	var daily []domain.DailyRecord
	readJSON(t, filepath.Join(dir, "boiler_1_daily.json"), &daily)
	assert.Equal(t, []domain.DailyRecord{{Date: "1/4/2024", Steam: 200}}, daily)

	data, err := os.ReadFile(filepath.Join(dir, "boiler_2_daily.json"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))

	var hourly domain.HourlySeries
	readJSON(t, filepath.Join(dir, "boiler_1_hourly.json"), &hourly)
	if diff := cmp.Diff([]string{"1/5/2024"}, hourly.Dates); diff != "" {
		t.Errorf("hourly dates (-want +got):\n%s", diff)
	}

	var v Validation
	readJSON(t, filepath.Join(dir, ValidationFile), &v)
	assert.Len(t, v.Issues, 1)
	assert.Len(t, v.Flags, 1)

	entries, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, entries, "temp files are cleaned up")
}

func TestWriter_KeepsSnapshotAndAppendsHistory(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, w.Load(context.Background(), testResult("run-1", true)))
	require.NoError(t, w.Load(context.Background(), testResult("run-2", false)))

	var snap domain.Snapshot
	readJSON(t, filepath.Join(dir, SnapshotFile), &snap)
	assert.Equal(t, 10, snap.SourceRow, "a run without a snapshot keeps the last one")

	f, err := os.Open(filepath.Join(dir, HistoryFile))
	require.NoError(t, err)
	defer f.Close()

	var runs []domain.SyncSummary
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var s domain.SyncSummary
		require.NoError(t, json.Unmarshal(sc.Bytes(), &s))
		runs = append(runs, s)
	}
	require.NoError(t, sc.Err())
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, 10, runs[0].SnapshotRow)
	assert.Equal(t, "run-2", runs[1].RunID)
	assert.Equal(t, -1, runs[1].SnapshotRow)
	assert.Equal(t, "no qualifying row", runs[1].SnapshotError)
}

func TestWriter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := NewWriter(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorIs(t, w.Load(ctx, testResult("run-1", true)), context.Canceled)
	assert.NoError(t, w.Close())
}
