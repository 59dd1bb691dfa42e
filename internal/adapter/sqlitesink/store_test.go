package sqlitesink

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "db", "boiler.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testResult(runID string, start time.Time, steam float64) domain.SyncResult {
	custody := 3.5
	var hourly domain.HourlySeries
	hourly.Append("1/5/2024", domain.HourlyRecord{TimeOfDay: "00:00", Steam: steam, NGTotal: 690, NGCustody: &custody})
	hourly.Append("1/5/2024", domain.HourlyRecord{TimeOfDay: "01:00", Steam: steam + 1, NGTotal: 700})

	return domain.SyncResult{
		RunID:      runID,
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		SourceName: "boiler_data.xlsx",
		SourceHash: "abc",
		Records: domain.Records{
			Snapshot: &domain.Snapshot{
				SteamSheet: "NGSTEAM RATIO",
				WaterSheet: "WATER_STEAM RATIO",
				SourceRow:  10,
				SourceDate: "1/5/2024",
				SourceTime: "01:00",
				Timestamp:  "2024-01-05T01:00:00Z",
				Boilers: []domain.BoilerSnapshot{
					{BoilerID: domain.Boiler1, Name: "Boiler No. 1", Steam: steam, Water: 11, MaxCapacity: 18, Status: domain.StatusNormal, Timestamp: "2024-01-05T01:00:00Z"},
					{BoilerID: domain.Boiler2, Name: "Boiler No. 2", MaxCapacity: 18, Status: domain.StatusOffline, Timestamp: "2024-01-05T01:00:00Z"},
				},
				TotalSteam: steam,
				TotalWater: 11,
			},
			Daily: []domain.BoilerDaily{{
				BoilerID: domain.Boiler1,
				Records: []domain.DailyRecord{
					{Date: "1/10/2024", Steam: steam * 24},
					{Date: "1/9/2024", Steam: 200, NaturalGas: 14000},
				},
			}},
			Hourly: []domain.BoilerHourly{{BoilerID: domain.Boiler1, Records: hourly}},
			Issues: []domain.Issue{
				{ID: "b1_naturalgas_neg_report-b1_e8", Severity: domain.SeverityCritical, BoilerID: domain.Boiler1, Metric: "naturalGas", Value: -5, Message: "neg", Sheet: "REPORT B1", Cell: "E8"},
				{ID: "decode_report-b1", Severity: domain.SeverityInfo, Metric: "decode", Value: 1, Message: "1 cell", Sheet: "REPORT B1"},
			},
			Flags: []domain.Flag{{Kind: domain.FlagNegativeClamped}},
		},
	}
}

func TestStore_LoadAndQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 1, 5, 1, 5, 0, 123, time.UTC)
	res := testResult("run-1", start, 10)

	require.NoError(t, s.Load(ctx, res))

	runs, err := s.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	if diff := cmp.Diff(res.Summary(), runs[0]); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}

	snap, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(res.Records.Snapshot, snap); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	daily, err := s.Daily(ctx, domain.Boiler1)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Equal(t, "1/9/2024", daily[0].Date, "ordered by calendar day, not by string")
	assert.Equal(t, 14000.0, daily[0].NaturalGas)

	hourly, err := s.Hourly(ctx, domain.Boiler1, "1/5/2024")
	require.NoError(t, err)
	require.Len(t, hourly, 2)
	assert.Equal(t, "00:00", hourly[0].TimeOfDay)
	require.NotNil(t, hourly[0].NGCustody)
	assert.Equal(t, 3.5, *hourly[0].NGCustody)
	assert.Nil(t, hourly[1].NGCustody)

	issues, err := s.Issues(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, res.Records.Issues, issues)
}

func TestStore_LaterRunOverwritesReadings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 1, 5, 1, 5, 0, 0, time.UTC)

	require.NoError(t, s.Load(ctx, testResult("run-1", start, 10)))
	require.NoError(t, s.Load(ctx, testResult("run-2", start.Add(5*time.Minute), 12)))

	runs, err := s.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID)

	daily, err := s.Daily(ctx, domain.Boiler1)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Equal(t, 288.0, daily[1].Steam)

	hourly, err := s.Hourly(ctx, domain.Boiler1, "1/5/2024")
	require.NoError(t, err)
	require.Len(t, hourly, 2)
	assert.Equal(t, 12.0, hourly[0].Steam)

	snap, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12.0, snap.TotalSteam)
}

func TestStore_HourlyKeepsRowsSharingAnHour(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 1, 5, 1, 5, 0, 0, time.UTC)

	// 00:00, 07:10, 07:20 and a folded 24:00 on one date.
	var hourly domain.HourlySeries
	for i, tod := range []string{"00:00", "07:00", "07:00", "00:00"} {
		hourly.Append("1/5/2024", domain.HourlyRecord{TimeOfDay: tod, Steam: float64(i + 5)})
	}
	res := testResult("run-1", start, 10)
	res.Records.Hourly = []domain.BoilerHourly{{BoilerID: domain.Boiler1, Records: hourly}}
	require.NoError(t, s.Load(ctx, res))

	got, err := s.Hourly(ctx, domain.Boiler1, "1/5/2024")
	require.NoError(t, err)
	if diff := cmp.Diff(hourly.ByDate["1/5/2024"], got); diff != "" {
		t.Errorf("hourly mismatch (-want +got):\n%s", diff)
	}

	// A later sync with fewer rows for the date replaces the date.
	var shorter domain.HourlySeries
	shorter.Append("1/5/2024", domain.HourlyRecord{TimeOfDay: "00:00", Steam: 9})
	res = testResult("run-2", start.Add(time.Minute), 10)
	res.Records.Hourly = []domain.BoilerHourly{{BoilerID: domain.Boiler1, Records: shorter}}
	require.NoError(t, s.Load(ctx, res))

	got, err = s.Hourly(ctx, domain.Boiler1, "1/5/2024")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 9.0, got[0].Steam)
}

func TestStore_RunWithoutSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LatestSnapshot(ctx)
	require.ErrorIs(t, err, ErrNoSnapshot)

	start := time.Date(2024, 1, 5, 1, 5, 0, 0, time.UTC)
	require.NoError(t, s.Load(ctx, testResult("run-1", start, 10)))

	res := testResult("run-2", start.Add(time.Minute), 12)
	res.Records.Snapshot = nil
	res.Records.SnapshotError = "no qualifying row"
	require.NoError(t, s.Load(ctx, res))

	snap, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10.0, snap.TotalSteam, "the last good snapshot is kept")

	runs, err := s.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, -1, runs[0].SnapshotRow)
	assert.Equal(t, "no qualifying row", runs[0].SnapshotError)
}

func TestStore_DuplicateRunIsRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	res := testResult("run-1", time.Date(2024, 1, 5, 1, 5, 0, 0, time.UTC), 10)

	require.NoError(t, s.Load(ctx, res))
	require.Error(t, s.Load(ctx, res))

	runs, err := s.Runs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1, "the failed load is rolled back")
}

func TestIsoDay(t *testing.T) {
	assert.Equal(t, "2024-01-05", isoDay("1/5/2024"))
	assert.Equal(t, "2024-12-31", isoDay("12/31/2024"))
	assert.Equal(t, "TOTAL", isoDay("TOTAL"))
}
