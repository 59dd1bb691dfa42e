// Package sqlitesink keeps sync runs and readings in a SQLite database so
// history can be queried across workbook revisions.
package sqlitesink

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrNoSnapshot is returned when no stored run carries a snapshot.
var ErrNoSnapshot = errors.New("no snapshot stored")

// timeLayout is fixed width so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store writes each sync into SQLite. It implements pipeline.Loader.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens or creates the database at path and applies the schema.
func New(path string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := s.db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load stores res in one transaction: the run, its snapshot if any, its
// issues, an upsert of every daily reading and a replacement of every hourly
// date the workbook carries.
func (s *Store) Load(ctx context.Context, res domain.SyncResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := insertRun(ctx, tx, res.Summary()); err != nil {
		return err
	}
	if snap := res.Records.Snapshot; snap != nil {
		if err := insertSnapshot(ctx, tx, res.RunID, snap); err != nil {
			return err
		}
	}
	if err := upsertDaily(ctx, tx, res.RunID, res.Records.Daily); err != nil {
		return err
	}
	if err := upsertHourly(ctx, tx, res.RunID, res.Records.Hourly); err != nil {
		return err
	}
	if err := insertIssues(ctx, tx, res.RunID, res.Records.Issues); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.logger.Debug("sync stored", "run_id", res.RunID)
	return nil
}

func insertRun(ctx context.Context, tx *sql.Tx, r domain.SyncSummary) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sync_runs (
			run_id, started_at, finished_at, source_name, source_hash, cache_hit,
			snapshot_row, snapshot_error, daily_records, hourly_records,
			issues, clamped, degraded
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RunID, r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout),
		r.SourceName, r.SourceHash, r.CacheHit,
		r.SnapshotRow, r.SnapshotError, r.DailyRecords, r.HourlyRecords,
		r.Issues, r.Clamped, r.Degraded,
	)
	if err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

func insertSnapshot(ctx context.Context, tx *sql.Tx, runID string, snap *domain.Snapshot) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (
			run_id, steam_sheet, water_sheet, source_row, source_date,
			source_time, timestamp, total_steam, total_water
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID, snap.SteamSheet, snap.WaterSheet, snap.SourceRow, snap.SourceDate,
		snap.SourceTime, snap.Timestamp, snap.TotalSteam, snap.TotalWater,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_boilers (
			run_id, boiler_id, name, steam, natural_gas, ng_to_steam_ratio,
			water, max_capacity, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare snapshot boilers: %w", err)
	}
	defer stmt.Close()

	for _, b := range snap.Boilers {
		if _, err := stmt.ExecContext(ctx,
			runID, int(b.BoilerID), b.Name, b.Steam, b.NaturalGas, b.NGToSteamRatio,
			b.Water, b.MaxCapacity, string(b.Status),
		); err != nil {
			return fmt.Errorf("insert snapshot boiler %d: %w", b.BoilerID, err)
		}
	}
	return nil
}

func upsertDaily(ctx context.Context, tx *sql.Tx, runID string, series []domain.BoilerDaily) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_readings (
			boiler_id, date, day, steam, water, water_per_tonne_steam,
			natural_gas, ng_per_tonne_steam, electric, waste_gas, run_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (boiler_id, date) DO UPDATE SET
			steam = excluded.steam,
			water = excluded.water,
			water_per_tonne_steam = excluded.water_per_tonne_steam,
			natural_gas = excluded.natural_gas,
			ng_per_tonne_steam = excluded.ng_per_tonne_steam,
			electric = excluded.electric,
			waste_gas = excluded.waste_gas,
			run_id = excluded.run_id
	`)
	if err != nil {
		return fmt.Errorf("prepare daily readings: %w", err)
	}
	defer stmt.Close()

	for _, d := range series {
		for _, r := range d.Records {
			if _, err := stmt.ExecContext(ctx,
				int(d.BoilerID), r.Date, isoDay(r.Date), r.Steam, r.Water, r.WaterPerTonneSteam,
				r.NaturalGas, r.NGPerTonneSteam, r.Electric, r.WasteGas, runID,
			); err != nil {
				return fmt.Errorf("upsert daily reading boiler %d %s: %w", d.BoilerID, r.Date, err)
			}
		}
	}
	return nil
}

func upsertHourly(ctx context.Context, tx *sql.Tx, runID string, series []domain.BoilerHourly) error {
	del, err := tx.PrepareContext(ctx, `DELETE FROM hourly_readings WHERE boiler_id = ? AND date = ?`)
	if err != nil {
		return fmt.Errorf("prepare hourly delete: %w", err)
	}
	defer del.Close()

	ins, err := tx.PrepareContext(ctx, `
		INSERT INTO hourly_readings (
			boiler_id, date, seq, time_of_day, day, steam, water, ng_total, record, run_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare hourly readings: %w", err)
	}
	defer ins.Close()

	for _, h := range series {
		for _, date := range h.Records.Dates {
			if _, err := del.ExecContext(ctx, int(h.BoilerID), date); err != nil {
				return fmt.Errorf("replace hourly readings boiler %d %s: %w", h.BoilerID, date, err)
			}
			day := isoDay(date)
			for seq, r := range h.Records.ByDate[date] {
				body, err := json.Marshal(r)
				if err != nil {
					return fmt.Errorf("encode hourly reading: %w", err)
				}
				if _, err := ins.ExecContext(ctx,
					int(h.BoilerID), date, seq, r.TimeOfDay, day, r.Steam, r.Water, r.NGTotal, string(body), runID,
				); err != nil {
					return fmt.Errorf("insert hourly reading boiler %d %s #%d: %w", h.BoilerID, date, seq, err)
				}
			}
		}
	}
	return nil
}

func insertIssues(ctx context.Context, tx *sql.Tx, runID string, issues []domain.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO issues (
			run_id, id, severity, boiler_id, metric, value, message, date, sheet, cell
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare issues: %w", err)
	}
	defer stmt.Close()

	for _, is := range issues {
		if _, err := stmt.ExecContext(ctx,
			runID, is.ID, string(is.Severity), int(is.BoilerID), is.Metric, is.Value,
			is.Message, is.Date, is.Sheet, is.Cell,
		); err != nil {
			return fmt.Errorf("insert issue %s: %w", is.ID, err)
		}
	}
	return nil
}

// isoDay turns "1/5/2024" into "2024-01-05". Unparseable dates sort as-is.
func isoDay(date string) string {
	t, err := time.Parse("1/2/2006", date)
	if err != nil {
		return date
	}
	return t.Format(time.DateOnly)
}
