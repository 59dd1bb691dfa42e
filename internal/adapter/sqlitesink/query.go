package sqlitesink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

// Runs returns the most recent sync runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]domain.SyncSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, source_name, source_hash, cache_hit,
		       snapshot_row, snapshot_error, daily_records, hourly_records,
		       issues, clamped, degraded
		FROM sync_runs
		ORDER BY finished_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync runs: %w", err)
	}
	defer rows.Close()

	var out []domain.SyncSummary
	for rows.Next() {
		var (
			r                 domain.SyncSummary
			started, finished string
		)
		if err := rows.Scan(
			&r.RunID, &started, &finished, &r.SourceName, &r.SourceHash, &r.CacheHit,
			&r.SnapshotRow, &r.SnapshotError, &r.DailyRecords, &r.HourlyRecords,
			&r.Issues, &r.Clamped, &r.Degraded,
		); err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("run %s started_at: %w", r.RunID, err)
		}
		if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("run %s finished_at: %w", r.RunID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the snapshot of the newest run that had one.
func (s *Store) LatestSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	var (
		runID string
		snap  domain.Snapshot
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT s.run_id, s.steam_sheet, s.water_sheet, s.source_row, s.source_date,
		       s.source_time, s.timestamp, s.total_steam, s.total_water
		FROM snapshots s
		JOIN sync_runs r ON r.run_id = s.run_id
		ORDER BY r.finished_at DESC
		LIMIT 1
	`).Scan(
		&runID, &snap.SteamSheet, &snap.WaterSheet, &snap.SourceRow, &snap.SourceDate,
		&snap.SourceTime, &snap.Timestamp, &snap.TotalSteam, &snap.TotalWater,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT boiler_id, name, steam, natural_gas, ng_to_steam_ratio, water,
		       max_capacity, status
		FROM snapshot_boilers
		WHERE run_id = ?
		ORDER BY boiler_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot boilers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			b      domain.BoilerSnapshot
			id     int
			status string
		)
		if err := rows.Scan(&id, &b.Name, &b.Steam, &b.NaturalGas, &b.NGToSteamRatio, &b.Water, &b.MaxCapacity, &status); err != nil {
			return nil, fmt.Errorf("scan snapshot boiler: %w", err)
		}
		b.BoilerID = domain.BoilerID(id)
		b.Status = domain.Status(status)
		b.Timestamp = snap.Timestamp
		snap.Boilers = append(snap.Boilers, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Daily returns every stored daily reading of b in date order.
func (s *Store) Daily(ctx context.Context, b domain.BoilerID) ([]domain.DailyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, steam, water, water_per_tonne_steam, natural_gas,
		       ng_per_tonne_steam, electric, waste_gas
		FROM daily_readings
		WHERE boiler_id = ?
		ORDER BY day
	`, int(b))
	if err != nil {
		return nil, fmt.Errorf("query daily readings: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DailyRecord, 0)
	for rows.Next() {
		var r domain.DailyRecord
		if err := rows.Scan(&r.Date, &r.Steam, &r.Water, &r.WaterPerTonneSteam, &r.NaturalGas,
			&r.NGPerTonneSteam, &r.Electric, &r.WasteGas); err != nil {
			return nil, fmt.Errorf("scan daily reading: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Hourly returns the stored hourly readings of b on date, in row order.
func (s *Store) Hourly(ctx context.Context, b domain.BoilerID, date string) ([]domain.HourlyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record
		FROM hourly_readings
		WHERE boiler_id = ? AND date = ?
		ORDER BY seq
	`, int(b), date)
	if err != nil {
		return nil, fmt.Errorf("query hourly readings: %w", err)
	}
	defer rows.Close()

	out := make([]domain.HourlyRecord, 0)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan hourly reading: %w", err)
		}
		var r domain.HourlyRecord
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, fmt.Errorf("decode hourly reading: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Issues returns the issues recorded by run.
func (s *Store) Issues(ctx context.Context, runID string) ([]domain.Issue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, severity, boiler_id, metric, value, message, date, sheet, cell
		FROM issues
		WHERE run_id = ?
		ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Issue, 0)
	for rows.Next() {
		var (
			is       domain.Issue
			severity string
			boiler   int
		)
		if err := rows.Scan(&is.ID, &severity, &boiler, &is.Metric, &is.Value, &is.Message, &is.Date, &is.Sheet, &is.Cell); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		is.Severity = domain.Severity(severity)
		is.BoilerID = domain.BoilerID(boiler)
		out = append(out, is)
	}
	return out, rows.Err()
}
