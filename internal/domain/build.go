package domain

import (
	"errors"
	"fmt"
)

// Default maximum steam capacity per boiler, in tonnes per hour.
var DefaultCapacities = map[BoilerID]float64{
	Boiler1: 18,
	Boiler2: 18,
	Boiler3: 16,
}

// BuildConfig holds the inputs of a build that come from configuration.
type BuildConfig struct {
	Hints      SheetHints
	Window     ScanWindow
	Capacities map[BoilerID]float64
}

// DefaultBuildConfig returns the settings that match the plant workbook.
func DefaultBuildConfig() BuildConfig {
	caps := make(map[BoilerID]float64, len(DefaultCapacities))
	for b, c := range DefaultCapacities {
		caps[b] = c
	}
	return BuildConfig{
		Hints:      DefaultSheetHints(),
		Window:     DefaultScanWindow(),
		Capacities: caps,
	}
}

// Capacity returns the configured capacity of b, falling back to the default.
func (c BuildConfig) Capacity(b BoilerID) float64 {
	if v, ok := c.Capacities[b]; ok {
		return v
	}
	return DefaultCapacities[b]
}

// Validate checks the window and that every boiler has a non-negative capacity.
func (c BuildConfig) Validate() error {
	if err := c.Window.Validate(); err != nil {
		return err
	}
	for _, b := range Boilers {
		if c.Capacity(b) < 0 {
			return fmt.Errorf("boiler %d: negative capacity %v", int(b), c.Capacity(b))
		}
	}
	return nil
}

// BuildRecords runs the whole extraction over an in-memory workbook. A
// missing sheet fails the build. A snapshot without a qualifying row is
// reported in Records.SnapshotError and history is still built. The result
// depends only on wb and cfg.
func BuildRecords(wb *Workbook, cfg BuildConfig) (Records, error) {
	if err := cfg.Validate(); err != nil {
		return Records{}, err
	}
	sheets, err := ResolveSheets(wb, RequiredSheets(), cfg.Hints)
	if err != nil {
		return Records{}, err
	}

	audit := &Audit{}
	var rec Records

	snap, err := BuildSnapshot(sheets[SteamKey], sheets[WaterKey], cfg, audit)
	switch {
	case errors.Is(err, ErrNoQualifyingRow):
		rec.SnapshotError = err.Error()
	case err != nil:
		return Records{}, fmt.Errorf("build snapshot: %w", err)
	default:
		rec.Snapshot = snap
	}

	for _, b := range Boilers {
		sheet := sheets[DailyKey(b)]
		series, err := BuildDailySeries(sheet, b, audit)
		if err != nil {
			return Records{}, fmt.Errorf("daily series for boiler %d: %w", int(b), err)
		}
		latest, err := LatestDaily(sheet, b, series, audit)
		if err != nil {
			return Records{}, fmt.Errorf("latest daily for boiler %d: %w", int(b), err)
		}
		rec.Daily = append(rec.Daily, BoilerDaily{BoilerID: b, Sheet: sheet.Name, Records: series, Latest: latest})
	}

	for _, b := range Boilers {
		sheet := sheets[HourlyKey(b)]
		series, err := BuildHourlySeries(sheet, b, audit)
		if err != nil {
			return Records{}, fmt.Errorf("hourly series for boiler %d: %w", int(b), err)
		}
		rec.Hourly = append(rec.Hourly, BoilerHourly{BoilerID: b, Sheet: sheet.Name, Records: series})
	}

	rec.Flags = audit.Flags()
	if rec.Flags == nil {
		rec.Flags = []Flag{}
	}
	rec.Issues = Validate(rec)
	return rec, nil
}
