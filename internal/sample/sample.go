// Package sample generates synthetic plant workbooks with the same sheet
// names and column layouts as the real one. Output is a pure function of the
// options, so generated files can back golden tests.
package sample

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

// Sheet names, matching the plant workbook.
const (
	CoverSheet = "Cover"
	SteamSheet = "NGSTEAM RATIO"
	WaterSheet = "WATER_STEAM RATIO"
)

// DailySheet is the daily report tab of boiler b.
func DailySheet(b domain.BoilerID) string { return fmt.Sprintf("REPORT B%d", int(b)) }

// HourlySheet is the hourly data tab of boiler b.
func HourlySheet(b domain.BoilerID) string { return fmt.Sprintf("DATA B%d", int(b)) }

// Options control the generated workbook.
type Options struct {
	// Start is the first day. Only the date part is used.
	Start time.Time
	// Days is how many days the sheets cover, the last one partially.
	Days int
	// LoggedHours is how many hours of the last day have readings. The rest
	// of the day is pre-filled with date and time only.
	LoggedHours int
	// OfflineBoiler, when set, reports zero steam on the last day.
	OfflineBoiler domain.BoilerID
	// Anomalies injects a negative gas meter reading and a TOTAL row.
	Anomalies bool
}

// DefaultOptions returns three days starting 2024-01-03, with the last day
// logged up to 08:00.
func DefaultOptions() Options {
	return Options{
		Start:       time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC),
		Days:        3,
		LoggedHours: 8,
		Anomalies:   true,
	}
}

func (o Options) validate() error {
	if o.Days < 1 {
		return fmt.Errorf("days must be at least 1, got %d", o.Days)
	}
	if o.LoggedHours < 1 || o.LoggedHours > 24 {
		return fmt.Errorf("logged hours must be 1..24, got %d", o.LoggedHours)
	}
	if ratioFirstRow+o.Days*24 > domain.DefaultScanCeiling {
		return fmt.Errorf("%d days do not fit under the scan ceiling", o.Days)
	}
	if o.OfflineBoiler != 0 && !o.OfflineBoiler.Valid() {
		return fmt.Errorf("unknown boiler %d", int(o.OfflineBoiler))
	}
	return nil
}

// First data rows, zero-based, per sheet kind.
const (
	ratioFirstRow  = 9
	b1b2DailyFirst = 5
	b3DailyFirst   = 8
	hourlyFirstRow = 11
)

// LatestRow is the zero-based row of the last logged hour in the ratio
// sheets, which is where the snapshot is read.
func (o Options) LatestRow() int {
	return ratioFirstRow + (o.Days-1)*24 + o.LoggedHours - 1
}

// Bytes renders the workbook as .xlsx bytes.
func Bytes(o Options) ([]byte, error) {
	f, err := New(o)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// New builds the workbook. The caller closes it.
func New(o Options) (*excelize.File, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	g := &generator{opts: o, f: excelize.NewFile()}
	if err := g.build(); err != nil {
		g.f.Close()
		return nil, err
	}
	return g.f, nil
}

type generator struct {
	opts Options
	f    *excelize.File
}

func (g *generator) build() error {
	if err := g.f.SetSheetName("Sheet1", CoverSheet); err != nil {
		return err
	}
	if err := g.f.SetCellValue(CoverSheet, "A1", "Boiler house operating log"); err != nil {
		return err
	}

	steps := []func() error{g.dailySheets, g.hourlySheets, g.waterSheet, g.steamSheet}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// --- readings ---

// Base steam load per boiler, t/h.
var baseSteam = map[domain.BoilerID]float64{domain.Boiler1: 11, domain.Boiler2: 12, domain.Boiler3: 8}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func (g *generator) offline(b domain.BoilerID, day int) bool {
	return b == g.opts.OfflineBoiler && day == g.opts.Days-1
}

// logged reports whether (day, hour) has readings.
func (g *generator) logged(day, hour int) bool {
	return day < g.opts.Days-1 || hour < g.opts.LoggedHours
}

func (g *generator) steam(b domain.BoilerID, day, hour int) float64 {
	if g.offline(b, day) {
		return 0
	}
	wave := math.Sin(float64(hour)/24*2*math.Pi + float64(b))
	return round(baseSteam[b]+1.5*wave+0.1*float64(day), 2)
}

func (g *generator) water(b domain.BoilerID, day, hour int) float64 {
	return round(g.steam(b, day, hour)*1.04, 2)
}

func (g *generator) gas(b domain.BoilerID, day, hour int) float64 {
	return round(g.steam(b, day, hour)*(68+float64(b)), 1)
}

func (g *generator) date(day int) float64 {
	return domain.DateOf(g.opts.Start.AddDate(0, 0, day)).Serial()
}

func hourFraction(hour int) float64 {
	return float64(hour) / 24
}

// --- sheet writers ---

func (g *generator) newSheet(name string, title string) error {
	if _, err := g.f.NewSheet(name); err != nil {
		return err
	}
	return g.f.SetCellValue(name, "A1", title)
}

func (g *generator) setRow(sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row+1)
	if err != nil {
		return err
	}
	return g.f.SetSheetRow(sheet, cell, &values)
}

func (g *generator) dailySheets() error {
	for _, b := range domain.Boilers {
		name := DailySheet(b)
		if err := g.newSheet(name, fmt.Sprintf("DAILY REPORT BOILER NO. %d", int(b))); err != nil {
			return err
		}
		first := b1b2DailyFirst
		if b == domain.Boiler3 {
			first = b3DailyFirst
		}
		if err := g.setRow(name, first-1, dailyHeader(b)); err != nil {
			return err
		}

		var totalSteam float64
		row := first
		for day := 0; day < g.opts.Days; day++ {
			values := g.dailyRow(b, day)
			totalSteam += values[1].(float64)
			if err := g.setRow(name, row, values); err != nil {
				return err
			}
			row++
		}
		if g.opts.Anomalies {
			if err := g.setRow(name, row, []any{"TOTAL", round(totalSteam, 2)}); err != nil {
				return err
			}
		}
	}
	return nil
}

func dailyHeader(b domain.BoilerID) []any {
	h := []any{"DATE", "STEAM", "WATER", "WATER/T", "NG", "NG/T", "T1", "T2", "TOTAL", "KWH/T"}
	if b != domain.Boiler3 {
		h = append(h, "WASTE GAS")
	}
	return h
}

func (g *generator) dailyRow(b domain.BoilerID, day int) []any {
	var steam, water, gas float64
	for hour := 0; hour < 24; hour++ {
		if !g.logged(day, hour) {
			break
		}
		steam += g.steam(b, day, hour)
		water += g.water(b, day, hour)
		gas += g.gas(b, day, hour)
	}
	steam, water, gas = round(steam, 2), round(water, 2), round(gas, 1)
	if g.opts.Anomalies && b == domain.Boiler1 && day == 1 {
		gas = -749683
	}
	t1, t2 := round(steam*4.1, 1), round(steam*3.9, 1)
	values := []any{
		g.date(day), steam, water, ratioOrZero(water, steam),
		gas, ratioOrZero(gas, steam),
		t1, t2, round(t1+t2, 1), ratioOrZero(t1+t2, steam),
	}
	if b != domain.Boiler3 {
		values = append(values, round(steam*2.5, 1))
	}
	return values
}

func ratioOrZero(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return round(num/den, 3)
}

func (g *generator) hourlySheets() error {
	for _, b := range domain.Boilers {
		name := HourlySheet(b)
		if err := g.newSheet(name, fmt.Sprintf("HOURLY DATA BOILER NO. %d", int(b))); err != nil {
			return err
		}
		row := hourlyFirstRow
		for day := 0; day < g.opts.Days; day++ {
			for hour := 0; hour < 24; hour++ {
				if !g.logged(day, hour) {
					break
				}
				if err := g.setRow(name, row, g.hourlyRow(b, day, hour)); err != nil {
					return err
				}
				row++
			}
		}
	}
	return nil
}

func (g *generator) hourlyRow(b domain.BoilerID, day, hour int) []any {
	var date any
	if hour == 0 {
		date = g.date(day)
	}
	steam := g.steam(b, day, hour)
	gas := g.gas(b, day, hour)
	t1, t2 := round(steam*4.1, 1), round(steam*3.9, 1)
	on := 1.0
	if steam == 0 {
		on = 0
	}
	tail := []any{
		round(104*on, 1), round(16.5*on, 1),
		round(104*on, 1), round(140*on, 1),
		round(220*on, 1), round(160*on, 1),
		round(5*on, 1),
	}
	values := []any{date, hourFraction(hour), steam, g.water(b, day, hour), t1, t2, round(t1+t2, 1)}
	if b == domain.Boiler3 {
		values = append(values, gas, round(gas*1.01, 1))
	} else {
		values = append(values,
			round(gas*0.5, 1), round(gas*0.5, 1), gas,
			round(steam*1.2, 1), round(steam*1.3, 1), round(steam*2.5, 1),
		)
	}
	return append(values, tail...)
}

// ratioRows writes one row per hour of every day. Unlogged hours keep their
// date and time but no readings, as the plant template does.
func (g *generator) ratioRows(name string, width int, fill func(values []any, day, hour int)) error {
	row := ratioFirstRow
	for day := 0; day < g.opts.Days; day++ {
		for hour := 0; hour < 24; hour++ {
			values := []any{g.date(day), hourFraction(hour)}
			if g.logged(day, hour) {
				values = append(values, make([]any, width-2)...)
				fill(values, day, hour)
			}
			if err := g.setRow(name, row, values); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func (g *generator) steamSheet() error {
	if err := g.newSheet(SteamSheet, "NG / STEAM RATIO"); err != nil {
		return err
	}
	return g.ratioRows(SteamSheet, 15, func(values []any, day, hour int) {
		for _, b := range domain.Boilers {
			off := 3 + 4*(int(b)-1)
			steam, gas := g.steam(b, day, hour), g.gas(b, day, hour)
			values[off] = steam
			values[off+1] = gas
			values[off+2] = ratioOrZero(gas, steam)
			values[off+3] = round(steam/24, 3)
		}
	})
}

func (g *generator) waterSheet() error {
	if err := g.newSheet(WaterSheet, "WATER / STEAM RATIO"); err != nil {
		return err
	}
	return g.ratioRows(WaterSheet, 18, func(values []any, day, hour int) {
		values[3] = g.water(domain.Boiler1, day, hour)
		values[15] = g.water(domain.Boiler2, day, hour)
		values[17] = g.water(domain.Boiler3, day, hour)
	})
}
