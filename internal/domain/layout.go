package domain

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Field is a logical column name shared by every layout.
type Field string

const (
	FieldDate  Field = "date"
	FieldTime  Field = "time"
	FieldSteam Field = "steam"
	FieldWater Field = "water"

	FieldNaturalGas     Field = "naturalGas"
	FieldNGToSteamRatio Field = "ngToSteamRatio"
	FieldOutput         Field = "output"

	FieldWaterPerTonneSteam    Field = "waterPerTonneSteam"
	FieldNGPerTonneSteam       Field = "ngPerTonneSteam"
	FieldElectricPerTonneSteam Field = "electricPerTonneSteam"
	FieldWasteGas              Field = "wasteGas"

	FieldElectricT1    Field = "electricT1"
	FieldElectricT2    Field = "electricT2"
	FieldElectricTotal Field = "electricTotal"

	FieldNGBurner1 Field = "ngBurner1"
	FieldNGBurner2 Field = "ngBurner2"
	FieldNGTotal   Field = "ngTotal"
	FieldNGCustody Field = "ngCustody"
	FieldWGBurner1 Field = "wgBurner1"
	FieldWGBurner2 Field = "wgBurner2"
	FieldWGTotal   Field = "wgTotal"

	FieldFeedPumpTemp      Field = "feedPumpTemp"
	FieldFeedPumpPressure  Field = "feedPumpPressure"
	FieldEconomiserTempIn  Field = "economiserTempIn"
	FieldEconomiserTempOut Field = "economiserTempOut"
	FieldFlueGasTempIn     Field = "flueGasTempIn"
	FieldFlueGasTempOut    Field = "flueGasTempOut"
	FieldBlowdownTime      Field = "blowdownTime"
)

// temporal reports whether f is decoded as a date or time instead of a
// quantity.
func (f Field) temporal() bool {
	return f == FieldDate || f == FieldTime
}

// LayoutVariant is the closed set of column layouts found in the workbook.
type LayoutVariant string

const (
	SteamRatio LayoutVariant = "steam-ratio"
	WaterRatio LayoutVariant = "water-ratio"
	B1B2Daily  LayoutVariant = "b1b2-daily"
	B3Daily    LayoutVariant = "b3-daily"
	B1B2Hourly LayoutVariant = "b1b2-hourly"
	B3Hourly   LayoutVariant = "b3-hourly"
)

// Column binds a field to a zero-based column index.
type Column struct {
	Field Field
	Index int
}

// ColumnLayout is an immutable field-to-column table for one (role, boiler)
// pair. HeaderRows is the index of the first data row.
type ColumnLayout struct {
	Variant    LayoutVariant
	Version    int
	Role       Role
	Boiler     BoilerID
	HeaderRows int
	Width      int
	columns    []Column
}

// Column returns the index of f, or false when the layout has no such field.
func (l ColumnLayout) Column(f Field) (int, bool) {
	for _, c := range l.columns {
		if c.Field == f {
			return c.Index, true
		}
	}
	return 0, false
}

// Has reports whether the layout maps f.
func (l ColumnLayout) Has(f Field) bool {
	_, ok := l.Column(f)
	return ok
}

// Columns returns the field bindings in column order.
func (l ColumnLayout) Columns() []Column {
	out := make([]Column, len(l.columns))
	copy(out, l.columns)
	return out
}

// Fields returns the mapped fields in column order.
func (l ColumnLayout) Fields() []Field {
	out := make([]Field, len(l.columns))
	for i, c := range l.columns {
		out[i] = c.Field
	}
	return out
}

func (l ColumnLayout) String() string {
	return fmt.Sprintf("%s/v%d boiler %d", l.Variant, l.Version, int(l.Boiler))
}

func cols(fields ...Field) []Column {
	out := make([]Column, 0, len(fields))
	for i, f := range fields {
		if f == "" {
			continue
		}
		out = append(out, Column{Field: f, Index: i})
	}
	return out
}

// at places fields starting at column offset, keeping date and time at 0 and 1.
func at(offset int, fields ...Field) []Column {
	out := []Column{{Field: FieldDate, Index: 0}, {Field: FieldTime, Index: 1}}
	for i, f := range fields {
		out = append(out, Column{Field: f, Index: offset + i})
	}
	return out
}

// Ratio sheets start data at row 9; the daily and hourly tabs have their own
// header depth.
const (
	ratioHeaderRows      = 9
	b1b2DailyHeaderRows  = 5
	b3DailyHeaderRows    = 8
	b1b2HourlyHeaderRows = 11
	b3HourlyHeaderRows   = 11
)

var (
	steamBlockOffset = map[BoilerID]int{Boiler1: 3, Boiler2: 7, Boiler3: 11}
	waterColumn      = map[BoilerID]int{Boiler1: 3, Boiler2: 15, Boiler3: 17}

	b1b2DailyColumns = cols(
		FieldDate, FieldSteam, FieldWater, FieldWaterPerTonneSteam,
		FieldNaturalGas, FieldNGPerTonneSteam,
		FieldElectricT1, FieldElectricT2, FieldElectricTotal,
		FieldElectricPerTonneSteam, FieldWasteGas,
	)

	b3DailyColumns = cols(
		FieldDate, FieldSteam, FieldWater, FieldWaterPerTonneSteam,
		FieldNaturalGas, FieldNGPerTonneSteam,
		FieldElectricT1, FieldElectricT2, FieldElectricTotal,
		FieldElectricPerTonneSteam,
	)

	b1b2HourlyColumns = cols(
		FieldDate, FieldTime, FieldSteam, FieldWater,
		FieldElectricT1, FieldElectricT2, FieldElectricTotal,
		FieldNGBurner1, FieldNGBurner2, FieldNGTotal,
		FieldWGBurner1, FieldWGBurner2, FieldWGTotal,
		FieldFeedPumpTemp, FieldFeedPumpPressure,
		FieldEconomiserTempIn, FieldEconomiserTempOut,
		FieldFlueGasTempIn, FieldFlueGasTempOut,
		FieldBlowdownTime,
	)

	b3HourlyColumns = cols(
		FieldDate, FieldTime, FieldSteam, FieldWater,
		FieldElectricT1, FieldElectricT2, FieldElectricTotal,
		FieldNGBurner1, FieldNGCustody,
		FieldFeedPumpTemp, FieldFeedPumpPressure,
		FieldEconomiserTempIn, FieldEconomiserTempOut,
		FieldFlueGasTempIn, FieldFlueGasTempOut,
		FieldBlowdownTime,
	)
)

var layouts = buildLayouts()

func buildLayouts() map[SheetKey]ColumnLayout {
	m := make(map[SheetKey]ColumnLayout, len(Roles)*len(Boilers))
	for _, b := range Boilers {
		off := steamBlockOffset[b]
		m[SheetKey{Role: RoleSteam, Boiler: b}] = ColumnLayout{
			Variant: SteamRatio, Version: 1, Role: RoleSteam, Boiler: b,
			HeaderRows: ratioHeaderRows, Width: 15,
			columns: at(off, FieldSteam, FieldNaturalGas, FieldNGToSteamRatio, FieldOutput),
		}
		m[SheetKey{Role: RoleWater, Boiler: b}] = ColumnLayout{
			Variant: WaterRatio, Version: 1, Role: RoleWater, Boiler: b,
			HeaderRows: ratioHeaderRows, Width: 18,
			columns: at(waterColumn[b], FieldWater),
		}
	}
	for _, b := range []BoilerID{Boiler1, Boiler2} {
		m[DailyKey(b)] = ColumnLayout{
			Variant: B1B2Daily, Version: 1, Role: RoleDaily, Boiler: b,
			HeaderRows: b1b2DailyHeaderRows, Width: 11, columns: b1b2DailyColumns,
		}
		m[HourlyKey(b)] = ColumnLayout{
			Variant: B1B2Hourly, Version: 1, Role: RoleHourly, Boiler: b,
			HeaderRows: b1b2HourlyHeaderRows, Width: 20, columns: b1b2HourlyColumns,
		}
	}
	m[DailyKey(Boiler3)] = ColumnLayout{
		Variant: B3Daily, Version: 1, Role: RoleDaily, Boiler: Boiler3,
		HeaderRows: b3DailyHeaderRows, Width: 10, columns: b3DailyColumns,
	}
	m[HourlyKey(Boiler3)] = ColumnLayout{
		Variant: B3Hourly, Version: 1, Role: RoleHourly, Boiler: Boiler3,
		HeaderRows: b3HourlyHeaderRows, Width: 16, columns: b3HourlyColumns,
	}
	return m
}

// LookupLayout returns the layout for a role and boiler. It is the only way
// to obtain a layout, so a row is never mapped with another boiler's table.
func LookupLayout(role Role, boiler BoilerID) (ColumnLayout, error) {
	l, ok := layouts[SheetKey{Role: role, Boiler: boiler}]
	if !ok {
		return ColumnLayout{}, fmt.Errorf("%w: role %q boiler %d", ErrUnknownLayout, role, int(boiler))
	}
	return l, nil
}

// LayoutsFor returns one layout per boiler for a role, in boiler order.
func LayoutsFor(role Role) ([]ColumnLayout, error) {
	out := make([]ColumnLayout, 0, len(Boilers))
	for _, b := range Boilers {
		l, err := LookupLayout(role, b)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// RawReading is one row's decoded values for one boiler. Quantities are
// unclamped until passed through Normalize.
type RawReading struct {
	Sheet   string
	Row     int
	Boiler  BoilerID
	Layout  ColumnLayout
	Date    CalendarDate
	HasDate bool
	Time    TimeOfDay
	HasTime bool
	Values  map[Field]float64
}

// Value returns the decoded quantity for f, 0 when the layout lacks it.
func (r RawReading) Value(f Field) float64 {
	return r.Values[f]
}

// Timestamp is the reading's date and time as RFC 3339, or "" without a date.
func (r RawReading) Timestamp() string {
	if !r.HasDate {
		return ""
	}
	return r.Date.At(r.Time).Format("2006-01-02T15:04:05Z07:00")
}

// MapRow decodes one row with a layout. Header text is never consulted.
// Cells that are present but fail to decode are recorded on audit.
func MapRow(sheet *Sheet, row int, layout ColumnLayout, audit *Audit) RawReading {
	r := RawReading{
		Sheet:  sheetName(sheet),
		Row:    row,
		Boiler: layout.Boiler,
		Layout: layout,
		Values: make(map[Field]float64, len(layout.columns)),
	}
	for _, c := range layout.columns {
		cell := sheet.Cell(row, c.Index)
		var degraded bool
		switch c.Field {
		case FieldDate:
			r.Date, r.HasDate, degraded = decodeDate(cell)
		case FieldTime:
			r.Time, r.HasTime, degraded = decodeTimeOfDay(cell)
		default:
			r.Values[c.Field], degraded = decodeNumber(cell)
		}
		if degraded {
			audit.Record(Flag{
				Kind:   FlagDecodeDegraded,
				Sheet:  r.Sheet,
				Row:    row,
				Column: c.Index,
				Cell:   CellRef(row, c.Index),
				Boiler: flagBoiler(layout, c.Field),
				Field:  c.Field,
				Raw:    cell.Raw(),
			})
		}
	}
	return r
}

// ReadRow maps and normalizes one row.
func ReadRow(sheet *Sheet, row int, layout ColumnLayout, audit *Audit) RawReading {
	return Normalize(MapRow(sheet, row, layout, audit), audit)
}

// CellRef converts zero-based coordinates to an A1 reference.
func CellRef(row, col int) string {
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return fmt.Sprintf("R%dC%d", row+1, col+1)
	}
	return ref
}

// flagBoiler leaves the boiler unset for the shared date and time columns
// of a ratio sheet, so one bad cell yields one flag.
func flagBoiler(l ColumnLayout, f Field) BoilerID {
	if l.Role.Shared() && f.temporal() {
		return 0
	}
	return l.Boiler
}

func sheetName(s *Sheet) string {
	if s == nil {
		return ""
	}
	return s.Name
}
