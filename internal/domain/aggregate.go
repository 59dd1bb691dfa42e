package domain

import "errors"

// BuildDailySeries walks every data row of a daily report sheet in row order.
// Rows without a usable date are skipped, as are rows with no steam, water or
// natural gas after clamping. Rows are not re-sorted.
func BuildDailySeries(sheet *Sheet, boiler BoilerID, audit *Audit) ([]DailyRecord, error) {
	layout, err := LookupLayout(RoleDaily, boiler)
	if err != nil {
		return nil, err
	}
	dateCol, _ := layout.Column(FieldDate)

	out := make([]DailyRecord, 0)
	for _, row := range DataRows(sheet, layout) {
		if _, ok := checkDate(sheet, row, dateCol, layout, audit); !ok {
			continue
		}
		rec := dailyFromReading(ReadRow(sheet, row, layout, audit))
		if !rec.Active() {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// LatestDaily returns the most recent active, dated row of a daily sheet, or
// nil when the sheet has none. series is the already built series and is
// used when the last active row is an undated total.
func LatestDaily(sheet *Sheet, boiler BoilerID, series []DailyRecord, audit *Audit) (*DailyRecord, error) {
	layout, err := LookupLayout(RoleDaily, boiler)
	if err != nil {
		return nil, err
	}
	row, err := FindLatestActiveRow(sheet, []ColumnLayout{layout}, layout.HeaderRows)
	if errors.Is(err, ErrNoQualifyingRow) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r := ReadRow(sheet, row, layout, audit)
	if r.HasDate {
		rec := dailyFromReading(r)
		return &rec, nil
	}
	if len(series) == 0 {
		return nil, nil
	}
	rec := series[len(series)-1]
	return &rec, nil
}

// BuildHourlySeries walks every data row of an hourly sheet. A row without
// its own date inherits the last seen date. Rows without a time are not data
// rows and are skipped without touching the carried date. Times round to the
// nearest hour, half up, and hour 24 folds to 00:00 of the labelled date.
func BuildHourlySeries(sheet *Sheet, boiler BoilerID, audit *Audit) (HourlySeries, error) {
	layout, err := LookupLayout(RoleHourly, boiler)
	if err != nil {
		return HourlySeries{}, err
	}
	dateCol, _ := layout.Column(FieldDate)
	timeCol, _ := layout.Column(FieldTime)

	series := HourlySeries{ByDate: make(map[string][]HourlyRecord)}
	var current CalendarDate
	for _, row := range DataRows(sheet, layout) {
		cell := sheet.Cell(row, timeCol)
		tod, ok, degraded := decodeTimeOfDay(cell)
		if degraded {
			recordDegraded(audit, sheet, row, timeCol, layout, FieldTime, cell)
		}
		if !ok {
			continue
		}

		// A zero date serial counts as no date; unparseable text such as
		// "TOTAL" marks a summary row.
		dateCell := sheet.Cell(row, dateCol)
		d, ok, degraded := decodeDate(dateCell)
		if degraded {
			recordDegraded(audit, sheet, row, dateCol, layout, FieldDate, dateCell)
			continue
		}
		if ok {
			current = d
		}
		if current.IsZero() {
			continue
		}

		r := ReadRow(sheet, row, layout, audit)
		series.Append(current.String(), hourlyFromReading(r, tod))
	}
	return series, nil
}

// checkDate decodes the date cell of a row and records a degraded decode.
func checkDate(sheet *Sheet, row, col int, layout ColumnLayout, audit *Audit) (CalendarDate, bool) {
	cell := sheet.Cell(row, col)
	d, ok, degraded := decodeDate(cell)
	if degraded {
		recordDegraded(audit, sheet, row, col, layout, FieldDate, cell)
	}
	return d, ok
}

func recordDegraded(audit *Audit, sheet *Sheet, row, col int, layout ColumnLayout, f Field, cell Cell) {
	audit.Record(Flag{
		Kind:   FlagDecodeDegraded,
		Sheet:  sheetName(sheet),
		Row:    row,
		Column: col,
		Cell:   CellRef(row, col),
		Boiler: flagBoiler(layout, f),
		Field:  f,
		Raw:    cell.Raw(),
	})
}

// dailyElectric is the column published as a day's electric value. The
// B1/B2 reports publish electricity per tonne of steam; B3 publishes the
// metered total.
var dailyElectric = map[LayoutVariant]Field{
	B1B2Daily: FieldElectricPerTonneSteam,
	B3Daily:   FieldElectricTotal,
}

func dailyFromReading(r RawReading) DailyRecord {
	return DailyRecord{
		Date:               r.Date.String(),
		Steam:              r.Value(FieldSteam),
		Water:              r.Value(FieldWater),
		WaterPerTonneSteam: r.Value(FieldWaterPerTonneSteam),
		NaturalGas:         r.Value(FieldNaturalGas),
		NGPerTonneSteam:    r.Value(FieldNGPerTonneSteam),
		Electric:           r.Value(dailyElectric[r.Layout.Variant]),
		WasteGas:           r.Value(FieldWasteGas),
	}
}

func hourlyFromReading(r RawReading, tod TimeOfDay) HourlyRecord {
	rec := HourlyRecord{
		TimeOfDay:         tod.HourLabel(),
		Steam:             r.Value(FieldSteam),
		Water:             r.Value(FieldWater),
		ElectricT1:        r.Value(FieldElectricT1),
		ElectricT2:        r.Value(FieldElectricT2),
		ElectricTotal:     r.Value(FieldElectricTotal),
		NGBurner1:         r.Value(FieldNGBurner1),
		NGBurner2:         r.Value(FieldNGBurner2),
		NGTotal:           r.Value(FieldNGTotal),
		WGBurner1:         r.Value(FieldWGBurner1),
		WGBurner2:         r.Value(FieldWGBurner2),
		WGTotal:           r.Value(FieldWGTotal),
		FeedPumpTemp:      r.Value(FieldFeedPumpTemp),
		FeedPumpPressure:  r.Value(FieldFeedPumpPressure),
		EconomiserTempIn:  r.Value(FieldEconomiserTempIn),
		EconomiserTempOut: r.Value(FieldEconomiserTempOut),
		FlueGasTempIn:     r.Value(FieldFlueGasTempIn),
		FlueGasTempOut:    r.Value(FieldFlueGasTempOut),
		BlowdownTime:      r.Value(FieldBlowdownTime),
	}
	if !r.Layout.Has(FieldNGTotal) {
		rec.NGTotal = rec.NGBurner1 + rec.NGBurner2
	}
	if !r.Layout.Has(FieldWGTotal) {
		rec.WGTotal = rec.WGBurner1 + rec.WGBurner2
	}
	if r.Layout.Has(FieldNGCustody) {
		custody := r.Value(FieldNGCustody)
		rec.NGCustody = &custody
	}
	return rec
}
