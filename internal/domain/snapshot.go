package domain

import "fmt"

// BuildSnapshot reads the current value of every boiler from the single
// joint row of the steam and water sheets. Water is only ever read at the
// row the steam scan selected; a row with no water data fails the snapshot.
func BuildSnapshot(steam, water *Sheet, cfg BuildConfig, audit *Audit) (*Snapshot, error) {
	steamLayouts, err := LayoutsFor(RoleSteam)
	if err != nil {
		return nil, err
	}
	waterLayouts, err := LayoutsFor(RoleWater)
	if err != nil {
		return nil, err
	}

	row, err := FindLatestJointRow(steam, steamLayouts, cfg.Window)
	if err != nil {
		return nil, err
	}
	if err := checkWaterRow(water, row, waterLayouts); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		SteamSheet: sheetName(steam),
		WaterSheet: sheetName(water),
		SourceRow:  row,
		Boilers:    make([]BoilerSnapshot, 0, len(Boilers)),
	}
	for i, b := range Boilers {
		sr := ReadRow(steam, row, steamLayouts[i], audit)
		wr := ReadRow(water, row, waterLayouts[i], audit)
		bs, err := MergeJointReading(sr, wr, cfg.Capacity(b))
		if err != nil {
			return nil, err
		}
		if i == 0 {
			snap.SourceDate = sr.Date.String()
			if sr.HasTime {
				snap.SourceTime = sr.Time.String()
			}
			snap.Timestamp = sr.Timestamp()
		}
		snap.Boilers = append(snap.Boilers, bs)
		snap.TotalSteam += bs.Steam
		snap.TotalWater += bs.Water
	}
	return snap, nil
}

func checkWaterRow(water *Sheet, row int, layouts []ColumnLayout) error {
	fail := func(reason string) error {
		return &NoQualifyingRowError{Sheet: sheetName(water), Floor: row, Ceiling: row, Reason: reason}
	}
	if row > water.LastRow() {
		return fail(fmt.Sprintf("water sheet ends at row %d, before joint row %d", water.LastRow(), row))
	}
	for _, l := range layouts {
		col, _ := l.Column(FieldWater)
		if !water.Cell(row, col).IsEmpty() {
			return nil
		}
	}
	return fail(fmt.Sprintf("no water readings at joint row %d", row))
}
