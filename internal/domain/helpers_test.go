package domain

import (
	"testing"
	"time"
)

// sheetBuilder grows a sheet on demand so fixtures only list non-empty cells.
type sheetBuilder struct {
	s *Sheet
}

func newSheet(name string) *sheetBuilder {
	return &sheetBuilder{s: &Sheet{Name: name}}
}

func (b *sheetBuilder) set(row, col int, c Cell) *sheetBuilder {
	for len(b.s.Rows) <= row {
		b.s.Rows = append(b.s.Rows, nil)
	}
	for len(b.s.Rows[row]) <= col {
		b.s.Rows[row] = append(b.s.Rows[row], Cell{})
	}
	b.s.Rows[row][col] = c
	return b
}

func (b *sheetBuilder) num(row, col int, v float64) *sheetBuilder {
	return b.set(row, col, NumberCell(v))
}

func (b *sheetBuilder) text(row, col int, s string) *sheetBuilder {
	return b.set(row, col, TextCell(s))
}

// pad makes sure the sheet has at least n rows.
func (b *sheetBuilder) pad(n int) *sheetBuilder {
	for len(b.s.Rows) < n {
		b.s.Rows = append(b.s.Rows, nil)
	}
	return b
}

func (b *sheetBuilder) sheet() *Sheet { return b.s }

func serial(y, m, d int) float64 {
	return CalendarDate{Year: y, Month: time.Month(m), Day: d}.Serial()
}

func dayFraction(h, m int) float64 {
	return float64(h*60+m) / 1440
}

// fixture columns
const (
	dailyDate = iota
	dailySteam
	dailyWater
	dailyWaterPerTonne
	dailyNG
	dailyNGPerTonne
	dailyT1
	dailyT2
	dailyTotal
	dailyElecPerTonne
	dailyWasteGas
)

// testWorkbook mirrors the plant workbook with a handful of rows:
//
//   - the steam sheet's latest active row is 10, and a test row past the
//     ceiling is left at 545;
//   - the water sheet has data at row 10 and an independent later entry at 15;
//   - REPORT B1 holds an active day, an idle day, a day with a negative gas
//     total and a TOTAL row;
//   - DATA B1 and DATA B3 exercise carry-forward, rounding and 24:00.
func testWorkbook(t *testing.T) *Workbook {
	t.Helper()

	steam := newSheet("NGSTEAM RATIO").
		text(2, 3, "BOILER NO. 1").
		num(9, 0, serial(2024, 1, 5)).num(9, 1, dayFraction(6, 0)).
		num(9, 3, 10).num(9, 4, 700).num(9, 7, 12).num(9, 8, 800).
		num(10, 0, serial(2024, 1, 5)).text(10, 1, "07:00").
		num(10, 3, 11).num(10, 4, 770).num(10, 5, 70).
		num(10, 7, 0).num(10, 8, -5).
		num(10, 11, 8).num(10, 12, 480).
		num(545, 0, serial(2030, 1, 1)).num(545, 3, 999)

	water := newSheet("WATER_STEAM RATIO").
		num(9, 3, 10.5).num(9, 15, 12.5).
		num(10, 3, 11.5).num(10, 15, 0).num(10, 17, 8.2).
		num(15, 3, 99).num(15, 15, 99).num(15, 17, 99)

	report1 := newSheet("REPORT B1").
		text(3, 0, "DATE").
		num(5, dailyDate, serial(2024, 1, 4)).num(5, dailySteam, 200).num(5, dailyWater, 210).
		num(5, dailyWaterPerTonne, 1.05).num(5, dailyNG, 15000).num(5, dailyNGPerTonne, 75).
		num(5, dailyT1, 100).num(5, dailyT2, 120).num(5, dailyTotal, 220).
		num(5, dailyElecPerTonne, 1.1).num(5, dailyWasteGas, 30).
		num(6, dailyDate, serial(2024, 1, 5)).
		num(7, dailyDate, serial(2024, 1, 6)).num(7, dailyNG, -749683).
		text(8, dailyDate, "TOTAL").num(8, dailySteam, 200)

	report2 := newSheet("REPORT B2").
		num(5, dailyDate, serial(2024, 1, 4)).num(5, dailySteam, 150).num(5, dailyNG, 11000).
		num(5, dailyTotal, 180).num(5, dailyWasteGas, 12)

	report3 := newSheet("REPORT B3").
		num(8, dailyDate, serial(2024, 1, 4)).num(8, dailySteam, 90).num(8, dailyWater, 95).
		num(8, dailyNG, 7000).num(8, dailyTotal, 75)

	data1 := newSheet("DATA B1").
		num(11, 0, serial(2024, 1, 5)).num(11, 1, dayFraction(7, 30)).num(11, 2, 10).
		num(11, 7, 300).num(11, 8, 310).num(11, 9, 610).
		text(12, 1, "09:10").num(12, 2, 11).
		text(13, 2, "notes").
		num(14, 0, serial(2024, 1, 6)).text(14, 1, "24:00").num(14, 2, 9)

	data2 := newSheet("DATA B2").
		num(11, 0, serial(2024, 1, 5)).num(11, 1, dayFraction(8, 0)).num(11, 2, 12)

	data3 := newSheet("DATA B3").
		num(11, 0, serial(2024, 1, 5)).text(11, 1, "07:29").num(11, 2, 8).
		num(11, 7, 480).num(11, 8, 500)

	return &Workbook{
		Name: "boiler_data.xlsx",
		Sheets: []*Sheet{
			newSheet("Cover").sheet(),
			report1.sheet(), report2.sheet(), report3.sheet(),
			data1.sheet(), data2.sheet(), data3.sheet(),
			water.sheet(), steam.sheet(),
		},
	}
}
