package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// serialUnixEpoch is the spreadsheet serial of 1970-01-01 (days since
// 1899-12-30).
const serialUnixEpoch = 25569

var (
	// timeOfDayRe matches "H:MM", "HH:MM" and "HH:MM:SS". Hour 24 is allowed
	// because some hourly blocks close with "24:00".
	timeOfDayRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)

	// dateLayouts are tried in order for text date cells.
	dateLayouts = []string{
		"1/2/2006",
		"2006-01-02",
		"2006/1/2",
		"1/2/06",
		"2-Jan-2006",
		"2-Jan-06",
		"2 Jan 2006",
		"Jan 2, 2006",
		"January 2, 2006",
		time.RFC3339,
	}

	numberCleaner = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "\u202f", "")
)

// CalendarDate is a date without time or zone.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

// IsZero reports whether d is the zero date.
func (d CalendarDate) IsZero() bool {
	return d == CalendarDate{}
}

// String renders M/D/YYYY without leading zeros, matching the workbook.
func (d CalendarDate) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d/%d/%d", int(d.Month), d.Day, d.Year)
}

// Serial is the spreadsheet day serial of d.
func (d CalendarDate) Serial() float64 {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	return float64(t.Unix()/86400 + serialUnixEpoch)
}

// At returns the UTC instant of tod on this date. A 24:00 time rolls into
// the next day here; hourly grouping does not use this.
func (d CalendarDate) At(tod TimeOfDay) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).
		Add(time.Duration(tod.Seconds) * time.Second)
}

// TimeOfDay is a wall-clock reading in whole seconds since midnight. It may
// equal 86400 for a "24:00" cell.
type TimeOfDay struct {
	Seconds int
}

// Hour is the unrounded hour, 0..24.
func (t TimeOfDay) Hour() int { return t.Seconds / 3600 }

// Minute is the minute within the hour.
func (t TimeOfDay) Minute() int { return t.Seconds % 3600 / 60 }

// String renders HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// RoundedHour rounds to the nearest hour (30 minutes rounds up) and folds
// the result into 0..23.
func (t TimeOfDay) RoundedHour() int {
	return (t.Seconds + 1800) / 3600 % 24
}

// HourLabel renders the rounded hour as "HH:00".
func (t TimeOfDay) HourLabel() string {
	return fmt.Sprintf("%02d:00", t.RoundedHour())
}

// DecodeNumber reads a cell as a float. Empty and non-numeric cells are 0.
// Negative values pass through; clamping is the normalizer's job.
func DecodeNumber(c Cell) float64 {
	v, _ := decodeNumber(c)
	return v
}

// decodeNumber also reports whether a non-empty cell degraded to zero.
func decodeNumber(c Cell) (float64, bool) {
	switch c.Kind {
	case CellNumber:
		if math.IsNaN(c.Number) || math.IsInf(c.Number, 0) {
			return 0, true
		}
		return c.Number, false
	case CellText:
		s := strings.TrimSpace(c.Text)
		if s == "" || s == "-" {
			return 0, false
		}
		v, err := strconv.ParseFloat(numberCleaner.Replace(s), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, true
		}
		return v, false
	default:
		return 0, false
	}
}

// DecodeDate reads a date serial or a literal date string. A zero, negative
// or unparseable value yields false.
func DecodeDate(c Cell) (CalendarDate, bool) {
	d, ok, _ := decodeDate(c)
	return d, ok
}

// decodeDate also reports whether a present value failed to parse. The zero
// serial and "0" are sentinels for "no date" and do not count as degraded.
func decodeDate(c Cell) (CalendarDate, bool, bool) {
	switch c.Kind {
	case CellNumber:
		n := math.Floor(c.Number)
		if n <= 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return CalendarDate{}, false, n < 0
		}
		t, err := excelize.ExcelDateToTime(n, false)
		if err != nil {
			return CalendarDate{}, false, true
		}
		return DateOf(t), true, false
	case CellText:
		s := strings.TrimSpace(c.Text)
		if s == "" || s == "0" {
			return CalendarDate{}, false, false
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return decodeDate(NumberCell(v))
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return DateOf(t), true, false
			}
		}
		return CalendarDate{}, false, true
	default:
		return CalendarDate{}, false, false
	}
}

// DecodeTimeOfDay reads a day fraction or an "HH:MM" string. For a numeric
// cell only the fractional day is used, so a full date-time serial works too.
func DecodeTimeOfDay(c Cell) (TimeOfDay, bool) {
	t, ok, _ := decodeTimeOfDay(c)
	return t, ok
}

func decodeTimeOfDay(c Cell) (TimeOfDay, bool, bool) {
	switch c.Kind {
	case CellNumber:
		v := c.Number
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return TimeOfDay{}, false, true
		}
		if v > 1 {
			v -= math.Floor(v)
		}
		return TimeOfDay{Seconds: int(math.Round(v * 86400))}, true, false
	case CellText:
		s := strings.TrimSpace(c.Text)
		if s == "" {
			return TimeOfDay{}, false, false
		}
		m := timeOfDayRe.FindStringSubmatch(s)
		if m == nil {
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				return decodeTimeOfDay(NumberCell(v))
			}
			return TimeOfDay{}, false, true
		}
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		second := 0
		if m[3] != "" {
			second, _ = strconv.Atoi(m[3])
		}
		if hour > 24 || minute > 59 || second > 59 || (hour == 24 && minute+second > 0) {
			return TimeOfDay{}, false, true
		}
		return TimeOfDay{Seconds: hour*3600 + minute*60 + second}, true, false
	default:
		return TimeOfDay{}, false, false
	}
}
