package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Role is the purpose a sheet serves in the workbook.
type Role string

const (
	RoleSteam  Role = "steam"
	RoleWater  Role = "water"
	RoleDaily  Role = "daily"
	RoleHourly Role = "hourly"
)

// Roles lists every role in resolution order.
var Roles = []Role{RoleSteam, RoleWater, RoleDaily, RoleHourly}

// Shared reports whether one sheet serves all three boilers.
func (r Role) Shared() bool {
	return r == RoleSteam || r == RoleWater
}

// SheetKey names one required sheet. Boiler is zero for shared roles.
type SheetKey struct {
	Role   Role
	Boiler BoilerID
}

// SteamKey and WaterKey are the keys of the two shared ratio sheets.
var (
	SteamKey = SheetKey{Role: RoleSteam}
	WaterKey = SheetKey{Role: RoleWater}
)

// DailyKey is the key of a boiler's daily report sheet.
func DailyKey(b BoilerID) SheetKey { return SheetKey{Role: RoleDaily, Boiler: b} }

// HourlyKey is the key of a boiler's hourly data sheet.
func HourlyKey(b BoilerID) SheetKey { return SheetKey{Role: RoleHourly, Boiler: b} }

func (k SheetKey) String() string {
	switch k.Role {
	case RoleSteam:
		return "steam sheet"
	case RoleWater:
		return "water sheet"
	case RoleDaily:
		return fmt.Sprintf("daily report for boiler %d", int(k.Boiler))
	case RoleHourly:
		return fmt.Sprintf("hourly data for boiler %d", int(k.Boiler))
	default:
		return fmt.Sprintf("%s/%d", string(k.Role), int(k.Boiler))
	}
}

// RequiredSheets lists every sheet a full build needs, in the order they are
// reported when missing.
func RequiredSheets() []SheetKey {
	keys := []SheetKey{SteamKey, WaterKey}
	for _, b := range Boilers {
		keys = append(keys, DailyKey(b))
	}
	for _, b := range Boilers {
		keys = append(keys, HourlyKey(b))
	}
	return keys
}

// SheetHints maps each required sheet to its ordered name hints.
type SheetHints map[SheetKey][]string

// DefaultSheetHints returns the hints that match the plant workbook. The
// water hints avoid "ratio" so they cannot match the NGSTEAM RATIO tab.
func DefaultSheetHints() SheetHints {
	h := SheetHints{
		SteamKey: {"ngsteam", "steam"},
		WaterKey: {"water_steam", "water"},
	}
	for _, b := range Boilers {
		h[DailyKey(b)] = []string{fmt.Sprintf("report b%d", b)}
		h[HourlyKey(b)] = []string{fmt.Sprintf("data b%d", b)}
	}
	return h
}

// Merge returns a copy of h with every key in override replaced. Keys with
// no hints in override are left alone.
func (h SheetHints) Merge(override SheetHints) SheetHints {
	out := make(SheetHints, len(h)+len(override))
	for k, v := range h {
		out[k] = v
	}
	for k, v := range override {
		if len(v) > 0 {
			out[k] = v
		}
	}
	return out
}

// FindSheet returns the first sheet whose case-folded name contains a hint.
// Hints are tried in order and, for each hint, sheets in workbook order, so
// an earlier hint always beats a later one. Nil if nothing matches.
func FindSheet(wb *Workbook, hints []string) *Sheet {
	if wb == nil {
		return nil
	}
	fold := cases.Fold()
	names := make([]string, len(wb.Sheets))
	for i, s := range wb.Sheets {
		names[i] = fold.String(s.Name)
	}
	for _, hint := range hints {
		h := fold.String(strings.TrimSpace(hint))
		if h == "" {
			continue
		}
		for i, name := range names {
			if strings.Contains(name, h) {
				return wb.Sheets[i]
			}
		}
	}
	return nil
}

// ResolveSheets locates every key. All unresolved keys are reported together
// in one *MissingSheetError.
func ResolveSheets(wb *Workbook, keys []SheetKey, hints SheetHints) (map[SheetKey]*Sheet, error) {
	found := make(map[SheetKey]*Sheet, len(keys))
	var missing []MissingRole
	for _, k := range keys {
		if s := FindSheet(wb, hints[k]); s != nil {
			found[k] = s
			continue
		}
		missing = append(missing, MissingRole{Key: k, Hints: hints[k]})
	}
	if len(missing) > 0 {
		var available []string
		if wb != nil {
			available = wb.SheetNames()
		}
		return nil, &MissingSheetError{Missing: missing, Available: available}
	}
	return found, nil
}
