package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Severity ranks a validation issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Validation thresholds for daily records.
const (
	maxPlausibleDailySteam = 100.0
	minSteamPerGas         = 0.01
)

// Issue is one finding of the validation scan. IDs are stable across runs
// over the same workbook.
type Issue struct {
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	BoilerID BoilerID `json:"boilerId,omitempty"`
	Metric   string   `json:"metric"`
	Value    float64  `json:"value"`
	Message  string   `json:"message"`
	Date     string   `json:"date,omitempty"`
	Sheet    string   `json:"sheet,omitempty"`
	Cell     string   `json:"cell,omitempty"`
}

var criticalFields = map[Field]string{
	FieldSteam:      "MT",
	FieldWater:      "MT",
	FieldNaturalGas: "SM³",
}

// Validate scans built records and their flags. Negative steam, water or gas
// is critical; implausible daily values are warnings; decode degradations are
// summarized per sheet as info. Issues are ordered by severity, then by the
// order they were found.
func Validate(rec Records) []Issue {
	issues := make([]Issue, 0)

	degraded := make(map[string]int)
	var degradedSheets []string
	for _, f := range rec.Flags {
		switch f.Kind {
		case FlagNegativeClamped:
			issues = append(issues, clampIssue(f))
		case FlagDecodeDegraded:
			if degraded[f.Sheet] == 0 {
				degradedSheets = append(degradedSheets, f.Sheet)
			}
			degraded[f.Sheet]++
		}
	}

	for _, d := range rec.Daily {
		for _, r := range d.Records {
			issues = append(issues, dailyIssues(d.BoilerID, r)...)
		}
	}

	for _, sheet := range degradedSheets {
		n := degraded[sheet]
		issues = append(issues, Issue{
			ID:       issueID("decode", sheet),
			Severity: SeverityInfo,
			Metric:   "decode",
			Value:    float64(n),
			Message:  fmt.Sprintf("%d cells could not be decoded and were read as empty", n),
			Sheet:    sheet,
		})
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Severity.rank() < issues[j].Severity.rank()
	})
	return issues
}

func clampIssue(f Flag) Issue {
	unit, critical := criticalFields[f.Field]
	sev := SeverityWarning
	if critical {
		sev = SeverityCritical
	}
	msg := fmt.Sprintf("Negative %s value: %v", f.Field, f.Value)
	if unit != "" {
		msg += " " + unit
	}
	return Issue{
		ID:       issueID(fmt.Sprintf("b%d", int(f.Boiler)), string(f.Field), "neg", f.Sheet, f.Cell),
		Severity: sev,
		BoilerID: f.Boiler,
		Metric:   string(f.Field),
		Value:    f.Value,
		Message:  msg + ", clamped to 0",
		Sheet:    f.Sheet,
		Cell:     f.Cell,
	}
}

func dailyIssues(b BoilerID, r DailyRecord) []Issue {
	var out []Issue
	prefix := fmt.Sprintf("b%d", int(b))
	if r.Steam == 0 && r.NaturalGas > 0 {
		out = append(out, Issue{
			ID:       issueID(prefix, "steam", "zero", r.Date),
			Severity: SeverityWarning,
			BoilerID: b,
			Metric:   string(FieldSteam),
			Value:    r.NaturalGas,
			Message:  fmt.Sprintf("No steam output but gas consumption detected (%v SM³)", r.NaturalGas),
			Date:     r.Date,
		})
	}
	if r.Steam > maxPlausibleDailySteam {
		out = append(out, Issue{
			ID:       issueID(prefix, "steam", "high", r.Date),
			Severity: SeverityWarning,
			BoilerID: b,
			Metric:   string(FieldSteam),
			Value:    r.Steam,
			Message:  fmt.Sprintf("Unusually high steam output: %v MT", r.Steam),
			Date:     r.Date,
		})
	}
	if r.Steam > 0 && r.NaturalGas > 0 {
		if ratio := r.Steam / r.NaturalGas; ratio < minSteamPerGas {
			out = append(out, Issue{
				ID:       issueID(prefix, "efficiency", r.Date),
				Severity: SeverityWarning,
				BoilerID: b,
				Metric:   "efficiency",
				Value:    ratio,
				Message:  fmt.Sprintf("Low efficiency: %.4f MT/SM³", ratio),
				Date:     r.Date,
			})
		}
	}
	return out
}

var idCleaner = strings.NewReplacer(" ", "-", "/", "-", "_", "-")

func issueID(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		clean = append(clean, strings.ToLower(idCleaner.Replace(p)))
	}
	return strings.Join(clean, "_")
}
