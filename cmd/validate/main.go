// Command validate checks that a sink output directory is consistent with
// the workbook it was built from. It rebuilds the records from the workbook
// and compares them with the published JSON files, then checks the sync
// history and the snapshot's internal arithmetic.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -workbook data/boiler_data.xlsx \
//	  -out-dir public
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/adapter/filesink"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/adapter/spreadsheet"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/config"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	workbook := flag.String("workbook", "", "path to the workbook the output was built from")
	outDir := flag.String("out-dir", "public", "file sink output directory")
	configFile := flag.String("config", "", "TOML file with the extraction settings the service used")
	flag.Parse()

	if *workbook == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*workbook, *outDir, *configFile, os.Stdout); code != 0 {
		os.Exit(code)
	}
}

// published is what the file sink wrote.
type published struct {
	snapshot   *domain.Snapshot
	daily      map[domain.BoilerID]domain.BoilerDaily
	hourly     map[domain.BoilerID]domain.BoilerHourly
	validation *filesink.Validation
	history    []domain.SyncSummary
}

func run(workbookPath, outDir, configFile string, w io.Writer) int {
	fmt.Fprintln(w, "=== Boiler Telemetry Output Validation ===")
	fmt.Fprintln(w)

	cfg, err := buildConfig(configFile)
	if err != nil {
		fmt.Fprintf(w, "FATAL: %v\n", err)
		return 1
	}

	data, err := os.ReadFile(workbookPath)
	if err != nil {
		fmt.Fprintf(w, "FATAL: read workbook: %v\n", err)
		return 1
	}
	wb, err := spreadsheet.Decode(domain.RawWorkbook{Name: filepath.Base(workbookPath), Bytes: data})
	if err != nil {
		fmt.Fprintf(w, "FATAL: decode workbook: %v\n", err)
		return 1
	}
	want, err := domain.BuildRecords(wb, cfg)
	if err != nil {
		fmt.Fprintf(w, "FATAL: build records: %v\n", err)
		return 1
	}

	files := &phase{name: "Phase 1: Output files"}
	got := loadPublished(files, outDir)

	phases := []*phase{
		files,
		validateSnapshot(want, got),
		validateSeries(want, got),
		validateIssues(want, got),
		validateHistory(domain.ContentHash(data), got),
	}

	fmt.Fprintln(w)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d daily, %d hourly, %d issues, %d history entries\n",
		countDaily(want), countHourly(want), len(want.Issues), len(got.history))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

func buildConfig(path string) (domain.BuildConfig, error) {
	cfg := domain.DefaultBuildConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := config.LoadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := f.Apply(&cfg); err != nil {
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// ── Loading ──

func loadPublished(p *phase, dir string) published {
	got := published{
		daily:  make(map[domain.BoilerID]domain.BoilerDaily),
		hourly: make(map[domain.BoilerID]domain.BoilerHourly),
	}

	var snap domain.Snapshot
	if loadFile(p, dir, filesink.SnapshotFile, &snap) {
		got.snapshot = &snap
	}
	for _, b := range domain.Boilers {
		var d domain.BoilerDaily
		if loadFile(p, dir, filesink.DailyFile(b), &d) {
			got.daily[b] = d
		}
		var h domain.BoilerHourly
		if loadFile(p, dir, filesink.HourlyFile(b), &h) {
			got.hourly[b] = h
		}
	}
	var v filesink.Validation
	if loadFile(p, dir, filesink.ValidationFile, &v) {
		got.validation = &v
	}

	history, err := loadHistory(filepath.Join(dir, filesink.HistoryFile))
	if err != nil {
		p.errorf("%s: %v", filesink.HistoryFile, err)
	}
	got.history = history
	return got
}

func loadFile(p *phase, dir, name string, v any) bool {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		p.errorf("%s: %v", name, err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		p.errorf("%s: invalid JSON: %v", name, err)
		return false
	}
	return true
}

func loadHistory(path string) ([]domain.SyncSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []domain.SyncSummary
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		var s domain.SyncSummary
		if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
			return out, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

func countDaily(r domain.Records) int {
	n := 0
	for _, d := range r.Daily {
		n += len(d.Records)
	}
	return n
}

func countHourly(r domain.Records) int {
	n := 0
	for _, h := range r.Hourly {
		n += h.Records.Len()
	}
	return n
}

// ── Phase 2: Snapshot ──

func validateSnapshot(want domain.Records, got published) *phase {
	p := &phase{name: "Phase 2: Snapshot parity"}

	// The sink keeps the previous snapshot when the workbook has none.
	if want.Snapshot == nil {
		return p
	}
	if got.snapshot == nil {
		p.errorf("workbook has a snapshot at row %d but none was published", want.Snapshot.SourceRow)
		return p
	}
	if diff := cmp.Diff(want.Snapshot, got.snapshot); diff != "" {
		p.errorf("snapshot mismatch (-workbook +output):\n%s", diff)
	}
	checkSnapshotArithmetic(p, got.snapshot)
	return p
}

func checkSnapshotArithmetic(p *phase, s *domain.Snapshot) {
	ts, err := time.Parse("1/2/2006 15:04", s.SourceDate+" "+s.SourceTime)
	if err != nil {
		p.errorf("snapshot date %q time %q: %v", s.SourceDate, s.SourceTime, err)
	} else if ts.Format(time.RFC3339) != s.Timestamp {
		p.errorf("snapshot timestamp %s does not match %s %s", s.Timestamp, s.SourceDate, s.SourceTime)
	}

	var steam, water float64
	for _, b := range s.Boilers {
		steam += b.Steam
		water += b.Water
		if b.Timestamp != s.Timestamp {
			p.errorf("boiler %d timestamp %s differs from snapshot %s", b.BoilerID, b.Timestamp, s.Timestamp)
		}
		if b.Steam == 0 && b.Status != domain.StatusOffline {
			p.errorf("boiler %d has no steam but status %s", b.BoilerID, b.Status)
		}
	}
	if !floatEq(steam, s.TotalSteam) {
		p.errorf("total steam %.3f != sum of boilers %.3f", s.TotalSteam, steam)
	}
	if !floatEq(water, s.TotalWater) {
		p.errorf("total water %.3f != sum of boilers %.3f", s.TotalWater, water)
	}
}

// ── Phase 3: Series ──

func validateSeries(want domain.Records, got published) *phase {
	p := &phase{name: "Phase 3: Daily and hourly parity"}

	for _, d := range want.Daily {
		pub, ok := got.daily[d.BoilerID]
		if !ok {
			continue // reported in phase 1
		}
		if diff := cmp.Diff(d, pub); diff != "" {
			p.errorf("boiler %d daily mismatch (-workbook +output):\n%s", d.BoilerID, diff)
		}
		for _, r := range pub.Records {
			if r.Steam < 0 || r.Water < 0 || r.NaturalGas < 0 {
				p.errorf("boiler %d daily %s has a negative reading", d.BoilerID, r.Date)
			}
		}
	}
	for _, h := range want.Hourly {
		pub, ok := got.hourly[h.BoilerID]
		if !ok {
			continue
		}
		if !cmp.Equal(h.Records.Dates, pub.Records.Dates) {
			p.errorf("boiler %d hourly dates %v, output has %v", h.BoilerID, h.Records.Dates, pub.Records.Dates)
			continue
		}
		for _, date := range h.Records.Dates {
			if diff := cmp.Diff(h.Records.ByDate[date], pub.Records.ByDate[date]); diff != "" {
				p.errorf("boiler %d hourly %s mismatch (-workbook +output):\n%s", h.BoilerID, date, diff)
			}
		}
	}
	return p
}

// ── Phase 4: Issues ──

func validateIssues(want domain.Records, got published) *phase {
	p := &phase{name: "Phase 4: Validation parity"}
	if got.validation == nil {
		return p
	}
	if diff := cmp.Diff(want.Issues, got.validation.Issues); diff != "" {
		p.errorf("issues mismatch (-workbook +output):\n%s", diff)
	}
	if len(want.Flags) != len(got.validation.Flags) {
		p.errorf("%d flags in workbook build, %d in output", len(want.Flags), len(got.validation.Flags))
	}
	return p
}

// ── Phase 5: History ──

func validateHistory(hash string, got published) *phase {
	p := &phase{name: "Phase 5: Sync history"}
	if len(got.history) == 0 {
		p.errorf("no sync history entries")
		return p
	}

	last := got.history[len(got.history)-1]
	if last.SourceHash != hash {
		p.errorf("last sync read %s, workbook hash is %s", last.SourceHash, hash)
	}
	for i, s := range got.history {
		if s.RunID == "" {
			p.errorf("entry %d has no run id", i+1)
		}
		if s.FinishedAt.Before(s.StartedAt) {
			p.errorf("entry %d (%s) finished before it started", i+1, s.RunID)
		}
		if i > 0 && s.StartedAt.Before(got.history[i-1].StartedAt) {
			p.errorf("entry %d (%s) is out of order", i+1, s.RunID)
		}
	}
	return p
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}
