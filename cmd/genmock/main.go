// Command genmock writes a synthetic boiler telemetry workbook with the
// cover sheet, both ratio sheets and the daily and hourly sheets of every
// boiler. The output decodes and builds exactly like the plant workbook, so
// it doubles as a fixture for local runs and for the file source.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/boiler_data.xlsx \
//	  -start 2024-01-03 -days 3 -logged-hours 8
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/sample"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("genmock", flag.ContinueOnError)
	def := sample.DefaultOptions()

	out := fs.String("out", "data/boiler_data.xlsx", "output path for the generated workbook")
	start := fs.String("start", def.Start.Format(time.DateOnly), "first day, as YYYY-MM-DD")
	days := fs.Int("days", def.Days, "number of days covered, the last one partially")
	logged := fs.Int("logged-hours", def.LoggedHours, "hours of readings on the last day (1-24)")
	offline := fs.Int("offline-boiler", 0, "boiler (1-3) reporting zero steam on the last day")
	clean := fs.Bool("clean", false, "omit the negative meter reading and TOTAL rows")
	if err := fs.Parse(args); err != nil {
		return err
	}

	startDay, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}

	opts := sample.Options{
		Start:         startDay,
		Days:          *days,
		LoggedHours:   *logged,
		OfflineBoiler: domain.BoilerID(*offline),
		Anomalies:     !*clean,
	}
	data, err := sample.Bytes(opts)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}

	log.Printf("wrote %s: %d days from %s, snapshot at row %d (%d bytes)",
		*out, opts.Days, startDay.Format(time.DateOnly), opts.LatestRow(), len(data))
	return nil
}
