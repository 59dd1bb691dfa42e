package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/adapter/filesink"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/adapter/source"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/adapter/spreadsheet"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/config"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/observability"
	"github.com/couchcryptid/boiler-telemetry-etl/internal/pipeline"
)

// errIssuesFound makes validate exit non-zero when --fail-on matches.
var errIssuesFound = errors.New("validation issues found")

type rootOptions struct {
	configFile string
	output     string
	pretty     bool
	verbose    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "boilerctl",
		Short: "Extract boiler telemetry from a workbook",
		Long: `boilerctl reads a boiler telemetry workbook (.xlsx, .xls or a .zip of
per-sheet .csv files) and prints the current snapshot, daily and hourly
series or validation issues as JSON.`,
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "TOML file with sheet hints, capacities and scan bounds")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "Output file path (default: stdout)")
	root.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "Pretty-print JSON output")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging to stderr")

	root.AddCommand(
		newSnapshotCmd(opts),
		newDailyCmd(opts),
		newHourlyCmd(opts),
		newValidateCmd(opts),
		newSyncCmd(opts),
	)
	return root
}

func newSnapshotCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <workbook>",
		Short: "Print the current reading of every boiler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := opts.build(cmd, args[0])
			if err != nil {
				return err
			}
			if rec.Snapshot == nil {
				return fmt.Errorf("no snapshot: %s", rec.SnapshotError)
			}
			return opts.write(cmd, rec.Snapshot)
		},
	}
}

func newDailyCmd(opts *rootOptions) *cobra.Command {
	var boiler int
	cmd := &cobra.Command{
		Use:   "daily <workbook>",
		Short: "Print the daily series of one boiler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := boilerID(boiler)
			if err != nil {
				return err
			}
			rec, err := opts.build(cmd, args[0])
			if err != nil {
				return err
			}
			d, _ := rec.DailyFor(b)
			return opts.write(cmd, d)
		},
	}
	cmd.Flags().IntVarP(&boiler, "boiler", "b", 1, "Boiler number (1-3)")
	return cmd
}

func newHourlyCmd(opts *rootOptions) *cobra.Command {
	var (
		boiler int
		date   string
	)
	cmd := &cobra.Command{
		Use:   "hourly <workbook>",
		Short: "Print the hourly series of one boiler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := boilerID(boiler)
			if err != nil {
				return err
			}
			rec, err := opts.build(cmd, args[0])
			if err != nil {
				return err
			}
			h, _ := rec.HourlyFor(b)
			if date == "" {
				return opts.write(cmd, h)
			}
			day, ok := h.Records.ByDate[date]
			if !ok {
				return fmt.Errorf("no hourly records for %s on %s", b.Name(), date)
			}
			return opts.write(cmd, day)
		},
	}
	cmd.Flags().IntVarP(&boiler, "boiler", "b", 1, "Boiler number (1-3)")
	cmd.Flags().StringVar(&date, "date", "", "Only this day, as M/D/YYYY")
	return cmd
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var failOn string
	cmd := &cobra.Command{
		Use:   "validate <workbook>",
		Short: "Print validation issues and flagged cells",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var threshold domain.Severity
			if failOn != "" {
				threshold = domain.Severity(failOn)
				if severityRank(threshold) < 0 {
					return fmt.Errorf("invalid --fail-on %q: must be critical, warning or info", failOn)
				}
			}
			rec, err := opts.build(cmd, args[0])
			if err != nil {
				return err
			}
			if err := opts.write(cmd, filesink.Validation{Issues: rec.Issues, Flags: rec.Flags}); err != nil {
				return err
			}
			if threshold == "" {
				return nil
			}
			for _, is := range rec.Issues {
				if severityRank(is.Severity) <= severityRank(threshold) {
					return fmt.Errorf("%w: %s %s", errIssuesFound, is.Severity, is.ID)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Exit non-zero on an issue at or above this severity (critical, warning, info)")
	return cmd
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "sync <workbook>",
		Short: "Run one sync into an output directory, as the service would",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			build, err := opts.buildConfig()
			if err != nil {
				return err
			}
			logger := opts.logger(cmd)
			p := pipeline.New(
				source.NewFile(args[0]),
				pipeline.NewTransformer(spreadsheet.Decode, build, logger),
				filesink.NewWriter(outDir, logger),
				logger,
				observability.NewMetricsWithRegistry(prometheus.NewRegistry()),
				time.Minute,
			)
			res, err := p.SyncOnce(cmd.Context())
			if err != nil {
				return err
			}
			return opts.write(cmd, res.Summary())
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "public", "Directory the JSON files are written to")
	return cmd
}

func (o *rootOptions) buildConfig() (domain.BuildConfig, error) {
	cfg := domain.DefaultBuildConfig()
	if o.configFile == "" {
		return cfg, nil
	}
	f, err := config.LoadFile(o.configFile)
	if err != nil {
		return cfg, err
	}
	if err := f.Apply(&cfg); err != nil {
		return cfg, fmt.Errorf("config file %s: %w", o.configFile, err)
	}
	return cfg, cfg.Validate()
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (o *rootOptions) build(cmd *cobra.Command, path string) (domain.Records, error) {
	cfg, err := o.buildConfig()
	if err != nil {
		return domain.Records{}, err
	}
	ctx := cmd.Context()
	raw, err := source.NewFile(path).Fetch(ctx)
	if err != nil {
		return domain.Records{}, err
	}
	return pipeline.NewTransformer(spreadsheet.Decode, cfg, o.logger(cmd)).Transform(ctx, raw)
}

func (o *rootOptions) write(cmd *cobra.Command, v any) error {
	var (
		data []byte
		err  error
	)
	if o.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	data = append(data, '\n')

	if o.output != "" {
		if err := os.WriteFile(o.output, data, 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func boilerID(n int) (domain.BoilerID, error) {
	b := domain.BoilerID(n)
	if !b.Valid() {
		return 0, fmt.Errorf("invalid boiler %d: must be 1, 2 or 3", n)
	}
	return b, nil
}

func severityRank(s domain.Severity) int {
	switch s {
	case domain.SeverityCritical:
		return 0
	case domain.SeverityWarning:
		return 1
	case domain.SeverityInfo:
		return 2
	}
	return -1
}
