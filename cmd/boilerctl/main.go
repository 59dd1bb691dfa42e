// Command boilerctl extracts boiler telemetry from a local workbook without
// running the service.
//
// Usage:
//
//	boilerctl snapshot data/boiler_data.xlsx
//	boilerctl daily data/boiler_data.xlsx --boiler 2
//	boilerctl hourly data/boiler_data.xlsx --boiler 1 --date 1/5/2024
//	boilerctl validate data/boiler_data.xlsx --fail-on critical
//	boilerctl sync data/boiler_data.xlsx --out public
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
