package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/couchcryptid/boiler-telemetry-etl/internal/domain"
)

// File is the optional TOML overlay for extraction settings. Unset fields
// keep their defaults.
//
//	[scan]
//	floor = 9
//	ceiling = 540   # -1 scans to the end of the sheet
//
//	[capacities]
//	boiler1 = 18.0
//
//	[sheets]
//	steam = ["ngsteam", "steam"]
//	daily1 = ["report b1"]
type File struct {
	Scan       ScanSection      `toml:"scan"`
	Capacities CapacitySection  `toml:"capacities"`
	Sheets     SheetHintSection `toml:"sheets"`
}

type ScanSection struct {
	Floor   *int `toml:"floor"`
	Ceiling *int `toml:"ceiling"`
}

type CapacitySection struct {
	Boiler1 *float64 `toml:"boiler1"`
	Boiler2 *float64 `toml:"boiler2"`
	Boiler3 *float64 `toml:"boiler3"`
}

type SheetHintSection struct {
	Steam   []string `toml:"steam"`
	Water   []string `toml:"water"`
	Daily1  []string `toml:"daily1"`
	Daily2  []string `toml:"daily2"`
	Daily3  []string `toml:"daily3"`
	Hourly1 []string `toml:"hourly1"`
	Hourly2 []string `toml:"hourly2"`
	Hourly3 []string `toml:"hourly3"`
}

// LoadFile reads and decodes a TOML overlay. The path was named by the
// operator, so a missing file is an error wrapping os.ErrNotExist.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes a TOML overlay. Unknown keys are an error.
func ParseFile(data []byte) (*File, error) {
	var f File
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &f, nil
}

// Apply overlays the file onto b.
func (f *File) Apply(b *domain.BuildConfig) error {
	if f.Scan.Floor != nil {
		if *f.Scan.Floor < 0 {
			return fmt.Errorf("scan.floor %d is negative", *f.Scan.Floor)
		}
		b.Window.Floor = *f.Scan.Floor
	}
	if f.Scan.Ceiling != nil {
		if *f.Scan.Ceiling < domain.NoCeiling {
			return fmt.Errorf("scan.ceiling %d is invalid", *f.Scan.Ceiling)
		}
		b.Window.Ceiling = *f.Scan.Ceiling
	}

	caps := []*float64{f.Capacities.Boiler1, f.Capacities.Boiler2, f.Capacities.Boiler3}
	for i, c := range caps {
		if c == nil {
			continue
		}
		if *c < 0 {
			return fmt.Errorf("capacities.boiler%d is negative", i+1)
		}
		if b.Capacities == nil {
			b.Capacities = make(map[domain.BoilerID]float64)
		}
		b.Capacities[domain.Boilers[i]] = *c
	}

	s := f.Sheets
	b.Hints = b.Hints.Merge(domain.SheetHints{
		domain.SteamKey:                  s.Steam,
		domain.WaterKey:                  s.Water,
		domain.DailyKey(domain.Boiler1):  s.Daily1,
		domain.DailyKey(domain.Boiler2):  s.Daily2,
		domain.DailyKey(domain.Boiler3):  s.Daily3,
		domain.HourlyKey(domain.Boiler1): s.Hourly1,
		domain.HourlyKey(domain.Boiler2): s.Hourly2,
		domain.HourlyKey(domain.Boiler3): s.Hourly3,
	})
	return nil
}
