package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DailyRecord is one operating day of one boiler.
type DailyRecord struct {
	Date               string  `json:"date"`
	Steam              float64 `json:"steam"`
	Water              float64 `json:"water"`
	WaterPerTonneSteam float64 `json:"waterPerTonneSteam"`
	NaturalGas         float64 `json:"naturalGas"`
	NGPerTonneSteam    float64 `json:"ngPerTonneSteam"`
	Electric           float64 `json:"electric"`
	WasteGas           float64 `json:"wasteGas"`
}

// Active reports whether the day had steam, water or gas.
func (d DailyRecord) Active() bool {
	return d.Steam > 0 || d.Water > 0 || d.NaturalGas > 0
}

// HourlyRecord is one hour of one boiler. NGCustody is set only for layouts
// with a custody meter.
type HourlyRecord struct {
	TimeOfDay         string   `json:"timeOfDay"`
	Steam             float64  `json:"steam"`
	Water             float64  `json:"water"`
	ElectricT1        float64  `json:"electricT1"`
	ElectricT2        float64  `json:"electricT2"`
	ElectricTotal     float64  `json:"electricTotal"`
	NGBurner1         float64  `json:"ngBurner1"`
	NGBurner2         float64  `json:"ngBurner2"`
	NGTotal           float64  `json:"ngTotal"`
	NGCustody         *float64 `json:"ngCustody,omitempty"`
	WGBurner1         float64  `json:"wgBurner1"`
	WGBurner2         float64  `json:"wgBurner2"`
	WGTotal           float64  `json:"wgTotal"`
	FeedPumpTemp      float64  `json:"feedPumpTemp"`
	FeedPumpPressure  float64  `json:"feedPumpPressure"`
	EconomiserTempIn  float64  `json:"economiserTempIn"`
	EconomiserTempOut float64  `json:"economiserTempOut"`
	FlueGasTempIn     float64  `json:"flueGasTempIn"`
	FlueGasTempOut    float64  `json:"flueGasTempOut"`
	BlowdownTime      float64  `json:"blowdownTime"`
}

// HourlySeries maps a date string to its hourly records. Dates keep the
// order in which they first appeared in the sheet, including in JSON.
type HourlySeries struct {
	Dates  []string
	ByDate map[string][]HourlyRecord
}

// Append adds rec under date.
func (s *HourlySeries) Append(date string, rec HourlyRecord) {
	if s.ByDate == nil {
		s.ByDate = make(map[string][]HourlyRecord)
	}
	if _, ok := s.ByDate[date]; !ok {
		s.Dates = append(s.Dates, date)
	}
	s.ByDate[date] = append(s.ByDate[date], rec)
}

// Len is the number of records across all dates.
func (s HourlySeries) Len() int {
	n := 0
	for _, d := range s.Dates {
		n += len(s.ByDate[d])
	}
	return n
}

func (s HourlySeries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range s.Dates {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		recs := s.ByDate[d]
		if recs == nil {
			recs = []HourlyRecord{}
		}
		val, err := json.Marshal(recs)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *HourlySeries) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("hourly series: expected object, got %v", tok)
	}
	*s = HourlySeries{ByDate: make(map[string][]HourlyRecord)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		date, ok := tok.(string)
		if !ok {
			return fmt.Errorf("hourly series: expected date key, got %v", tok)
		}
		var recs []HourlyRecord
		if err := dec.Decode(&recs); err != nil {
			return fmt.Errorf("hourly series %q: %w", date, err)
		}
		if _, dup := s.ByDate[date]; !dup {
			s.Dates = append(s.Dates, date)
		}
		s.ByDate[date] = recs
	}
	_, err = dec.Token()
	return err
}

// BoilerSnapshot is the current reading of one boiler.
type BoilerSnapshot struct {
	BoilerID       BoilerID `json:"boilerId"`
	Name           string   `json:"name"`
	Steam          float64  `json:"steam"`
	NaturalGas     float64  `json:"naturalGas"`
	NGToSteamRatio float64  `json:"ngToSteamRatio"`
	Water          float64  `json:"water"`
	MaxCapacity    float64  `json:"maxCapacity"`
	Status         Status   `json:"status"`
	Timestamp      string   `json:"timestamp"`
}

// Snapshot is the current reading of all boilers, taken from one row of the
// steam and water sheets.
type Snapshot struct {
	SteamSheet string           `json:"steamSheet"`
	WaterSheet string           `json:"waterSheet"`
	SourceRow  int              `json:"sourceRow"`
	SourceDate string           `json:"sourceDate"`
	SourceTime string           `json:"sourceTime"`
	Timestamp  string           `json:"timestamp"`
	Boilers    []BoilerSnapshot `json:"boilers"`
	TotalSteam float64          `json:"totalSteam"`
	TotalWater float64          `json:"totalWater"`
}

// Boiler returns the snapshot of b, or false.
func (s *Snapshot) Boiler(b BoilerID) (BoilerSnapshot, bool) {
	if s == nil {
		return BoilerSnapshot{}, false
	}
	for _, bs := range s.Boilers {
		if bs.BoilerID == b {
			return bs, true
		}
	}
	return BoilerSnapshot{}, false
}

// BoilerDaily is the daily series of one boiler. Latest is the most recent
// active row of the daily sheet.
type BoilerDaily struct {
	BoilerID BoilerID      `json:"boilerId"`
	Sheet    string        `json:"sheet"`
	Records  []DailyRecord `json:"records"`
	Latest   *DailyRecord  `json:"latest,omitempty"`
}

// BoilerHourly is the hourly series of one boiler.
type BoilerHourly struct {
	BoilerID BoilerID     `json:"boilerId"`
	Sheet    string       `json:"sheet"`
	Records  HourlySeries `json:"records"`
}

// Records is everything one build produces. A missing snapshot is reported
// in SnapshotError while history is still present.
type Records struct {
	Snapshot      *Snapshot      `json:"snapshot,omitempty"`
	SnapshotError string         `json:"snapshotError,omitempty"`
	Daily         []BoilerDaily  `json:"daily"`
	Hourly        []BoilerHourly `json:"hourly"`
	Issues        []Issue        `json:"issues"`
	Flags         []Flag         `json:"flags"`
}

// DailyFor returns the daily series of b.
func (r Records) DailyFor(b BoilerID) (BoilerDaily, bool) {
	for _, d := range r.Daily {
		if d.BoilerID == b {
			return d, true
		}
	}
	return BoilerDaily{}, false
}

// HourlyFor returns the hourly series of b.
func (r Records) HourlyFor(b BoilerID) (BoilerHourly, bool) {
	for _, h := range r.Hourly {
		if h.BoilerID == b {
			return h, true
		}
	}
	return BoilerHourly{}, false
}

// FlagCount returns how many flags of kind the build raised.
func (r Records) FlagCount(kind FlagKind) int {
	n := 0
	for _, f := range r.Flags {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// SyncResult describes one sync run. Only this metadata depends on the
// clock; Records is a pure function of the workbook bytes.
type SyncResult struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	SourceName string    `json:"sourceName"`
	SourceHash string    `json:"sourceHash"`
	CacheHit   bool      `json:"cacheHit"`
	Records    Records   `json:"records"`
}

// Duration is how long the run took.
func (r SyncResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SyncSummary is the one-line history entry of a sync run.
type SyncSummary struct {
	RunID         string    `json:"runId"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
	SourceName    string    `json:"sourceName"`
	SourceHash    string    `json:"sourceHash"`
	CacheHit      bool      `json:"cacheHit"`
	SnapshotRow   int       `json:"snapshotRow"`
	SnapshotError string    `json:"snapshotError,omitempty"`
	DailyRecords  int       `json:"dailyRecords"`
	HourlyRecords int       `json:"hourlyRecords"`
	Issues        int       `json:"issues"`
	Clamped       int       `json:"clamped"`
	Degraded      int       `json:"degraded"`
}

// Summary condenses r for history. SnapshotRow is -1 without a snapshot.
func (r SyncResult) Summary() SyncSummary {
	s := SyncSummary{
		RunID:         r.RunID,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		SourceName:    r.SourceName,
		SourceHash:    r.SourceHash,
		CacheHit:      r.CacheHit,
		SnapshotRow:   -1,
		SnapshotError: r.Records.SnapshotError,
		Issues:        len(r.Records.Issues),
		Clamped:       r.Records.FlagCount(FlagNegativeClamped),
		Degraded:      r.Records.FlagCount(FlagDecodeDegraded),
	}
	if r.Records.Snapshot != nil {
		s.SnapshotRow = r.Records.Snapshot.SourceRow
	}
	for _, d := range r.Records.Daily {
		s.DailyRecords += len(d.Records)
	}
	for _, h := range r.Records.Hourly {
		s.HourlyRecords += h.Records.Len()
	}
	return s
}
