package domain

import (
	"fmt"
	"math"
)

// FlagKind classifies a recoverable data problem.
type FlagKind string

const (
	FlagNegativeClamped FlagKind = "negative_clamped"
	FlagDecodeDegraded  FlagKind = "decode_degraded"
)

// Flag records one recoverable problem at a cell. Value is the original
// number for a clamp; Raw is the cell text for a degraded decode.
type Flag struct {
	Kind   FlagKind `json:"kind"`
	Sheet  string   `json:"sheet"`
	Row    int      `json:"row"`
	Column int      `json:"column"`
	Cell   string   `json:"cell"`
	Boiler BoilerID `json:"boilerId,omitempty"`
	Field  Field    `json:"field"`
	Raw    string   `json:"raw,omitempty"`
	Value  float64  `json:"value,omitempty"`
}

type flagKey struct {
	kind   FlagKind
	sheet  string
	row    int
	column int
}

// Audit collects flags in the order they are raised, once per cell and
// kind. A nil *Audit discards everything. Not safe for concurrent use.
type Audit struct {
	flags []Flag
	seen  map[flagKey]struct{}
}

// Record adds f unless the same cell already has a flag of the same kind.
func (a *Audit) Record(f Flag) {
	if a == nil {
		return
	}
	k := flagKey{kind: f.Kind, sheet: f.Sheet, row: f.Row, column: f.Column}
	if _, dup := a.seen[k]; dup {
		return
	}
	if a.seen == nil {
		a.seen = make(map[flagKey]struct{})
	}
	a.seen[k] = struct{}{}
	a.flags = append(a.flags, f)
}

// Flags returns a copy of the recorded flags.
func (a *Audit) Flags() []Flag {
	if a == nil {
		return nil
	}
	out := make([]Flag, len(a.flags))
	copy(out, a.flags)
	return out
}

// Count returns how many flags of kind were recorded.
func (a *Audit) Count(kind FlagKind) int {
	if a == nil {
		return 0
	}
	n := 0
	for _, f := range a.flags {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Clamp floors v at zero.
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// Ratio is num/den, or 0 when den is not positive. Never NaN or Inf.
func Ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	r := num / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Normalize clamps every quantity of r to zero or more and records each
// clamp on audit with the original value. r is not modified.
func Normalize(r RawReading, audit *Audit) RawReading {
	out := r
	out.Values = make(map[Field]float64, len(r.Values))
	for _, c := range r.Layout.columns {
		v, ok := r.Values[c.Field]
		if !ok {
			continue
		}
		if v < 0 {
			audit.Record(Flag{
				Kind:   FlagNegativeClamped,
				Sheet:  r.Sheet,
				Row:    r.Row,
				Column: c.Index,
				Cell:   CellRef(r.Row, c.Index),
				Boiler: r.Boiler,
				Field:  c.Field,
				Value:  v,
			})
		}
		out.Values[c.Field] = Clamp(v)
	}
	// Values set without a layout column still get clamped.
	for f, v := range r.Values {
		if _, done := out.Values[f]; !done {
			out.Values[f] = Clamp(v)
		}
	}
	return out
}

// Status is the operating state shown for a boiler.
type Status string

const (
	StatusNormal  Status = "normal"
	StatusWarning Status = "warning"
	StatusOffline Status = "offline"
)

// Utilization thresholds, as a percentage of maximum capacity.
const (
	lowUtilization  = 20.0
	highUtilization = 100.0
)

// StatusFor derives the state from steam output and maximum capacity.
func StatusFor(steam, capacity float64) Status {
	if steam <= 0 {
		return StatusOffline
	}
	if capacity <= 0 {
		return StatusNormal
	}
	u := steam / capacity * 100
	if u < lowUtilization || u > highUtilization {
		return StatusWarning
	}
	return StatusNormal
}

// MergeJointReading combines a normalized steam-sheet reading and water-sheet
// reading of one boiler. Both must come from the same row.
func MergeJointReading(steam, water RawReading, capacity float64) (BoilerSnapshot, error) {
	if steam.Layout.Role != RoleSteam || water.Layout.Role != RoleWater {
		return BoilerSnapshot{}, fmt.Errorf("%w: got %s and %s readings",
			ErrCrossSheetMisalignment, steam.Layout.Role, water.Layout.Role)
	}
	if steam.Row != water.Row || steam.Boiler != water.Boiler {
		return BoilerSnapshot{}, fmt.Errorf("%w: steam row %d boiler %d, water row %d boiler %d",
			ErrCrossSheetMisalignment, steam.Row, int(steam.Boiler), water.Row, int(water.Boiler))
	}
	s := Clamp(steam.Value(FieldSteam))
	ng := Clamp(steam.Value(FieldNaturalGas))
	capacity = Clamp(capacity)
	return BoilerSnapshot{
		BoilerID:       steam.Boiler,
		Name:           steam.Boiler.Name(),
		Steam:          s,
		NaturalGas:     ng,
		NGToSteamRatio: Ratio(ng, s),
		Water:          Clamp(water.Value(FieldWater)),
		MaxCapacity:    capacity,
		Status:         StatusFor(s, capacity),
		Timestamp:      steam.Timestamp(),
	}, nil
}
