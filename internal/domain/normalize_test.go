package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampAndRatio(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-749683))
	assert.Equal(t, 0.0, Clamp(0))
	assert.Equal(t, 3.5, Clamp(3.5))

	assert.Equal(t, 70.0, Ratio(770, 11))
	assert.Equal(t, 0.0, Ratio(770, 0))
	assert.Equal(t, 0.0, Ratio(770, -1))
	assert.Equal(t, 0.0, Ratio(math.Inf(1), 1))
}

func TestNormalize(t *testing.T) {
	l, _ := LookupLayout(RoleDaily, Boiler1)
	in := RawReading{
		Sheet:  "REPORT B1",
		Row:    7,
		Boiler: Boiler1,
		Layout: l,
		Values: map[Field]float64{
			FieldSteam:      12,
			FieldNaturalGas: -749683,
			FieldWasteGas:   -1,
		},
	}

	audit := &Audit{}
	out := Normalize(in, audit)

	assert.Equal(t, 12.0, out.Value(FieldSteam))
	assert.Equal(t, 0.0, out.Value(FieldNaturalGas))
	assert.Equal(t, 0.0, out.Value(FieldWasteGas))
	assert.Equal(t, -749683.0, in.Value(FieldNaturalGas), "input is not modified")

	flags := audit.Flags()
	require.Len(t, flags, 2)
	assert.Equal(t, Flag{
		Kind:   FlagNegativeClamped,
		Sheet:  "REPORT B1",
		Row:    7,
		Column: 4,
		Cell:   "E8",
		Boiler: Boiler1,
		Field:  FieldNaturalGas,
		Value:  -749683,
	}, flags[0])
	assert.Equal(t, FieldWasteGas, flags[1].Field)
}

func TestAudit(t *testing.T) {
	t.Run("nil audit discards", func(t *testing.T) {
		var a *Audit
		a.Record(Flag{Kind: FlagDecodeDegraded})
		assert.Nil(t, a.Flags())
		assert.Zero(t, a.Count(FlagDecodeDegraded))
	})

	t.Run("one flag per cell and kind", func(t *testing.T) {
		a := &Audit{}
		f := Flag{Kind: FlagDecodeDegraded, Sheet: "NGSTEAM RATIO", Row: 10, Column: 0, Boiler: Boiler1}
		a.Record(f)
		f.Boiler = Boiler2
		a.Record(f)
		a.Record(Flag{Kind: FlagNegativeClamped, Sheet: "NGSTEAM RATIO", Row: 10, Column: 0})
		a.Record(Flag{Kind: FlagDecodeDegraded, Sheet: "NGSTEAM RATIO", Row: 11, Column: 0})

		assert.Equal(t, 2, a.Count(FlagDecodeDegraded))
		assert.Equal(t, 1, a.Count(FlagNegativeClamped))
		assert.Equal(t, Boiler1, a.Flags()[0].Boiler)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		steam    float64
		capacity float64
		want     Status
	}{
		{"offline", 0, 18, StatusOffline},
		{"normal", 11, 18, StatusNormal},
		{"low utilization", 3, 18, StatusWarning},
		{"exactly 20 percent", 3.6, 18, StatusNormal},
		{"over capacity", 18.5, 18, StatusWarning},
		{"at capacity", 16, 16, StatusNormal},
		{"no capacity configured", 5, 0, StatusNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.steam, tt.capacity))
		})
	}
}

func jointReadings(t *testing.T, steamRow, waterRow int, b BoilerID) (RawReading, RawReading) {
	t.Helper()
	sl, err := LookupLayout(RoleSteam, b)
	require.NoError(t, err)
	wl, err := LookupLayout(RoleWater, b)
	require.NoError(t, err)

	steamCol, _ := sl.Column(FieldSteam)
	ngCol, _ := sl.Column(FieldNaturalGas)
	waterCol, _ := wl.Column(FieldWater)

	steam := newSheet("NGSTEAM RATIO").
		num(steamRow, 0, serial(2024, 1, 5)).num(steamRow, 1, dayFraction(7, 0)).
		num(steamRow, steamCol, 11).num(steamRow, ngCol, 770).
		sheet()
	water := newSheet("WATER_STEAM RATIO").num(waterRow, waterCol, 11.5).sheet()
	return ReadRow(steam, steamRow, sl, nil), ReadRow(water, waterRow, wl, nil)
}

func TestMergeJointReading(t *testing.T) {
	t.Run("same row", func(t *testing.T) {
		s, w := jointReadings(t, 10, 10, Boiler1)
		got, err := MergeJointReading(s, w, 18)
		require.NoError(t, err)
		assert.Equal(t, BoilerSnapshot{
			BoilerID:       Boiler1,
			Name:           "Boiler No. 1",
			Steam:          11,
			NaturalGas:     770,
			NGToSteamRatio: 70,
			Water:          11.5,
			MaxCapacity:    18,
			Status:         StatusNormal,
			Timestamp:      "2024-01-05T07:00:00Z",
		}, got)
	})

	t.Run("different rows are rejected", func(t *testing.T) {
		s, w := jointReadings(t, 10, 15, Boiler2)
		_, err := MergeJointReading(s, w, 18)
		require.ErrorIs(t, err, ErrCrossSheetMisalignment)
		assert.Contains(t, err.Error(), "steam row 10")
		assert.Contains(t, err.Error(), "water row 15")
	})

	t.Run("different boilers are rejected", func(t *testing.T) {
		s, _ := jointReadings(t, 10, 10, Boiler1)
		_, w := jointReadings(t, 10, 10, Boiler3)
		_, err := MergeJointReading(s, w, 18)
		assert.ErrorIs(t, err, ErrCrossSheetMisalignment)
	})

	t.Run("swapped sheets are rejected", func(t *testing.T) {
		s, w := jointReadings(t, 10, 10, Boiler1)
		_, err := MergeJointReading(w, s, 18)
		assert.ErrorIs(t, err, ErrCrossSheetMisalignment)
	})

	t.Run("zero steam gives zero ratio", func(t *testing.T) {
		s, w := jointReadings(t, 10, 10, Boiler3)
		s.Values[FieldSteam] = 0
		got, err := MergeJointReading(s, w, 16)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got.NGToSteamRatio)
		assert.Equal(t, StatusOffline, got.Status)
	})
}
