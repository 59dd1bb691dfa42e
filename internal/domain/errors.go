package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingSheet means a required sheet role had no matching tab. Fatal
	// for the whole sync.
	ErrMissingSheet = errors.New("missing sheet")

	// ErrNoQualifyingRow means the bounded scan found no row with data.
	// Fatal for the snapshot only; history still builds.
	ErrNoQualifyingRow = errors.New("no qualifying row")

	// ErrCrossSheetMisalignment means a steam and a water reading from
	// different rows were about to be merged.
	ErrCrossSheetMisalignment = errors.New("cross-sheet row misalignment")

	// ErrUnknownLayout means no column layout exists for a (role, boiler) pair.
	ErrUnknownLayout = errors.New("unknown column layout")
)

// MissingRole describes one unresolved sheet requirement.
type MissingRole struct {
	Key   SheetKey
	Hints []string
}

// MissingSheetError aggregates every sheet role that could not be resolved.
type MissingSheetError struct {
	Missing   []MissingRole
	Available []string
}

func (e *MissingSheetError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		parts = append(parts, fmt.Sprintf("%s (hints %q)", m.Key, m.Hints))
	}
	return fmt.Sprintf("missing sheet for %s; available sheets: %q",
		strings.Join(parts, ", "), e.Available)
}

func (e *MissingSheetError) Is(target error) bool {
	return target == ErrMissingSheet
}

// NoQualifyingRowError reports an exhausted scan.
type NoQualifyingRowError struct {
	Sheet   string
	Floor   int
	Ceiling int
	Reason  string
}

func (e *NoQualifyingRowError) Error() string {
	bound := "end of sheet"
	if e.Ceiling != NoCeiling {
		bound = fmt.Sprintf("row %d", e.Ceiling)
	}
	return fmt.Sprintf("no qualifying row in sheet %q scanning from %s down to row %d: %s",
		e.Sheet, bound, e.Floor, e.Reason)
}

func (e *NoQualifyingRowError) Unwrap() error {
	return ErrNoQualifyingRow
}
