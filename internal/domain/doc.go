// Package domain turns the boiler-house telemetry workbook into normalized
// records.
//
// # Data Source
//
// The plant keeps one workbook with seven relevant tabs. Operators type
// hourly meter readings into it; formulas roll those up into ratio and daily
// report tabs. Tab names drift between revisions of the file, so tabs are
// located by case-folded substring hints rather than exact names:
//
//	NGSTEAM RATIO        steam, natural gas, ratio, output per boiler (hint "ngsteam")
//	WATER_STEAM RATIO    feed water per boiler (hint "water")
//	REPORT B1..B3        one row per day per boiler
//	DATA B1..B3          hourly rows per boiler, dates merged across a block
//
// # Workbook Conventions
//
// Header rows are for humans. Column positions are fixed per (role, boiler)
// and compiled into [LookupLayout]; header text is never parsed because it is
// inconsistent and misspelled across historical tabs.
//
// Ratio tabs repeat a four-column block per boiler with blank spacer columns:
//
//	col  0     1     2   3..6          7..10         11..14
//	     DATE  TIME  -   B1 steam/ng/  B2 steam/ng/  B3 steam/ng/
//	                     ratio/output  ratio/output  ratio/output
//
// Boiler 3 is instrumented differently: one natural gas burner plus a
// custody meter, and no waste gas. Its daily report has ten columns instead
// of eleven and its hourly tab sixteen instead of twenty.
//
// Dates are either spreadsheet serials (days since 1899-12-30, i.e. the Unix
// epoch is serial 25569) or literal strings. Times are day fractions or
// "HH:MM" strings. Some hourly blocks end with "24:00", which is folded to
// hour 0 of the same labelled date.
//
// # Current Reading
//
// The steam and water ratio tabs are two views of one event log. The current
// reading is the highest row, inside a configured window, where any boiler
// reports steam above zero. Water for all three boilers is read from that
// same row index; it is never searched for independently. See
// [FindLatestJointRow] and [MergeJointReading].
//
// # Bad Data
//
// Negative quantities are data-entry artifacts (a natural gas total of
// -749683 has been seen in production). They are clamped to zero and recorded
// on an [Audit] so a validator can report them. Unparseable cells decode as
// zero and are recorded the same way.
package domain
