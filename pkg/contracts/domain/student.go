package domain

import "strings"

// Source identifies which uploaded file a row came from.
type Source string

const (
	SourceResults    Source = "results"
	SourceAttendance Source = "attendance"
)

// CellKind discriminates the value held in a Cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellString
	CellNumber
)

// Cell is a spreadsheet cell resolved to a typed value at parse time.
// Downstream code never re-inspects raw strings.
type Cell struct {
	Kind   CellKind `json:"kind"`
	Text   string   `json:"text,omitempty"`
	Number float64  `json:"number,omitempty"`
}

// EmptyCell returns the zero-value empty cell.
func EmptyCell() Cell { return Cell{Kind: CellEmpty} }

// StringCell wraps a textual value.
func StringCell(s string) Cell { return Cell{Kind: CellString, Text: s} }

// NumberCell wraps a numeric value.
func NumberCell(n float64) Cell { return Cell{Kind: CellNumber, Number: n} }

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }

// String returns the textual form of the cell, or "" when empty.
func (c Cell) String() string {
	switch c.Kind {
	case CellString:
		return c.Text
	case CellNumber:
		return trimFloat(c.Number)
	default:
		return ""
	}
}

// RawRow is one parsed spreadsheet row: normalized column name to cell value,
// plus the source file and 1-based line number for error messages.
type RawRow struct {
	Source Source          `json:"source"`
	Line   int             `json:"line"`
	Cells  map[string]Cell `json:"cells"`
}

// Cell returns the cell for a column, or an empty cell when absent.
func (r RawRow) Cell(column string) Cell {
	if c, ok := r.Cells[column]; ok {
		return c
	}
	return EmptyCell()
}

// NormalizeKey folds a raw student identifier into the canonical StudentKey
// form: surrounding whitespace trimmed, case folded to upper. Anything
// stricter (fuzzy matching of near-duplicate identifiers) is deliberately
// not done here.
func NormalizeKey(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// MatchStatus classifies a profile by which sources contributed to it.
type MatchStatus string

const (
	MatchStatusMatched        MatchStatus = "matched"
	MatchStatusResultsOnly    MatchStatus = "results-only"
	MatchStatusAttendanceOnly MatchStatus = "attendance-only"
)

// SubjectScore is a single subject result taken from the results file.
type SubjectScore struct {
	Subject string  `json:"subject"`
	Score   float64 `json:"score" validate:"min=0"`
}

// StudentProfile is the consolidated per-student record joining the results
// and attendance sources on the normalized StudentKey.
type StudentProfile struct {
	StudentKey  string      `json:"student_key" validate:"required"`
	StudentName string      `json:"student_name"`
	Section     string      `json:"section,omitempty"`
	Year        string      `json:"year,omitempty"`
	Semester    string      `json:"semester,omitempty"`
	Branch      string      `json:"branch,omitempty"`
	Email       string      `json:"email,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	MatchStatus MatchStatus `json:"match_status"`

	// Results side; empty when MatchStatus is attendance-only.
	Scores []SubjectScore `json:"scores,omitempty"`

	// Attendance side; both zero when MatchStatus is results-only.
	ClassesAttended int  `json:"classes_attended" validate:"min=0"`
	ClassesHeld     int  `json:"classes_held" validate:"min=0"`
	HasAttendance   bool `json:"has_attendance"`
}

// HasResults reports whether the results source contributed to the profile.
func (p *StudentProfile) HasResults() bool {
	return p.MatchStatus != MatchStatusAttendanceOnly
}

// MatchSummary is returned alongside the profile map so the caller can report
// how many keys were found in one source only. Unmatched keys are not errors.
type MatchSummary struct {
	Total          int `json:"total"`
	Matched        int `json:"matched"`
	ResultsOnly    int `json:"results_only"`
	AttendanceOnly int `json:"attendance_only"`
}
