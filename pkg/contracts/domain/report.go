package domain

import (
	"math"
	"strconv"
)

// NotAvailable is the sentinel substituted for any report field that cannot
// be derived from the profile, so templates never see a missing value.
const NotAvailable = "N/A"

// AttendanceBand color-codes an attendance percentage for report rendering.
type AttendanceBand string

const (
	BandRed    AttendanceBand = "red"    // below the detention threshold
	BandYellow AttendanceBand = "yellow" // between warning and safe
	BandGreen  AttendanceBand = "green"
	BandNone   AttendanceBand = "none" // no attendance data
)

// ReportSubject is one row of the subject table in a rendered report.
type ReportSubject struct {
	Subject string `json:"subject"`
	Score   string `json:"score"`
	Failing bool   `json:"failing"`
}

// ReportModel is the rendering-ready projection of a StudentProfile. Every
// field a template consumes is present, with NotAvailable substituted for
// missing data; numeric fields are pre-formatted strings.
type ReportModel struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Section     string `json:"section"`
	Year        string `json:"year"`
	Semester    string `json:"semester"`
	Branch      string `json:"branch"`

	MatchStatus MatchStatus `json:"match_status"`

	Subjects       []ReportSubject `json:"subjects"`
	OverallAverage string          `json:"overall_average"`

	ClassesAttended      string         `json:"classes_attended"`
	ClassesHeld          string         `json:"classes_held"`
	AttendancePercentage string         `json:"attendance_percentage"`
	AttendanceBand       AttendanceBand `json:"attendance_band"`

	NeedsCounseling bool   `json:"needs_counseling"`
	Remark          string `json:"remark"`
}

// FormatScore renders a numeric score the way report tables expect:
// no trailing zeros, at most two decimals.
func FormatScore(v float64) string {
	return trimFloat(round2(v))
}

// FormatPercent renders a percentage with exactly two decimals.
func FormatPercent(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', 2, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
