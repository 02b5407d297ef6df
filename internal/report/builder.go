// Package report projects consolidated student profiles into the exact field
// set the document templates consume.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"acadreport/pkg/contracts/domain"
)

// Thresholds holds the tunable cut-offs used when deriving report fields.
type Thresholds struct {
	// PassMark is the minimum subject score not flagged as failing.
	PassMark float64
	// AttendanceRed is the detention threshold: below it the band is red.
	AttendanceRed float64
	// AttendanceYellow is the warning threshold: below it (but at or above
	// AttendanceRed) the band is yellow.
	AttendanceYellow float64
}

// DefaultThresholds mirrors the department regulations the reports cite.
func DefaultThresholds() Thresholds {
	return Thresholds{PassMark: 40, AttendanceRed: 75, AttendanceYellow: 80}
}

// Builder maps one StudentProfile to one ReportModel. It is a pure
// transformation: no I/O, deterministic for the same profile.
type Builder struct {
	thresholds Thresholds
}

// NewBuilder creates a builder with the given thresholds.
func NewBuilder(t Thresholds) *Builder {
	return &Builder{thresholds: t}
}

// Build derives the rendering-ready model. Missing data becomes the
// NotAvailable sentinel; a zero attendance denominator yields NotAvailable
// rather than a division error.
func (b *Builder) Build(p *domain.StudentProfile) domain.ReportModel {
	m := domain.ReportModel{
		StudentID:   p.StudentKey,
		StudentName: orNA(p.StudentName),
		Section:     orNA(p.Section),
		Year:        orNA(p.Year),
		Semester:    orNA(p.Semester),
		Branch:      orNA(p.Branch),
		MatchStatus: p.MatchStatus,

		OverallAverage:       domain.NotAvailable,
		ClassesAttended:      domain.NotAvailable,
		ClassesHeld:          domain.NotAvailable,
		AttendancePercentage: domain.NotAvailable,
		AttendanceBand:       domain.BandNone,
	}

	var failing []string
	if len(p.Scores) > 0 {
		var sum float64
		for _, s := range p.Scores {
			isFailing := s.Score < b.thresholds.PassMark
			m.Subjects = append(m.Subjects, domain.ReportSubject{
				Subject: subjectTitle(s.Subject),
				Score:   domain.FormatScore(s.Score),
				Failing: isFailing,
			})
			if isFailing {
				failing = append(failing, subjectTitle(s.Subject))
			}
			sum += s.Score
		}
		m.OverallAverage = domain.FormatScore(sum / float64(len(p.Scores)))
	}

	lowAttendance := false
	if p.HasAttendance {
		m.ClassesAttended = strconv.Itoa(p.ClassesAttended)
		m.ClassesHeld = strconv.Itoa(p.ClassesHeld)
		if p.ClassesHeld > 0 {
			pct := float64(p.ClassesAttended) / float64(p.ClassesHeld) * 100
			if pct > 100 {
				pct = 100
			}
			m.AttendancePercentage = domain.FormatPercent(pct)
			m.AttendanceBand = b.band(pct)
			lowAttendance = pct < b.thresholds.AttendanceRed
		}
	}

	m.NeedsCounseling = lowAttendance || len(failing) > 0
	m.Remark = b.remark(lowAttendance, failing)
	return m
}

func (b *Builder) band(pct float64) domain.AttendanceBand {
	switch {
	case pct < b.thresholds.AttendanceRed:
		return domain.BandRed
	case pct < b.thresholds.AttendanceYellow:
		return domain.BandYellow
	default:
		return domain.BandGreen
	}
}

// remark builds the sign-off paragraph from the concrete concerns.
func (b *Builder) remark(lowAttendance bool, failing []string) string {
	var concerns []string
	if lowAttendance {
		concerns = append(concerns, fmt.Sprintf(
			"the student's attendance is below the required %.0f%% and may lead to detention as per university regulations",
			b.thresholds.AttendanceRed))
	}
	if len(failing) > 0 {
		concerns = append(concerns, fmt.Sprintf(
			"the student has not secured a pass mark in %s and requires dedicated academic effort",
			strings.Join(failing, ", ")))
	}
	if len(concerns) == 0 {
		return "The student's academic performance and attendance are satisfactory. " +
			"We encourage the student to continue maintaining this standard."
	}
	return "This is to bring to your kind attention that " + strings.Join(concerns, "; and ") +
		". We kindly request the parent/guardian to counsel the student; the department will continue to monitor progress and provide academic support."
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return domain.NotAvailable
	}
	return s
}

// subjectTitle turns a snake_case column name back into a display title.
func subjectTitle(col string) string {
	words := strings.Split(col, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
