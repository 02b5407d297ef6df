package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"

	"acadreport/pkg/contracts/domain"
)

// utf8BOM helps Excel recognize the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// fixedColumns lead every roster export, before the per-subject columns.
var fixedColumns = []string{
	"student_id",
	"student_name",
	"section",
	"year",
	"semester",
	"branch",
	"match_status",
	"classes_attended",
	"classes_held",
}

// RosterWriter streams the consolidated roster as CSV.
type RosterWriter struct {
	logger *slog.Logger
}

// NewRosterWriter creates a roster CSV writer. logger may be nil.
func NewRosterWriter(logger *slog.Logger) *RosterWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RosterWriter{logger: logger}
}

// WriteOptions configures a roster export.
type WriteOptions struct {
	// BOMPrefix prepends a UTF-8 BOM for Excel compatibility.
	BOMPrefix bool
}

// Write emits one row per profile, ordered by student key, with subject
// columns sorted alphabetically. Profiles without a score for a subject get
// an empty cell, and attendance cells are blank for results-only students.
func (w *RosterWriter) Write(out io.Writer, profiles map[string]*domain.StudentProfile, opts WriteOptions) error {
	if opts.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("write BOM: %w", err)
		}
	}

	subjects := subjectColumns(profiles)
	header := append(append([]string{}, fixedColumns...), subjects...)

	cw := csv.NewWriter(out)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	keys := make([]string, 0, len(profiles))
	for k := range profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := cw.Write(rosterRow(profiles[k], subjects)); err != nil {
			return fmt.Errorf("write row for %s: %w", k, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush roster: %w", err)
	}

	w.logger.Info("roster exported",
		slog.Int("students", len(keys)),
		slog.Int("subjects", len(subjects)))
	return nil
}

// subjectColumns collects the union of subjects across all profiles.
func subjectColumns(profiles map[string]*domain.StudentProfile) []string {
	seen := make(map[string]struct{})
	for _, p := range profiles {
		for _, s := range p.Scores {
			seen[s.Subject] = struct{}{}
		}
	}
	subjects := make([]string, 0, len(seen))
	for s := range seen {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	return subjects
}

func rosterRow(p *domain.StudentProfile, subjects []string) []string {
	attended, held := "", ""
	if p.HasAttendance {
		attended = strconv.Itoa(p.ClassesAttended)
		held = strconv.Itoa(p.ClassesHeld)
	}
	row := []string{
		p.StudentKey,
		p.StudentName,
		p.Section,
		p.Year,
		p.Semester,
		p.Branch,
		string(p.MatchStatus),
		attended,
		held,
	}

	scores := make(map[string]float64, len(p.Scores))
	for _, s := range p.Scores {
		scores[s.Subject] = s.Score
	}
	for _, subject := range subjects {
		if score, ok := scores[subject]; ok {
			row = append(row, domain.FormatScore(score))
		} else {
			row = append(row, "")
		}
	}
	return row
}
