// Package match joins results and attendance row sets into consolidated
// per-student profiles keyed by the normalized StudentKey.
package match

import (
	"fmt"
	"sort"

	"acadreport/internal/ingest"
	"acadreport/pkg/contracts/domain"
)

// DuplicateKeyError reports a student identifier that appears more than once
// within a single source file. A silent overwrite would corrupt the report,
// so this aborts the whole upload.
type DuplicateKeyError struct {
	Key    string
	Source domain.Source
	Lines  [2]int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate student key %q in %s file (rows %d and %d)", e.Key, e.Source, e.Lines[0], e.Lines[1])
}

// Match joins the two row sets on the normalized StudentKey. Either set may
// be nil when only one file was uploaded. Every key present in either source
// appears exactly once in the output; a key present in only one source yields
// a partial profile, counted in the summary rather than treated as a failure.
func Match(results, attendance *ingest.RowSet) (map[string]*domain.StudentProfile, domain.MatchSummary, error) {
	resultsIndex, err := indexRows(results)
	if err != nil {
		return nil, domain.MatchSummary{}, err
	}
	attendanceIndex, err := indexRows(attendance)
	if err != nil {
		return nil, domain.MatchSummary{}, err
	}

	profiles := make(map[string]*domain.StudentProfile, len(resultsIndex)+len(attendanceIndex))

	for key, row := range resultsIndex {
		profile := &domain.StudentProfile{
			StudentKey:  key,
			MatchStatus: domain.MatchStatusResultsOnly,
		}
		applyResults(profile, results, row)
		profiles[key] = profile
	}

	for key, row := range attendanceIndex {
		profile, ok := profiles[key]
		if !ok {
			profile = &domain.StudentProfile{
				StudentKey:  key,
				MatchStatus: domain.MatchStatusAttendanceOnly,
			}
			profiles[key] = profile
		} else {
			profile.MatchStatus = domain.MatchStatusMatched
		}
		applyAttendance(profile, attendance, row)
	}

	var summary domain.MatchSummary
	summary.Total = len(profiles)
	for _, p := range profiles {
		switch p.MatchStatus {
		case domain.MatchStatusMatched:
			summary.Matched++
		case domain.MatchStatusResultsOnly:
			summary.ResultsOnly++
		case domain.MatchStatusAttendanceOnly:
			summary.AttendanceOnly++
		}
	}
	return profiles, summary, nil
}

// SortedKeys returns the profile keys in ascending order for stable listings.
func SortedKeys(profiles map[string]*domain.StudentProfile) []string {
	keys := make([]string, 0, len(profiles))
	for k := range profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// indexRows builds the per-source index on normalized keys, failing on the
// first duplicate.
func indexRows(set *ingest.RowSet) (map[string]domain.RawRow, error) {
	if set == nil {
		return nil, nil
	}
	index := make(map[string]domain.RawRow, len(set.Rows))
	for _, row := range set.Rows {
		key := domain.NormalizeKey(row.Cell(set.IDColumn).String())
		if prev, ok := index[key]; ok {
			return nil, &DuplicateKeyError{
				Key:    key,
				Source: set.Source,
				Lines:  [2]int{prev.Line, row.Line},
			}
		}
		index[key] = row
	}
	return index, nil
}

func applyResults(p *domain.StudentProfile, set *ingest.RowSet, row domain.RawRow) {
	applyCommon(p, set, row)
	for _, subject := range set.SubjectColumns {
		cell := row.Cell(subject)
		if cell.IsEmpty() {
			continue
		}
		p.Scores = append(p.Scores, domain.SubjectScore{Subject: subject, Score: cell.Number})
	}
}

func applyAttendance(p *domain.StudentProfile, set *ingest.RowSet, row domain.RawRow) {
	applyCommon(p, set, row)
	p.ClassesAttended, p.ClassesHeld = set.AttendanceCounts(row)
	p.HasAttendance = true
}

// applyCommon fills name and metadata fields, keeping values already set by
// the other source.
func applyCommon(p *domain.StudentProfile, set *ingest.RowSet, row domain.RawRow) {
	if p.StudentName == "" && set.NameColumn != "" {
		p.StudentName = row.Cell(set.NameColumn).String()
	}
	assign := func(dst *string, role string) {
		if *dst != "" {
			return
		}
		if col, ok := set.MetaColumns[role]; ok {
			*dst = row.Cell(col).String()
		}
	}
	assign(&p.Section, "section")
	assign(&p.Year, "year")
	assign(&p.Semester, "semester")
	assign(&p.Branch, "branch")
	assign(&p.Email, "email")
	assign(&p.Phone, "phone")
}
