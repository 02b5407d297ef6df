package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"acadreport/pkg/contracts/domain"
)

// Format is the declared file format of an upload.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatForFilename maps a filename extension to a Format.
func FormatForFilename(name string) (Format, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV, nil
	case strings.HasSuffix(lower, ".xlsx"):
		return FormatXLSX, nil
	case strings.HasSuffix(lower, ".xls"):
		return "", fmt.Errorf("legacy .xls workbooks are not supported, save %q as .xlsx or .csv", name)
	default:
		return "", fmt.Errorf("unsupported file extension in %q (want .csv or .xlsx)", name)
	}
}

// FormatError reports a malformed or missing input column or cell. Line is
// 1-based and includes the header row; Line 0 means the file as a whole.
type FormatError struct {
	Source domain.Source
	Line   int
	Column string
	Reason string
}

func (e *FormatError) Error() string {
	switch {
	case e.Line > 0 && e.Column != "":
		return fmt.Sprintf("%s file: row %d, column %q: %s", e.Source, e.Line, e.Column, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("%s file: column %q: %s", e.Source, e.Column, e.Reason)
	default:
		return fmt.Sprintf("%s file: %s", e.Source, e.Reason)
	}
}

// RowSet is a fully parsed and validated upload.
type RowSet struct {
	Source     domain.Source
	Columns    []string
	IDColumn   string
	NameColumn string

	// SubjectColumns holds the score-bearing columns of a results file,
	// in header order. Empty for attendance files.
	SubjectColumns []string

	// AttendedColumn and HeldColumn are set for attendance files.
	AttendedColumn string
	HeldColumn     string

	// MetaColumns maps a recognized role (section, year, semester, branch,
	// email, phone) to the column carrying it, when present.
	MetaColumns map[string]string

	Rows []domain.RawRow
}

var (
	idCandidates = []string{
		"student_id", "studentid", "sid", "roll_no", "rollno",
		"roll_number", "rollnumber", "id", "reg_no", "regno",
		"registration_no", "registrationno", "htno", "hall_ticket_no",
	}
	nameCandidates = []string{
		"student_name", "studentname", "name", "full_name", "fullname",
		"student_full_name",
	}
	attendedAliases = []string{"classes_attended", "classattended", "attended", "present", "present_days"}
	heldAliases     = []string{"classes_held", "classheld", "total_classes", "totalclasses", "held", "total", "total_days"}
	percentAliases  = []string{"attendance_percentage", "attendancepercentage", "attendance_pct", "attendance", "percentage"}
	cgpaAliases     = []string{"cgpa", "cg", "cgpa_value", "sgpa"}

	headerSeparators = regexp.MustCompile(`[\s\-]+`)
	headerStrip      = regexp.MustCompile(`[^\w]`)
)

// Parse reads the whole input and returns a validated RowSet. The input is
// consumed fully before any row is returned, so malformed late rows abort
// the upload instead of surfacing mid-stream.
func Parse(r io.Reader, format Format, source domain.Source) (*RowSet, error) {
	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = decodeCSV(r)
	case FormatXLSX:
		records, err = decodeXLSX(r)
	default:
		return nil, &FormatError{Source: source, Reason: fmt.Sprintf("unsupported format %q", format)}
	}
	if err != nil {
		return nil, &FormatError{Source: source, Reason: err.Error()}
	}

	if len(records) == 0 {
		return nil, &FormatError{Source: source, Reason: "file is empty"}
	}

	columns := make([]string, len(records[0]))
	for i, h := range records[0] {
		columns[i] = NormalizeHeader(h)
	}

	set := &RowSet{
		Source:      source,
		Columns:     columns,
		MetaColumns: detectMetaColumns(columns),
	}

	if set.IDColumn = detectColumn(columns, idCandidates, []string{"id", "roll", "reg", "htno"}); set.IDColumn == "" {
		return nil, &FormatError{Source: source, Line: 1, Reason: fmt.Sprintf("could not detect a student ID column among %v", columns)}
	}
	set.NameColumn = detectColumn(columns, nameCandidates, []string{"name"})

	switch source {
	case domain.SourceResults:
		set.SubjectColumns = subjectColumns(set)
		if len(set.SubjectColumns) == 0 {
			return nil, &FormatError{Source: source, Line: 1, Reason: "no subject score columns found"}
		}
	case domain.SourceAttendance:
		set.AttendedColumn = firstColumn(columns, attendedAliases)
		set.HeldColumn = firstColumn(columns, heldAliases)
		if set.AttendedColumn == "" || set.HeldColumn == "" {
			// Fall back to a single percentage column, the way some
			// departments export attendance.
			pct := detectColumn(columns, percentAliases, []string{"attendance", "percent"})
			if pct == "" {
				return nil, &FormatError{Source: source, Line: 1, Reason: "attendance file needs attended/held columns or an attendance percentage column"}
			}
			set.AttendedColumn, set.HeldColumn = pct, ""
		}
	}

	for i, record := range records[1:] {
		line := i + 2
		if blankRecord(record) {
			continue
		}
		row, err := set.buildRow(record, line)
		if err != nil {
			return nil, err
		}
		set.Rows = append(set.Rows, row)
	}

	if len(set.Rows) == 0 {
		return nil, &FormatError{Source: source, Reason: "file has a header but no data rows"}
	}
	return set, nil
}

// buildRow coerces one record into a RawRow, validating every typed cell.
func (s *RowSet) buildRow(record []string, line int) (domain.RawRow, error) {
	row := domain.RawRow{Source: s.Source, Line: line, Cells: make(map[string]domain.Cell, len(s.Columns))}

	for i, column := range s.Columns {
		var raw string
		if i < len(record) {
			raw = strings.TrimSpace(record[i])
		}
		if raw == "" {
			row.Cells[column] = domain.EmptyCell()
			continue
		}

		switch {
		case s.Source == domain.SourceResults && contains(s.SubjectColumns, column):
			score, err := parseNumber(raw)
			if err != nil {
				return domain.RawRow{}, &FormatError{Source: s.Source, Line: line, Column: column, Reason: fmt.Sprintf("score %q is not numeric", raw)}
			}
			if score < 0 {
				return domain.RawRow{}, &FormatError{Source: s.Source, Line: line, Column: column, Reason: fmt.Sprintf("score %v is negative", score)}
			}
			row.Cells[column] = domain.NumberCell(score)

		case s.Source == domain.SourceAttendance && (column == s.AttendedColumn || column == s.HeldColumn):
			n, err := parseNumber(raw)
			if err != nil {
				return domain.RawRow{}, &FormatError{Source: s.Source, Line: line, Column: column, Reason: fmt.Sprintf("count %q is not numeric", raw)}
			}
			if n < 0 {
				return domain.RawRow{}, &FormatError{Source: s.Source, Line: line, Column: column, Reason: fmt.Sprintf("count %v is negative", n)}
			}
			if s.HeldColumn == "" && n > 100 {
				// AttendedColumn is a percentage in this layout.
				return domain.RawRow{}, &FormatError{Source: s.Source, Line: line, Column: column, Reason: fmt.Sprintf("percentage %v is out of range [0,100]", n)}
			}
			row.Cells[column] = domain.NumberCell(n)

		default:
			row.Cells[column] = domain.StringCell(raw)
		}
	}

	if row.Cell(s.IDColumn).IsEmpty() {
		return domain.RawRow{}, &FormatError{Source: s.Source, Line: line, Column: s.IDColumn, Reason: "student ID is empty"}
	}
	return row, nil
}

// AttendanceCounts extracts the attended/held pair from an attendance row.
// A percentage-only layout is converted to counts out of 100.
func (s *RowSet) AttendanceCounts(row domain.RawRow) (attended, held int) {
	if s.HeldColumn == "" {
		pct := row.Cell(s.AttendedColumn).Number
		return int(math.Round(pct)), 100
	}
	return int(math.Round(row.Cell(s.AttendedColumn).Number)), int(math.Round(row.Cell(s.HeldColumn).Number))
}

// NormalizeHeader folds a raw header into snake_case: trimmed, lower-cased,
// space/hyphen runs collapsed to underscores, other punctuation stripped.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = headerSeparators.ReplaceAllString(h, "_")
	return headerStrip.ReplaceAllString(h, "")
}

func decodeCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed CSV: %w", err)
	}
	return records, nil
}

func decodeXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func parseNumber(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
}

// detectColumn finds a column by exact candidate match first, then by
// keyword substring fallback.
func detectColumn(columns, candidates, keywords []string) string {
	for _, col := range columns {
		if contains(candidates, col) {
			return col
		}
	}
	for _, col := range columns {
		for _, kw := range keywords {
			if strings.Contains(col, kw) {
				return col
			}
		}
	}
	return ""
}

func firstColumn(columns, aliases []string) string {
	for _, alias := range aliases {
		for _, col := range columns {
			if col == alias {
				return col
			}
		}
	}
	return ""
}

func detectMetaColumns(columns []string) map[string]string {
	meta := make(map[string]string)
	for _, col := range columns {
		switch {
		case strings.Contains(col, "section"):
			setIfAbsent(meta, "section", col)
		case strings.Contains(col, "year"):
			setIfAbsent(meta, "year", col)
		case col == "semester" || col == "sem":
			setIfAbsent(meta, "semester", col)
		case strings.Contains(col, "branch"), strings.Contains(col, "department"), strings.Contains(col, "dept"):
			setIfAbsent(meta, "branch", col)
		case strings.Contains(col, "email"):
			setIfAbsent(meta, "email", col)
		case strings.Contains(col, "phone"), strings.Contains(col, "mobile"):
			setIfAbsent(meta, "phone", col)
		}
	}
	return meta
}

// subjectColumns returns every column of a results file that is not the ID,
// name, a recognized metadata column, or an aggregate grade column such as
// CGPA. Header order is preserved.
func subjectColumns(set *RowSet) []string {
	reserved := map[string]bool{set.IDColumn: true, set.NameColumn: true}
	for _, col := range set.MetaColumns {
		reserved[col] = true
	}
	var subjects []string
	for _, col := range set.Columns {
		if col == "" || reserved[col] || contains(cgpaAliases, col) {
			continue
		}
		subjects = append(subjects, col)
	}
	return subjects
}

func setIfAbsent(m map[string]string, key, value string) {
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
