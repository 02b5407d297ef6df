package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"acadreport/pkg/contracts/domain"
)

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Student ID", "student_id"},
		{"  Roll-No ", "roll_no"},
		{"Classes Held", "classes_held"},
		{"Attendance %", "attendance_"},
		{"CGPA", "cgpa"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHeader(tt.in), "header %q", tt.in)
	}
}

func TestParse_ResultsCSV(t *testing.T) {
	input := "Student ID,Student Name,Section,Math,Science\n" +
		"s1,Alice Rao,A,80,90\n" +
		"S2,Bob Iyer,A,45,\n"

	set, err := Parse(strings.NewReader(input), FormatCSV, domain.SourceResults)
	require.NoError(t, err)

	assert.Equal(t, "student_id", set.IDColumn)
	assert.Equal(t, "student_name", set.NameColumn)
	assert.Equal(t, []string{"math", "science"}, set.SubjectColumns)
	assert.Equal(t, "section", set.MetaColumns["section"])
	require.Len(t, set.Rows, 2)

	first := set.Rows[0]
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, domain.SourceResults, first.Source)
	assert.Equal(t, "s1", first.Cell("student_id").Text)
	assert.Equal(t, 80.0, first.Cell("math").Number)
	assert.Equal(t, 90.0, first.Cell("science").Number)

	// Empty score cells stay empty instead of becoming zero.
	assert.True(t, set.Rows[1].Cell("science").IsEmpty())
}

func TestParse_ResultsXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Student ID", "Student Name", "Math", "Science"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"S1", "Alice Rao", 80, 90.5}))
	// Trailing empty cells come back as a row shorter than the header.
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"S2", "Bob Iyer", 45}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	set, err := Parse(&buf, FormatXLSX, domain.SourceResults)
	require.NoError(t, err)

	assert.Equal(t, "student_id", set.IDColumn)
	assert.Equal(t, "student_name", set.NameColumn)
	assert.Equal(t, []string{"math", "science"}, set.SubjectColumns)
	require.Len(t, set.Rows, 2)

	assert.Equal(t, "S1", set.Rows[0].Cell("student_id").Text)
	assert.Equal(t, 80.0, set.Rows[0].Cell("math").Number)
	assert.Equal(t, 90.5, set.Rows[0].Cell("science").Number)

	assert.Equal(t, 45.0, set.Rows[1].Cell("math").Number)
	assert.True(t, set.Rows[1].Cell("science").IsEmpty())
}

func TestParse_AttendanceXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Roll No", "Name", "Classes Attended", "Classes Held"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"S1", "Alice Rao", 18, 20}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	set, err := Parse(&buf, FormatXLSX, domain.SourceAttendance)
	require.NoError(t, err)
	assert.Equal(t, "classes_attended", set.AttendedColumn)
	assert.Equal(t, "classes_held", set.HeldColumn)

	attended, held := set.AttendanceCounts(set.Rows[0])
	assert.Equal(t, 18, attended)
	assert.Equal(t, 20, held)
}

func TestParse_XLSXGarbage(t *testing.T) {
	_, err := Parse(strings.NewReader("this is not a zip archive"), FormatXLSX, domain.SourceResults)
	require.Error(t, err)

	var formatErr *FormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Contains(t, formatErr.Reason, "workbook")
}

func TestParse_AttendanceCSV(t *testing.T) {
	input := "ID,Name,Present,Total\nS1,Alice Rao,18,20\n"

	set, err := Parse(strings.NewReader(input), FormatCSV, domain.SourceAttendance)
	require.NoError(t, err)
	assert.Equal(t, "present", set.AttendedColumn)
	assert.Equal(t, "total", set.HeldColumn)

	attended, held := set.AttendanceCounts(set.Rows[0])
	assert.Equal(t, 18, attended)
	assert.Equal(t, 20, held)
}

func TestParse_AttendancePercentageOnly(t *testing.T) {
	input := "Reg No,Name,Attendance Percentage\nS1,Alice Rao,85\n"

	set, err := Parse(strings.NewReader(input), FormatCSV, domain.SourceAttendance)
	require.NoError(t, err)
	assert.Empty(t, set.HeldColumn)

	attended, held := set.AttendanceCounts(set.Rows[0])
	assert.Equal(t, 85, attended)
	assert.Equal(t, 100, held)
}

func TestParse_ResultsCGPAColumnIsNotASubject(t *testing.T) {
	input := "ID,Name,Math,Science,CGPA\nS1,Alice Rao,80,90,8.5\n"

	set, err := Parse(strings.NewReader(input), FormatCSV, domain.SourceResults)
	require.NoError(t, err)
	assert.Equal(t, []string{"math", "science"}, set.SubjectColumns)
}

func TestParse_FormatErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		source   domain.Source
		wantLine int
		wantCol  string
	}{
		{
			name:   "missing id column",
			input:  "Name,Math\nAlice,80\n",
			source: domain.SourceResults,
		},
		{
			name:     "non-numeric score",
			input:    "ID,Name,Math\nS1,Alice,eighty\n",
			source:   domain.SourceResults,
			wantLine: 2,
			wantCol:  "math",
		},
		{
			name:     "negative score",
			input:    "ID,Name,Math\nS1,Alice,-4\n",
			source:   domain.SourceResults,
			wantLine: 2,
			wantCol:  "math",
		},
		{
			name:     "malformed late row aborts whole parse",
			input:    "ID,Math\nS1,80\nS2,90\nS3,not-a-number\n",
			source:   domain.SourceResults,
			wantLine: 4,
			wantCol:  "math",
		},
		{
			name:   "missing attendance columns",
			input:  "ID,Name,Remarks\nS1,Alice,ok\n",
			source: domain.SourceAttendance,
		},
		{
			name:     "percentage above 100",
			input:    "ID,Attendance Percentage\nS1,120\n",
			source:   domain.SourceAttendance,
			wantLine: 2,
		},
		{
			name:     "empty student id",
			input:    "ID,Math\n,80\n",
			source:   domain.SourceResults,
			wantLine: 2,
			wantCol:  "id",
		},
		{
			name:   "empty file",
			input:  "",
			source: domain.SourceResults,
		},
		{
			name:   "header only",
			input:  "ID,Math\n",
			source: domain.SourceResults,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), FormatCSV, tt.source)
			require.Error(t, err)

			var formatErr *FormatError
			require.True(t, errors.As(err, &formatErr), "want *FormatError, got %T", err)
			assert.Equal(t, tt.source, formatErr.Source)
			if tt.wantLine > 0 {
				assert.Equal(t, tt.wantLine, formatErr.Line)
			}
			if tt.wantCol != "" {
				assert.Equal(t, tt.wantCol, formatErr.Column)
			}
		})
	}
}

func TestParse_SkipsBlankRows(t *testing.T) {
	input := "ID,Math\nS1,80\n,\nS2,70\n"

	set, err := Parse(strings.NewReader(input), FormatCSV, domain.SourceResults)
	require.NoError(t, err)
	require.Len(t, set.Rows, 2)
	assert.Equal(t, 4, set.Rows[1].Line)
}

func TestFormatForFilename(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{name: "results.csv", want: FormatCSV},
		{name: "Attendance.XLSX", want: FormatXLSX},
		{name: "legacy.xls", wantErr: true},
		{name: "notes.txt", wantErr: true},
	}
	for _, tt := range tests {
		got, err := FormatForFilename(tt.name)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got)
	}

	// Legacy workbooks get a pointed message, not the generic one.
	_, err := FormatForFilename("legacy.xls")
	assert.ErrorContains(t, err, "legacy .xls workbooks are not supported")
}
