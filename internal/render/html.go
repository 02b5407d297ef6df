package render

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"acadreport/pkg/contracts/domain"
)

// reportTemplate is the single-page A4 layout shared by the PDF and DOCX
// renderings. It is fully self-contained: inline CSS, no external assets.
var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Branding.Title}} — {{.Model.StudentID}}</title>
<style>
  @page { size: A4; margin: 1.5cm 2cm; }
  body { font-family: Helvetica, Arial, sans-serif; color: #222222; font-size: 11pt; }
  header { text-align: center; margin-bottom: 14px; }
  h1 { color: #C62828; font-size: 18pt; margin: 0; }
  .dept { font-size: 10pt; font-weight: bold; margin: 2px 0; }
  .title { color: #C62828; font-size: 13pt; font-weight: bold; margin: 4px 0; }
  .generated { color: #555555; font-size: 9pt; }
  h2 { font-size: 11pt; margin: 14px 0 4px; }
  table { border-collapse: collapse; width: 100%; }
  th, td { border: 1px solid #bbbbbb; padding: 4px 8px; text-align: left; }
  th { background: #C62828; color: #ffffff; }
  .failing { background: #FDECEA; color: #B71C1C; font-weight: bold; }
  .att-red { color: #B71C1C; font-weight: bold; }
  .att-yellow { color: #F57F17; font-weight: bold; }
  .att-green { color: #1B5E20; font-weight: bold; }
  .remark { font-size: 9.5pt; margin-top: 12px; }
  .signoff { margin-top: 18px; font-weight: bold; }
  .signatory { color: #C62828; }
</style>
</head>
<body>
<header>
  <h1>{{.Branding.Institution}}</h1>
  <div class="dept">{{.Branding.Department}}</div>
  <div class="title">{{.Branding.Title}}</div>
  <div class="generated">Date: {{.GeneratedDate}}</div>
</header>

<h2>Student Details</h2>
<table>
  <tr><th>Student ID</th><td>{{.Model.StudentID}}</td></tr>
  <tr><th>Student Name</th><td>{{.Model.StudentName}}</td></tr>
  <tr><th>Section</th><td>{{.Model.Section}}</td></tr>
  <tr><th>Year</th><td>{{.Model.Year}}</td></tr>
  <tr><th>Semester</th><td>{{.Model.Semester}}</td></tr>
  <tr><th>Branch</th><td>{{.Model.Branch}}</td></tr>
  <tr><th>Record Status</th><td>{{.Model.MatchStatus}}</td></tr>
</table>

<h2>Subject Results</h2>
{{if .Model.Subjects}}
<table>
  <tr><th>Subject</th><th>Score</th></tr>
  {{range .Model.Subjects}}
  <tr><td>{{.Subject}}</td><td{{if .Failing}} class="failing"{{end}}>{{.Score}}</td></tr>
  {{end}}
</table>
<p><strong>Overall Average: {{.Model.OverallAverage}}</strong></p>
{{else}}
<p>No results on record for this semester: {{.Model.OverallAverage}}</p>
{{end}}

<h2>Attendance</h2>
<table>
  <tr><th>Classes Attended</th><th>Classes Held</th><th>Attendance</th></tr>
  <tr>
    <td>{{.Model.ClassesAttended}}</td>
    <td>{{.Model.ClassesHeld}}</td>
    <td class="{{.AttendanceClass}}">{{.AttendancePercent}}</td>
  </tr>
</table>

<p class="remark">{{.Model.Remark}}</p>
<p class="signoff">Sincerely,<br>Head of the Department<br>
<span class="signatory">{{.Branding.Signatory}}</span><br>{{.Branding.Department}}</p>
</body>
</html>
`))

type htmlContext struct {
	Branding      Branding
	Model         domain.ReportModel
	GeneratedDate string
}

// AttendanceClass maps the model's band to the stylesheet class.
func (c htmlContext) AttendanceClass() string {
	switch c.Model.AttendanceBand {
	case domain.BandRed:
		return "att-red"
	case domain.BandYellow:
		return "att-yellow"
	case domain.BandGreen:
		return "att-green"
	default:
		return ""
	}
}

// AttendancePercent renders the percentage cell, leaving the sentinel as is.
func (c htmlContext) AttendancePercent() string {
	if c.Model.AttendancePercentage == domain.NotAvailable {
		return domain.NotAvailable
	}
	return c.Model.AttendancePercentage + "%"
}

// RenderHTML expands the model into the report document. Output is
// byte-identical for the same model and generation time.
func (r *Renderer) RenderHTML(m domain.ReportModel, generated time.Time) ([]byte, error) {
	var buf bytes.Buffer
	ctx := htmlContext{
		Branding:      r.branding,
		Model:         m,
		GeneratedDate: generated.Format("January 2, 2006"),
	}
	if err := reportTemplate.Execute(&buf, ctx); err != nil {
		return nil, fmt.Errorf("execute report template: %w", err)
	}
	return buf.Bytes(), nil
}
