package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"acadreport/pkg/contracts/domain"
)

// The DOCX output is assembled directly as a WordprocessingML package: a ZIP
// container holding the content-type map, package relationships, and
// word/document.xml. Keeping the writer self-contained makes the output
// byte-deterministic for a fixed generation time, which the archive export
// relies on.

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const docxRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const docxDocumentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

const docxStyles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="Helvetica" w:hAnsi="Helvetica"/><w:sz w:val="22"/></w:rPr></w:rPrDefault></w:docDefaults>
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>
</w:styles>`

// Theme colors shared with the HTML stylesheet.
const (
	docxAccent      = "C62828"
	docxFailText    = "B71C1C"
	docxFailFill    = "FDECEA"
	docxRedText     = "B71C1C"
	docxRedFill     = "FDECEA"
	docxYellowText  = "F57F17"
	docxYellowFill  = "FFF8E1"
	docxGreenText   = "1B5E20"
	docxGreenFill   = "E8F5E9"
	docxHeaderWhite = "FFFFFF"
)

// runStyle describes the character formatting of one text run.
type runStyle struct {
	bold  bool
	color string // RRGGBB, empty for default
	size  int    // half-points, 0 for default
}

// cellStyle adds table-cell shading on top of the run formatting.
type cellStyle struct {
	runStyle
	fill string // RRGGBB shading, empty for none
}

type docxBuilder struct {
	body strings.Builder
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func (b *docxBuilder) run(text string, st runStyle) string {
	var props strings.Builder
	if st.bold {
		props.WriteString("<w:b/>")
	}
	if st.color != "" {
		fmt.Fprintf(&props, `<w:color w:val=%q/>`, st.color)
	}
	if st.size > 0 {
		fmt.Fprintf(&props, `<w:sz w:val="%d"/>`, st.size)
	}
	return fmt.Sprintf("<w:r><w:rPr>%s</w:rPr><w:t xml:space=\"preserve\">%s</w:t></w:r>",
		props.String(), escapeXML(text))
}

func (b *docxBuilder) paragraph(text string, st runStyle, center bool) {
	b.body.WriteString("<w:p><w:pPr>")
	if center {
		b.body.WriteString(`<w:jc w:val="center"/>`)
	}
	b.body.WriteString("</w:pPr>")
	b.body.WriteString(b.run(text, st))
	b.body.WriteString("</w:p>")
}

func (b *docxBuilder) heading(text string) {
	b.paragraph(text, runStyle{bold: true, size: 24}, false)
}

func (b *docxBuilder) cell(text string, st cellStyle) string {
	var props strings.Builder
	props.WriteString(`<w:tcW w:w="0" w:type="auto"/>`)
	if st.fill != "" {
		fmt.Fprintf(&props, `<w:shd w:val="clear" w:color="auto" w:fill=%q/>`, st.fill)
	}
	return fmt.Sprintf("<w:tc><w:tcPr>%s</w:tcPr><w:p>%s</w:p></w:tc>",
		props.String(), b.run(text, st.runStyle))
}

func (b *docxBuilder) table(rows [][]string, styles func(row, col int) cellStyle) {
	b.body.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="5000" w:type="pct"/>` +
		`<w:tblBorders>` +
		`<w:top w:val="single" w:sz="4" w:color="BBBBBB"/>` +
		`<w:left w:val="single" w:sz="4" w:color="BBBBBB"/>` +
		`<w:bottom w:val="single" w:sz="4" w:color="BBBBBB"/>` +
		`<w:right w:val="single" w:sz="4" w:color="BBBBBB"/>` +
		`<w:insideH w:val="single" w:sz="4" w:color="BBBBBB"/>` +
		`<w:insideV w:val="single" w:sz="4" w:color="BBBBBB"/>` +
		`</w:tblBorders></w:tblPr>`)
	for ri, row := range rows {
		b.body.WriteString("<w:tr>")
		for ci, text := range row {
			b.body.WriteString(b.cell(text, styles(ri, ci)))
		}
		b.body.WriteString("</w:tr>")
	}
	b.body.WriteString("</w:tbl>")
	// Word requires a paragraph between consecutive tables.
	b.body.WriteString("<w:p/>")
}

func (b *docxBuilder) document() string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` + b.body.String() +
		`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>` +
		`<w:pgMar w:top="850" w:right="1134" w:bottom="850" w:left="1134"/></w:sectPr>` +
		`</w:body></w:document>`
}

func headerCell() cellStyle {
	return cellStyle{runStyle: runStyle{bold: true, color: docxHeaderWhite}, fill: docxAccent}
}

func plainCell() cellStyle { return cellStyle{} }

func attendanceCellStyle(band domain.AttendanceBand) cellStyle {
	switch band {
	case domain.BandRed:
		return cellStyle{runStyle: runStyle{bold: true, color: docxRedText}, fill: docxRedFill}
	case domain.BandYellow:
		return cellStyle{runStyle: runStyle{bold: true, color: docxYellowText}, fill: docxYellowFill}
	case domain.BandGreen:
		return cellStyle{runStyle: runStyle{bold: true, color: docxGreenText}, fill: docxGreenFill}
	default:
		return plainCell()
	}
}

// RenderDOCX produces the Word rendition of the report, mirroring the PDF
// layout. Output is byte-identical for the same model and generation time.
func (r *Renderer) RenderDOCX(m domain.ReportModel, generated time.Time) ([]byte, error) {
	var b docxBuilder

	b.paragraph(r.branding.Institution, runStyle{bold: true, color: docxAccent, size: 36}, true)
	b.paragraph(r.branding.Department, runStyle{bold: true, size: 20}, true)
	b.paragraph(r.branding.Title, runStyle{bold: true, color: docxAccent, size: 26}, true)
	b.paragraph("Date: "+generated.Format("January 2, 2006"), runStyle{size: 18}, true)
	b.body.WriteString("<w:p/>")

	b.heading("Student Details")
	details := [][]string{
		{"Student ID", m.StudentID},
		{"Student Name", m.StudentName},
		{"Section", m.Section},
		{"Year", m.Year},
		{"Semester", m.Semester},
		{"Branch", m.Branch},
		{"Record Status", string(m.MatchStatus)},
	}
	b.table(details, func(_, col int) cellStyle {
		if col == 0 {
			return headerCell()
		}
		return plainCell()
	})

	b.heading("Subject Results")
	if len(m.Subjects) > 0 {
		rows := [][]string{{"Subject", "Score"}}
		for _, s := range m.Subjects {
			rows = append(rows, []string{s.Subject, s.Score})
		}
		b.table(rows, func(row, col int) cellStyle {
			if row == 0 {
				return headerCell()
			}
			if col == 1 && m.Subjects[row-1].Failing {
				return cellStyle{runStyle: runStyle{bold: true, color: docxFailText}, fill: docxFailFill}
			}
			return plainCell()
		})
		b.paragraph("Overall Average: "+m.OverallAverage, runStyle{bold: true}, false)
	} else {
		b.paragraph("No results on record for this semester: "+m.OverallAverage, runStyle{}, false)
	}
	b.body.WriteString("<w:p/>")

	b.heading("Attendance")
	pct := m.AttendancePercentage
	if pct != domain.NotAvailable {
		pct += "%"
	}
	attendance := [][]string{
		{"Classes Attended", "Classes Held", "Attendance"},
		{m.ClassesAttended, m.ClassesHeld, pct},
	}
	b.table(attendance, func(row, col int) cellStyle {
		if row == 0 {
			return headerCell()
		}
		if col == 2 {
			return attendanceCellStyle(m.AttendanceBand)
		}
		return plainCell()
	})

	b.paragraph(m.Remark, runStyle{size: 19}, false)
	b.body.WriteString("<w:p/>")
	b.paragraph("Sincerely,", runStyle{bold: true}, false)
	b.paragraph("Head of the Department", runStyle{bold: true}, false)
	b.paragraph(r.branding.Signatory, runStyle{bold: true, color: docxAccent}, false)
	b.paragraph(r.branding.Department, runStyle{}, false)

	return packDOCX(b.document(), generated)
}

// packDOCX writes the WordprocessingML parts into a ZIP container with
// timestamps pinned to the generation time.
func packDOCX(document string, generated time.Time) ([]byte, error) {
	parts := []struct {
		name, content string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRootRels},
		{"word/_rels/document.xml.rels", docxDocumentRels},
		{"word/styles.xml", docxStyles},
		{"word/document.xml", document},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   zip.Deflate,
			Modified: generated.UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("create docx part %s: %w", p.name, err)
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, fmt.Errorf("write docx part %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize docx container: %w", err)
	}
	return buf.Bytes(), nil
}
