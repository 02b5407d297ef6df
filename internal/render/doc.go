// Package render turns ReportModels into downloadable PDF and DOCX
// artifacts.
//
// The PDF path expands the model into a self-contained HTML document via a
// template and prints it to A4 through headless Chrome. The DOCX path
// populates a WordprocessingML document whose paragraphs and tables mirror
// the PDF layout.
//
// Rendering is deterministic for a fixed clock: the generation date is the
// single documented exception, injected through the renderer's clock so tests
// can pin it.
package render
