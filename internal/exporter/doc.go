// Package exporter flattens matched student profiles into CSV for download.
//
// The roster export is a single wide table: one row per student, fixed
// identity and attendance columns, then one column per subject observed in
// the uploaded results. Subject columns are sorted so the export is
// deterministic regardless of upload column order. Output is written with a
// UTF-8 BOM so Excel opens it without mangling non-ASCII names.
package exporter
