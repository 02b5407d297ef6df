// Package ingest reads uploaded results and attendance spreadsheets into
// normalized row sets keyed by student identifier.
//
// # Architecture
//
// Parsing happens in two stages:
//
// 1. Decode: the CSV or XLSX input is read fully into header + raw string rows
// 2. Normalize: headers are folded to snake_case, the student ID and name
//    columns are detected, and every cell is coerced once into a typed value
//
// The whole input is materialized and validated before a RowSet is returned,
// so a malformed cell on the last line fails the upload before any row is
// consumed downstream.
//
// # Error Handling
//
// All validation failures are reported as *FormatError naming the offending
// row and column. Callers can detect them with errors.As.
package ingest
