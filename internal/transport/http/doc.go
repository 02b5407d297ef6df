// Package http contains the HTTP handlers of the report service.
//
// Handlers parse and validate the request, call into the services layer,
// and render responses with go-chi/render. Errors are funneled through the
// shared ErrorHandler so every failure comes back as an RFC 7807 problem
// document carrying the request's trace_id.
//
// Routes:
//
//	POST /api/analyze                 multipart upload of results/attendance
//	GET  /api/students                roster of the analyzed students
//	GET  /api/students/{id}           one consolidated profile
//	GET  /api/reports/{id}/pdf        single report, PDF
//	GET  /api/reports/{id}/docx       single report, DOCX
//	POST /api/reports/archive         ZIP of every student's report
//	GET  /api/exports/roster.csv      roster as CSV
//	GET  /api/health[/ready|/live]    probes
//	GET  /api/version                 build and version information
package http
