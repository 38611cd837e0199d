// Package export renders audit and tender reports as JSON, CSV or PDF.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

// Report identifies which dataset to export.
type Report string

const (
	ReportAudit   Report = "audit"
	ReportTenders Report = "tenders"
)

// Request contains parameters for an export operation.
type Request struct {
	Report Report
	Format Format
	MDAID  string // tenders report only; empty = all MDAs
	Limit  int    // audit report only; 0 = everything
}

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// row is one rendered line of a report, shared by the CSV and PDF paths.
type row struct {
	cells []string
}

// reportData is the assembled dataset handed to the renderers.
type reportData struct {
	Title       string
	GeneratedAt time.Time
	Headers     []string
	Rows        []row
}

var (
	// ErrUnknownReport indicates an unrecognized report name.
	ErrUnknownReport = errors.New("export: unknown report")
	// ErrUnknownFormat indicates an unrecognized output format.
	ErrUnknownFormat = errors.New("export: unknown format")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export: pdf dependency missing")
)
