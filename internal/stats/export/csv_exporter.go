package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"civiclens/portal-backend/internal/stats"
)

// CSVExporter writes the transparency export as CSV
type CSVExporter struct {
	options CSVOptions
}

// CSVOptions configures CSV export behavior
type CSVOptions struct {
	Delimiter     rune `json:"delimiter"`
	UseCRLF       bool `json:"use_crlf"`
	IncludeHeader bool `json:"include_header"`
}

// DefaultCSVOptions returns default CSV export options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:     ',',
		UseCRLF:       false,
		IncludeHeader: true,
	}
}

// NewCSVExporter creates a new CSV exporter
func NewCSVExporter(options CSVOptions) *CSVExporter {
	return &CSVExporter{options: options}
}

// WriteProjects writes the per-project trust rollup
func (e *CSVExporter) WriteProjects(w io.Writer, rows []TrustRow) error {
	writer := csv.NewWriter(w)
	writer.Comma = e.options.Delimiter
	writer.UseCRLF = e.options.UseCRLF

	if e.options.IncludeHeader {
		if err := writer.Write(trustColumns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for _, row := range rows {
		if err := writer.Write(row.cells()); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteDepartments writes the department rollup section
func (e *CSVExporter) WriteDepartments(w io.Writer, rollups []stats.DepartmentRollup) error {
	writer := csv.NewWriter(w)
	writer.Comma = e.options.Delimiter
	writer.UseCRLF = e.options.UseCRLF

	if e.options.IncludeHeader {
		if err := writer.Write([]string{"Department", "Average Trust Score", "Projects"}); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for _, rollup := range rollups {
		record := []string{
			rollup.Department,
			fmt.Sprintf("%d", rollup.AverageTrustScore),
			fmt.Sprintf("%d", rollup.ProjectCount),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
