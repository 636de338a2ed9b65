package export

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"civiclens/portal-backend/internal/stats"
)

// PDFGenerator renders the transparency report as a PDF
type PDFGenerator struct {
	options PDFOptions
}

// PDFOptions configures PDF generation
type PDFOptions struct {
	Title          string   `json:"title"`
	Subtitle       string   `json:"subtitle,omitempty"`
	DateFormat     string   `json:"date_format"`
	HeaderColor    PDFColor `json:"header_color"`
	AlternateRows  bool     `json:"alternate_rows"`
	AlternateColor PDFColor `json:"alternate_color"`
	FontSize       float64  `json:"font_size"`
	TitleFontSize  float64  `json:"title_font_size"`
}

// PDFColor represents an RGB color
type PDFColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// DefaultPDFOptions returns default PDF options
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		Title:          "Public Trust Report",
		DateFormat:     "2006-01-02",
		HeaderColor:    PDFColor{R: 68, G: 114, B: 196},
		AlternateRows:  true,
		AlternateColor: PDFColor{R: 242, G: 242, B: 242},
		FontSize:       9,
		TitleFontSize:  16,
	}
}

// NewPDFGenerator creates a new PDF generator
func NewPDFGenerator(options PDFOptions) *PDFGenerator {
	return &PDFGenerator{options: options}
}

// Write renders the report and streams it to w
func (g *PDFGenerator) Write(w io.Writer, summary *stats.Summary, rows []TrustRow) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	g.addTitle(pdf)
	g.addSummaryBlock(pdf, summary)
	g.addProjectTable(pdf, rows)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

func (g *PDFGenerator) addTitle(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Arial", "B", g.options.TitleFontSize)
	pdf.CellFormat(0, 10, g.options.Title, "", 1, "C", false, 0, "")

	if g.options.Subtitle != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, g.options.Subtitle, "", 1, "C", false, 0, "")
	}

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(120, 120, 120)
	generated := fmt.Sprintf("Generated %s", time.Now().Format(g.options.DateFormat))
	pdf.CellFormat(0, 6, generated, "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)
}

func (g *PDFGenerator) addSummaryBlock(pdf *gofpdf.Fpdf, summary *stats.Summary) {
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, "Overview", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", g.options.FontSize)
	lines := []string{
		fmt.Sprintf("Projects tracked: %d", summary.TotalProjects),
		fmt.Sprintf("Citizen reports: %d", summary.TotalReports),
		fmt.Sprintf("Average trust score: %d", summary.AverageTrustScore),
		fmt.Sprintf("High delay-risk projects: %d", summary.HighRiskCount),
		fmt.Sprintf("Discrepancy alerts: %d", len(summary.DiscrepancyAlerts)),
	}
	for _, line := range lines {
		pdf.CellFormat(0, 5.5, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func (g *PDFGenerator) addProjectTable(pdf *gofpdf.Fpdf, rows []TrustRow) {
	widths := []float64{58, 32, 24, 18, 24, 12, 20, 22, 20, 20}

	pdf.SetFont("Arial", "B", g.options.FontSize)
	pdf.SetFillColor(g.options.HeaderColor.R, g.options.HeaderColor.G, g.options.HeaderColor.B)
	pdf.SetTextColor(255, 255, 255)
	for i, label := range trustColumns {
		pdf.CellFormat(widths[i], 7, label, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", g.options.FontSize)
	pdf.SetTextColor(0, 0, 0)
	for i, row := range rows {
		fill := g.options.AlternateRows && i%2 == 1
		if fill {
			pdf.SetFillColor(g.options.AlternateColor.R, g.options.AlternateColor.G, g.options.AlternateColor.B)
		}
		for j, cell := range row.cells() {
			align := "L"
			if j >= 3 && j != 6 && j != 9 {
				align = "R"
			}
			pdf.CellFormat(widths[j], 6, cell, "1", 0, align, fill, 0, "")
		}
		pdf.Ln(-1)
	}
}
