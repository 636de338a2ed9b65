package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"civiclens/portal-backend/internal/stats"
)

// ExcelExporter writes the transparency export as an Excel workbook
type ExcelExporter struct {
	options ExcelOptions
}

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	ProjectSheet    string `json:"project_sheet"`
	DepartmentSheet string `json:"department_sheet"`
	FreezeHeader    bool   `json:"freeze_header"`
	AutoFilter      bool   `json:"auto_filter"`
	HeaderFillColor string `json:"header_fill_color"`
	HeaderFontColor string `json:"header_font_color"`
}

// DefaultExcelOptions returns default Excel export options
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		ProjectSheet:    "Projects",
		DepartmentSheet: "Departments",
		FreezeHeader:    true,
		AutoFilter:      true,
		HeaderFillColor: "4472C4",
		HeaderFontColor: "FFFFFF",
	}
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(options ExcelOptions) *ExcelExporter {
	return &ExcelExporter{options: options}
}

// Write renders both sheets and streams the workbook to w
func (e *ExcelExporter) Write(w io.Writer, rows []TrustRow, rollups []stats.DepartmentRollup) error {
	file := excelize.NewFile()
	defer file.Close()

	file.SetSheetName("Sheet1", e.options.ProjectSheet)
	if _, err := file.NewSheet(e.options.DepartmentSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: e.options.HeaderFontColor},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{e.options.HeaderFillColor}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := e.writeProjectSheet(file, headerStyle, rows); err != nil {
		return err
	}
	if err := e.writeDepartmentSheet(file, headerStyle, rollups); err != nil {
		return err
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (e *ExcelExporter) writeProjectSheet(file *excelize.File, headerStyle int, rows []TrustRow) error {
	sheet := e.options.ProjectSheet

	for col, label := range trustColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := file.SetCellValue(sheet, cell, label); err != nil {
			return fmt.Errorf("failed to write header cell: %w", err)
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(trustColumns), 1)
	if err := file.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range rows {
		values := []interface{}{
			row.Name, row.Department, row.Budget,
			row.OfficialCompletion, row.AIEstimatedCompletion, row.Gap,
			row.DelayRisk, row.CitizenReports, row.TrustScore, row.TrustLevel,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	if e.options.FreezeHeader {
		if err := file.SetPanes(sheet, &excelize.Panes{
			Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze header: %w", err)
		}
	}
	if e.options.AutoFilter && len(rows) > 0 {
		lastCell, _ := excelize.CoordinatesToCellName(len(trustColumns), len(rows)+1)
		if err := file.AutoFilter(sheet, "A1:"+lastCell, nil); err != nil {
			return fmt.Errorf("failed to set auto filter: %w", err)
		}
	}

	return nil
}

func (e *ExcelExporter) writeDepartmentSheet(file *excelize.File, headerStyle int, rollups []stats.DepartmentRollup) error {
	sheet := e.options.DepartmentSheet

	headers := []string{"Department", "Average Trust Score", "Projects"}
	for col, label := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := file.SetCellValue(sheet, cell, label); err != nil {
			return fmt.Errorf("failed to write header cell: %w", err)
		}
	}
	if err := file.SetCellStyle(sheet, "A1", "C1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, rollup := range rollups {
		values := []interface{}{rollup.Department, rollup.AverageTrustScore, rollup.ProjectCount}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	return nil
}
