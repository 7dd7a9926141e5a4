package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	domain "github.com/bryanwahyu/lifeline-triage/internal/domain/assessment"
)

const sheet = "Assessments"

var header = []string{
	"ID", "Source", "Filename", "Submitted At", "Status",
	"Risk Score", "Risk Category", "Duration (ms)", "Artifact URL",
}

// WriteXLSX streams an xlsx workbook of assessments, newest first, for
// supervisor review outside the tool.
func WriteXLSX(w io.Writer, list []*domain.Assessment) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	for col, h := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, a := range list {
		row := i + 2
		values := []interface{}{
			string(a.ID),
			string(a.Source),
			a.Filename,
			a.SubmittedAt.Format(time.RFC3339),
			string(a.Status),
			a.RiskScore,
			string(a.Category),
			a.DurationMS,
			a.ArtifactURL,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
