// Package report renders release digests to Excel workbooks.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"stockwatch/internal/schedule"
)

const sheetName = "Upcoming Releases"

var headers = []string{"Code", "Name", "Category", "Release Date", "Days Until", "Detail URL"}

// WriteDigest writes the upcoming-release digest to an .xlsx file. Rows
// arrive already sorted by the scheduler.
func WriteDigest(path, title string, upcoming []schedule.UpcomingRelease) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	if err := f.SetCellValue(sheetName, "A1", title); err != nil {
		return fmt.Errorf("failed to write title: %w", err)
	}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 2)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, item := range upcoming {
		released := ""
		if item.Product.ReleasedAt != nil {
			released = item.Product.ReleasedAt.Format("2006-01-02")
		}
		values := []interface{}{
			item.Product.Code,
			item.Product.Name,
			item.Product.Category,
			released,
			item.DaysUntil,
			item.Product.DetailURL,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+3)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row+1, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
