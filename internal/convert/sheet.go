package convert

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"go-pdftools/internal/apperr"
	"go-pdftools/internal/pdf"
)

// SheetName is the worksheet PDF text is written to.
const SheetName = "PDF Data"

// ToExcel writes the text of pdfPath to an xlsx workbook, one line per row
// in the first column.
func ToExcel(pdfPath, outPath string) error {
	lines, err := pdf.TextLines(pdfPath)
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidInput, "unreadable PDF", err)
	}
	if len(lines) == 0 {
		return apperr.New(apperr.CodeInvalidInput, "PDF has no extractable text")
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	for i, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(SheetName, cell, line); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	if err := f.SaveAs(outPath); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
