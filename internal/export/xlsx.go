package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"psp.com/arbitro-quiz/internal/quiz"
)

// SheetName is the worksheet holding the exported table.
const SheetName = "Preguntas"

// WriteXLSX saves the table as a workbook at path.
func WriteXLSX(path string, recs []quiz.AnswerRecord) error {
	header, rows := Table(recs)
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	if err := setRow(f, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, n int, values []string) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	return f.SetSheetRow(SheetName, cell, &cells)
}
