// Package export は治験一覧をスプレッドシート形式で書き出す。
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/hitoshi/trialman/internal/model"
)

// SheetName は出力するワークシート名。
const SheetName = "Trials"

// ContentType はxlsxファイルのMIMEタイプ。
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []string{
	"ID", "Trial Name", "Description", "Start Date", "End Date",
	"Status", "Created By", "Created At", "Updated At",
}

// WriteTrials は治験一覧を1行1件のxlsxとしてwに書き出す。
// 並び順は引数の順序を維持する。
func WriteTrials(w io.Writer, trials []model.TrialWithCreator) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to resolve header cell: %w", err)
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(SheetName, "A1", lastHeader, boldStyle); err != nil {
		return fmt.Errorf("failed to apply header style: %w", err)
	}

	for row, t := range trials {
		values := []any{
			t.ID,
			t.TrialName,
			t.Description,
			t.StartDate.Format("2006-01-02"),
			t.EndDate.Format("2006-01-02"),
			string(t.Status),
			t.CreatorUsername,
			t.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			t.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		cell, err := excelize.CoordinatesToCellName(1, row+2)
		if err != nil {
			return fmt.Errorf("failed to resolve row cell: %w", err)
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write trial row: %w", err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetColWidth(SheetName, "A", lastCol, 20); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}
