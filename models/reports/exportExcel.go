package reports

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	matrixSheetName = "集計マトリクス"
	detailSheetName = "詳細リスト"
	timestampLayout = "2006/1/2 15:04:05"
)

func ExportFileName(period string) string {
	return fmt.Sprintf("返品報告_%s.xlsx", period)
}

// ExportReturnMatrix writes the matrix sheet and the detail sheet. It reads
// nothing but its arguments.
func ExportReturnMatrix(matrix *ReturnMatrix, details []*DetailRow, loc *time.Location) (*excelize.File, error) {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", matrixSheetName); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(detailSheetName); err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	// matrix sheet
	header := []interface{}{"店舗名", "店舗コード"}
	for _, p := range matrix.Products {
		header = append(header, p.Name)
	}
	header = append(header, "合計")
	if err := writeRow(f, matrixSheetName, 1, header); err != nil {
		return nil, err
	}
	if err := styleRow(f, matrixSheetName, 1, len(header), headerStyle); err != nil {
		return nil, err
	}
	rowNo := 2
	for _, row := range matrix.Rows {
		values := []interface{}{row.Store.Name, row.Store.Code}
		for _, qty := range row.Cells {
			values = append(values, qty)
		}
		if row.Total == 0 {
			values = append(values, emptyTotalLabel)
		} else {
			values = append(values, row.Total)
		}
		if err := writeRow(f, matrixSheetName, rowNo, values); err != nil {
			return nil, err
		}
		rowNo++
	}
	totals := []interface{}{"全体総計", "---"}
	for _, t := range matrix.ColumnTotals {
		totals = append(totals, t)
	}
	totals = append(totals, matrix.GrandTotal)
	if err := writeRow(f, matrixSheetName, rowNo, totals); err != nil {
		return nil, err
	}
	if err := styleRow(f, matrixSheetName, rowNo, len(totals), headerStyle); err != nil {
		return nil, err
	}

	// detail sheet
	detailHeader := []interface{}{"店舗名", "店舗コード", "商品名", "数量", "不具合種類", "コメント", "報告日時"}
	if err := writeRow(f, detailSheetName, 1, detailHeader); err != nil {
		return nil, err
	}
	if err := styleRow(f, detailSheetName, 1, len(detailHeader), headerStyle); err != nil {
		return nil, err
	}
	for i, d := range details {
		values := []interface{}{
			d.StoreName,
			d.StoreCode,
			d.ProductName,
			d.Quantity,
			d.Category,
			d.Comment,
			d.ReportedAt.In(loc).Format(timestampLayout),
		}
		if err := writeRow(f, detailSheetName, i+2, values); err != nil {
			return nil, err
		}
	}
	widths := []struct {
		sheet string
		col   string
		width float64
	}{
		{matrixSheetName, "A", 24},
		{detailSheetName, "A", 24},
		{detailSheetName, "F", 40},
		{detailSheetName, "G", 20},
	}
	for _, w := range widths {
		if err := f.SetColWidth(w.sheet, w.col, w.col, w.width); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeRow(f *excelize.File, sheet string, rowNo int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func styleRow(f *excelize.File, sheet string, rowNo int, width int, style int) error {
	first, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(width, rowNo)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}
