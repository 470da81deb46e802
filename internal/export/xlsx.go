package export

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/ryabkov82/dataset-merger/internal/table"
)

// Параметры выгрузки объединенной таблицы.
const (
	SheetName       = "Merged"
	DefaultFileName = "merged_players.xlsx"
	ContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const (
	// Количество строк, по которым оценивается ширина колонок.
	sampleRows  = 1000
	maxColWidth = 80
)

// XLSX записывает таблицу в книгу xlsx с единственным листом Merged.
func XLSX(t *table.Table, w io.Writer) error {
	f, err := buildWorkbook(t)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("ошибка сохранения файла: %v", err)
	}
	return nil
}

// XLSXFile сохраняет таблицу в файл на диске.
func XLSXFile(t *table.Table, path string) error {
	f, err := buildWorkbook(t)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("ошибка сохранения файла: %v", err)
	}
	return nil
}

func buildWorkbook(t *table.Table) (*excelize.File, error) {
	f := excelize.NewFile()
	base := f.GetSheetList()[0]

	if _, err := f.NewSheet(SheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("ошибка создания листа: %v", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("ошибка создания StreamWriter: %v", err)
	}

	for i, width := range colWidths(t) {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("ошибка установки ширины колонки: %v", err)
		}
	}

	header := make([]interface{}, t.NumCols())
	for i, name := range t.Columns() {
		header[i] = name
	}
	cell, _ := excelize.CoordinatesToCellName(1, 1)
	if err := sw.SetRow(cell, header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("ошибка записи заголовков: %v", err)
	}

	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		rowData := make([]interface{}, len(row))
		for j, v := range row {
			rowData[j] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, rowData); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("ошибка записи строки: %v", err)
		}
	}
	if err := sw.Flush(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("ошибка финального flush: %v", err)
	}
	_ = f.DeleteSheet(base)
	return f, nil
}

// colWidths оценивает ширину колонок по заголовку и образцу строк.
func colWidths(t *table.Table) []float64 {
	widths := make([]float64, t.NumCols())
	for i, name := range t.Columns() {
		widths[i] = float64(utf8.RuneCountInString(name))
	}
	n := t.NumRows()
	if n > sampleRows {
		n = sampleRows
	}
	for i := 0; i < n; i++ {
		for j, v := range t.Row(i) {
			if l := float64(utf8.RuneCountInString(table.CellString(v))); l > widths[j] {
				widths[j] = l
			}
		}
	}
	for i := range widths {
		widths[i] += 2
		if widths[i] > maxColWidth {
			widths[i] = maxColWidth
		}
	}
	return widths
}
