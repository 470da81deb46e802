package ingest

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ryabkov82/dataset-merger/internal/table"
)

func listSheets(name string, data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла %s: %v", name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("в файле %s нет листов", name)
	}
	return sheets, nil
}

func parseXLSX(name string, data []byte, sheet string) (*table.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла %s: %v", name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("в файле %s нет листов", name)
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if !containsSheet(sheets, sheet) {
		return nil, fmt.Errorf("лист %q не найден в файле %s", sheet, name)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения строк из %s: %v", name, err)
	}
	defer rows.Close()

	var rawHeaders []string
	if rows.Next() {
		if rawHeaders, err = rows.Columns(); err != nil {
			return nil, fmt.Errorf("ошибка чтения заголовков: %v", err)
		}
	}
	if len(rawHeaders) == 0 {
		return nil, fmt.Errorf("лист %q файла %s пустой", sheet, name)
	}

	conv := cellConverter{f: f, sheet: sheet, dateStyles: make(map[int]bool)}

	var body [][]table.Value
	width := len(rawHeaders)
	rowInFile := 2
	for rows.Next() {
		stringRow, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения строки: %v", err)
		}
		rowData := make([]table.Value, len(stringRow))
		for i, cellVal := range stringRow {
			rowData[i] = conv.value(i+1, rowInFile, cellVal)
		}
		if len(rowData) > width {
			width = len(rowData)
		}
		body = append(body, rowData)
		rowInFile++
	}

	// хвост из полностью пустых строк не нужен
	for len(body) > 0 && emptyRow(body[len(body)-1]) {
		body = body[:len(body)-1]
	}

	return table.New(mangleHeaders(rawHeaders, width), body), nil
}

func containsSheet(sheets []string, name string) bool {
	for _, s := range sheets {
		if s == name {
			return true
		}
	}
	return false
}

func emptyRow(row []table.Value) bool {
	for _, v := range row {
		if v != nil {
			return false
		}
	}
	return true
}

// cellConverter восстанавливает типы значений по типу ячейки.
// Признак даты определяется по формату стиля и кешируется по styleID.
type cellConverter struct {
	f          *excelize.File
	sheet      string
	dateStyles map[int]bool
}

func (c *cellConverter) value(col, row int, cellVal string) table.Value {
	if cellVal == "" {
		return nil
	}
	cellRef, _ := excelize.CoordinatesToCellName(col, row)
	valType, _ := c.f.GetCellType(c.sheet, cellRef)

	switch valType {
	case excelize.CellTypeBool:
		return cellVal == "1" || strings.ToLower(cellVal) == "true"
	case excelize.CellTypeInlineString, excelize.CellTypeSharedString:
		return cellVal
	case excelize.CellTypeDate:
		return cellVal
	case excelize.CellTypeNumber:
		if n, err := strconv.ParseFloat(cellVal, 64); err == nil {
			return n
		}
		return cellVal
	default:
		// числовые ячейки обычно приходят без явного типа,
		// даты отличаем по формату стиля
		if c.isDateCell(cellRef) {
			return cellVal
		}
		if n, err := strconv.ParseFloat(cellVal, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
			return n
		}
		return cellVal
	}
}

func (c *cellConverter) isDateCell(cellRef string) bool {
	styleID, err := c.f.GetCellStyle(c.sheet, cellRef)
	if err != nil {
		return false
	}
	isDate, ok := c.dateStyles[styleID]
	if !ok {
		style, err := c.f.GetStyle(styleID)
		isDate = err == nil && isDateFormat(style.NumFmt)
		c.dateStyles[styleID] = isDate
	}
	return isDate
}

func isDateFormat(fmtID int) bool {
	switch fmtID {
	case 14, 15, 16, 17, 22, 27, 30, 36, 45, 46, 47:
		return true
	}
	return false
}
