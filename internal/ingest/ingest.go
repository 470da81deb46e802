package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ryabkov82/dataset-merger/internal/table"
)

// Format - распознанный формат загруженного файла.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// File - загруженный файл с данными. Исходные байты сохраняются,
// чтобы перечитывать таблицу при смене листа.
type File struct {
	Name   string
	Format Format

	data   []byte
	sheets []string
	// разделитель текстового формата, 0 - подобрать по содержимому
	delim rune
}

// Open читает файл целиком и определяет формат. Для xlsx сразу
// считывается список листов.
func Open(name string, r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %v", name, err)
	}
	format, err := detectFormat(name, data)
	if err != nil {
		return nil, err
	}
	f := &File{Name: name, Format: format, data: data}
	switch format {
	case FormatCSV:
		f.delim = csvDelimiter(name)
	case FormatXLSX:
		if f.sheets, err = listSheets(name, data); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// OpenFile открывает файл с диска.
func OpenFile(path string) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла %s: %v", path, err)
	}
	defer fd.Close()
	return Open(filepath.Base(path), fd)
}

// Sheets возвращает список листов. Для CSV список пустой.
func (f *File) Sheets() []string {
	return append([]string(nil), f.sheets...)
}

// Table разбирает данные в таблицу. Для xlsx пустое имя листа
// означает первый лист, для CSV имя листа игнорируется.
func (f *File) Table(sheet string) (*table.Table, error) {
	switch f.Format {
	case FormatCSV:
		return parseCSV(f.Name, f.data, f.delim)
	case FormatXLSX:
		return parseXLSX(f.Name, f.data, sheet)
	default:
		return nil, fmt.Errorf("неподдерживаемый формат файла: %s", f.Name)
	}
}

// detectFormat определяет формат по расширению, для незнакомых
// расширений - по содержимому.
func detectFormat(name string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FormatXLSX, nil
	case ".xls":
		return "", fmt.Errorf("формат .xls не поддерживается, сохраните %s как .xlsx", name)
	}
	switch m := mimetype.Detect(data); {
	case m.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"):
		return FormatXLSX, nil
	case m.Is("text/csv"), m.Is("text/tab-separated-values"), m.Is("text/plain"):
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("неподдерживаемый формат файла %s (%s)", name, m.String())
	}
}

// csvDelimiter выбирает разделитель по расширению. Для .txt и файлов
// без расширения разделитель подбирается по первой строке данных.
func csvDelimiter(name string) rune {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tsv":
		return '\t'
	case ".csv":
		return ','
	default:
		return 0
	}
}
