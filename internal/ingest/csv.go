package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ryabkov82/dataset-merger/internal/table"
)

func parseCSV(name string, data []byte, delim rune) (*table.Table, error) {
	text, err := io.ReadAll(decodeText(data))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %v", name, err)
	}
	if delim == 0 {
		delim = sniffDelimiter(text)
	}
	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора CSV %s: %v", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("файл %s пустой", name)
	}

	body := records[1:]
	width := len(records[0])
	for _, rec := range body {
		if len(rec) > width {
			width = len(rec)
		}
	}
	headers := mangleHeaders(records[0], width)

	rows := make([][]table.Value, len(body))
	for i := range rows {
		rows[i] = make([]table.Value, width)
	}
	for c := 0; c < width; c++ {
		fillColumn(rows, body, c)
	}
	return table.New(headers, rows), nil
}

// fillColumn выводит тип колонки по всем ее значениям и заполняет
// ячейки: колонка целиком либо логическая, либо числовая, либо
// текстовая.
func fillColumn(rows [][]table.Value, body [][]string, c int) {
	allBool, allNum, seen := true, true, false
	for _, rec := range body {
		s := field(rec, c)
		if isMissing(s) {
			continue
		}
		seen = true
		if _, ok := parseBool(s); !ok {
			allBool = false
		}
		if _, ok := parseNumber(s); !ok {
			allNum = false
		}
		if !allBool && !allNum {
			break
		}
	}

	for i, rec := range body {
		s := field(rec, c)
		switch {
		case isMissing(s):
			rows[i][c] = nil
		case seen && allBool:
			b, _ := parseBool(s)
			rows[i][c] = b
		case seen && allNum:
			n, _ := parseNumber(s)
			rows[i][c] = n
		default:
			rows[i][c] = s
		}
	}
}

func field(rec []string, c int) string {
	if c < len(rec) {
		return rec[c]
	}
	return ""
}

// sniffDelimiter подбирает разделитель по первой строке: из запятой,
// точки с запятой и табуляции побеждает самый частый символ.
func sniffDelimiter(text []byte) rune {
	line := text
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}
	delim, best := ',', 0
	for _, d := range []byte{',', ';', '\t'} {
		if n := bytes.Count(line, []byte{d}); n > best {
			delim, best = rune(d), n
		}
	}
	return delim
}

// Значения, которые считаются отсутствующими.
var missingValues = map[string]bool{
	"":     true,
	"NaN":  true,
	"nan":  true,
	"NULL": true,
	"null": true,
	"N/A":  true,
	"n/a":  true,
	"NA":   true,
	"#N/A": true,
}

func isMissing(s string) bool {
	return missingValues[strings.TrimSpace(s)]
}

func parseBool(s string) (bool, bool) {
	switch strings.TrimSpace(s) {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	}
	return false, false
}

func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// mangleHeaders готовит имена колонок: пустые имена заменяются на
// "Unnamed: N", повторы получают суффиксы .1, .2 и так далее. Если
// строки данных шире заголовка, список дополняется до width.
func mangleHeaders(raw []string, width int) []string {
	headers := make([]string, 0, width)
	seen := make(map[string]bool, width)
	counts := make(map[string]int)
	for i := 0; i < width; i++ {
		h := ""
		if i < len(raw) {
			h = raw[i]
		}
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for seen[name] {
			counts[h]++
			name = fmt.Sprintf("%s.%d", h, counts[h])
		}
		seen[name] = true
		headers = append(headers, name)
	}
	return headers
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText приводит содержимое к UTF-8: срезает BOM и перекодирует
// файлы в других кодировках.
func decodeText(data []byte) io.Reader {
	switch {
	case bytes.HasPrefix(data, utf8BOM):
		return bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		return transform.NewReader(bytes.NewReader(data), dec)
	case utf8.Valid(data):
		return bytes.NewReader(data)
	default:
		enc, _, _ := charset.DetermineEncoding(data, "text/plain")
		return transform.NewReader(bytes.NewReader(data), enc.NewDecoder())
	}
}
