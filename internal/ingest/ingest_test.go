package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ryabkov82/dataset-merger/internal/table"
)

func openCSV(t *testing.T, name, content string) *File {
	t.Helper()
	f, err := Open(name, strings.NewReader(content))
	require.NoError(t, err)
	return f
}

func TestCSV(t *testing.T) {
	t.Run("Should infer column types from values", func(t *testing.T) {
		f := openCSV(t, "players.csv", "Player,Goals,Active,Note\nMessi,10,True,hello\nPele,,False,world\nJosé,7.5,True,\n")
		tb, err := f.Table("")
		require.NoError(t, err)
		assert.Equal(t, []string{"Player", "Goals", "Active", "Note"}, tb.Columns())
		require.Equal(t, 3, tb.NumRows())
		assert.Equal(t, []table.Value{"Messi", 10.0, true, "hello"}, tb.Row(0))
		assert.Equal(t, []table.Value{"Pele", nil, false, "world"}, tb.Row(1))
		assert.Equal(t, []table.Value{"José", 7.5, true, nil}, tb.Row(2))
	})

	t.Run("Should keep the whole column textual when one value is not numeric", func(t *testing.T) {
		f := openCSV(t, "mixed.csv", "v\n1\nx\n2\n")
		tb, err := f.Table("")
		require.NoError(t, err)
		assert.Equal(t, []table.Value{"1"}, tb.Row(0))
		assert.Equal(t, []table.Value{"x"}, tb.Row(1))
	})

	t.Run("Should treat NaN and NULL spellings as missing", func(t *testing.T) {
		f := openCSV(t, "na.csv", "a,b\nNaN,1\nNULL,2\nn/a,3\n")
		tb, err := f.Table("")
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			assert.Nil(t, tb.Row(i)[0])
		}
		assert.Equal(t, 3.0, tb.Row(2)[1])
	})

	t.Run("Should rename empty and duplicated headers", func(t *testing.T) {
		f := openCSV(t, "dup.csv", "X,,X\n1,2,3\n")
		tb, err := f.Table("")
		require.NoError(t, err)
		assert.Equal(t, []string{"X", "Unnamed: 1", "X.1"}, tb.Columns())
	})

	t.Run("Should widen the header for ragged rows", func(t *testing.T) {
		f := openCSV(t, "ragged.csv", "A,B\n1,2,3\n4\n")
		tb, err := f.Table("")
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "Unnamed: 2"}, tb.Columns())
		assert.Equal(t, []table.Value{1.0, 2.0, 3.0}, tb.Row(0))
		assert.Equal(t, []table.Value{4.0, nil, nil}, tb.Row(1))
	})

	t.Run("Should strip the UTF-8 BOM", func(t *testing.T) {
		f := openCSV(t, "bom.csv", "\uFEFFPlayer\nMessi\n")
		tb, err := f.Table("")
		require.NoError(t, err)
		assert.Equal(t, []string{"Player"}, tb.Columns())
	})

	t.Run("Should decode UTF-16 content by its BOM", func(t *testing.T) {
		enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
		data, _, err := transform.Bytes(enc, []byte("A,B\n1,2\n"))
		require.NoError(t, err)

		f, err := Open("utf16.csv", bytes.NewReader(data))
		require.NoError(t, err)
		tb, err := f.Table("")
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, tb.Columns())
		assert.Equal(t, []table.Value{1.0, 2.0}, tb.Row(0))
	})

	t.Run("Should decode legacy single-byte encodings", func(t *testing.T) {
		// "José" в windows-1252
		data := append([]byte("Name\nJos"), 0xE9, '\n')
		f, err := Open("legacy.csv", bytes.NewReader(data))
		require.NoError(t, err)
		tb, err := f.Table("")
		require.NoError(t, err)
		assert.Equal(t, "José", tb.Row(0)[0])
	})

	t.Run("Should split tsv files by tab", func(t *testing.T) {
		f := openCSV(t, "stats.tsv", "Player\tGoals\nMessi\t10\n")
		tb, err := f.Table("")
		require.NoError(t, err)
		assert.Equal(t, []string{"Player", "Goals"}, tb.Columns())
		assert.Equal(t, []table.Value{"Messi", 10.0}, tb.Row(0))
	})

	t.Run("Should sniff the delimiter of txt files", func(t *testing.T) {
		f := openCSV(t, "semi.txt", "Player;Goals\nMessi;10\n")
		tb, err := f.Table("")
		require.NoError(t, err)
		assert.Equal(t, []string{"Player", "Goals"}, tb.Columns())
		assert.Equal(t, []table.Value{"Messi", 10.0}, tb.Row(0))
	})

	t.Run("Should report empty files", func(t *testing.T) {
		f := openCSV(t, "empty.csv", "")
		_, err := f.Table("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "пустой")
	})
}

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet("Stats")
	require.NoError(t, err)

	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Default"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "first"))

	cells := map[string]interface{}{
		"A1": "Player", "B1": "Goals", "C1": "Active", "D1": "When", "E1": "Code",
		"A2": "Messi", "B2": 10.5, "C2": true, "E2": "123",
		"A3": "Pele", "C3": false,
	}
	for ref, v := range cells {
		require.NoError(t, f.SetCellValue("Stats", ref, v))
	}
	// ячейка с датой: число со стилем даты
	st, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Stats", "D2", "D2", st))
	require.NoError(t, f.SetCellValue("Stats", "D2", 45000))

	path := filepath.Join(t.TempDir(), "stats.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestXLSX(t *testing.T) {
	path := writeWorkbook(t)
	f, err := OpenFile(path)
	require.NoError(t, err)

	t.Run("Should list sheets in workbook order", func(t *testing.T) {
		assert.Equal(t, Format("xlsx"), f.Format)
		assert.Equal(t, []string{"Sheet1", "Stats"}, f.Sheets())
	})

	t.Run("Should read the first sheet by default", func(t *testing.T) {
		tb, err := f.Table("")
		require.NoError(t, err)
		assert.Equal(t, []string{"Default"}, tb.Columns())
		assert.Equal(t, []table.Value{"first"}, tb.Row(0))
	})

	t.Run("Should restore cell types from the named sheet", func(t *testing.T) {
		tb, err := f.Table("Stats")
		require.NoError(t, err)
		assert.Equal(t, []string{"Player", "Goals", "Active", "When", "Code"}, tb.Columns())
		require.Equal(t, 2, tb.NumRows())

		assert.Equal(t, "Messi", tb.Row(0)[0])
		assert.Equal(t, 10.5, tb.Row(0)[1])
		assert.Equal(t, true, tb.Row(0)[2])
		// дата приходит отформатированной строкой, не числом
		assert.IsType(t, "", tb.Row(0)[3])
		// текстовая ячейка с цифрами остается текстом
		assert.Equal(t, "123", tb.Row(0)[4])

		assert.Equal(t, []table.Value{"Pele", nil, false, nil, nil}, tb.Row(1))
	})

	t.Run("Should reject unknown sheet names", func(t *testing.T) {
		_, err := f.Table("Нет такого")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "не найден")
	})
}

func TestDetectFormat(t *testing.T) {
	t.Run("Should trust known extensions", func(t *testing.T) {
		for _, name := range []string{"data.csv", "data.tsv", "data.txt"} {
			format, err := detectFormat(name, nil)
			require.NoError(t, err)
			assert.Equal(t, FormatCSV, format, name)
		}
		for _, name := range []string{"Data.XLSX", "data.xlsm", "form.xltx", "form.xltm"} {
			format, err := detectFormat(name, nil)
			require.NoError(t, err)
			assert.Equal(t, FormatXLSX, format, name)
		}
	})

	t.Run("Should explain that xls is not supported", func(t *testing.T) {
		_, err := detectFormat("old.xls", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ".xls")
	})

	t.Run("Should sniff content for unknown extensions", func(t *testing.T) {
		path := writeWorkbook(t)
		data, err := os.ReadFile(path)
		require.NoError(t, err)

		format, err := detectFormat("upload", data)
		require.NoError(t, err)
		assert.Equal(t, FormatXLSX, format)

		format, err = detectFormat("upload", []byte("a,b\n1,2\n"))
		require.NoError(t, err)
		assert.Equal(t, FormatCSV, format)
	})

	t.Run("Should reject unrecognized content", func(t *testing.T) {
		_, err := detectFormat("blob.bin", []byte{0x00, 0x01, 0x02, 0x03})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "неподдерживаемый формат")
	})
}

func TestMangleHeaders(t *testing.T) {
	t.Run("Should keep generated names unique", func(t *testing.T) {
		got := mangleHeaders([]string{"X", "X", "X.1", ""}, 5)
		assert.Equal(t, []string{"X", "X.1", "X.1.1", "Unnamed: 3", "Unnamed: 4"}, got)
	})
}
