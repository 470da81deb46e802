package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryabkov82/dataset-merger/internal/config"
	"github.com/ryabkov82/dataset-merger/internal/export"
	"github.com/ryabkov82/dataset-merger/internal/ingest"
	"github.com/ryabkov82/dataset-merger/internal/key"
	"github.com/ryabkov82/dataset-merger/internal/merge"
	"github.com/ryabkov82/dataset-merger/internal/table"
)

// mergeOutput - итог работы команды merge в формате JSON на stdout.
type mergeOutput struct {
	Success    bool     `json:"success"`
	OutputFile string   `json:"output_file,omitempty"`
	Error      string   `json:"error,omitempty"`
	Duration   string   `json:"duration"`
	RowCount   int      `json:"row_count,omitempty"`
	ColCount   int      `json:"col_count,omitempty"`
	Keys1      []string `json:"keys1,omitempty"`
	Keys2      []string `json:"keys2,omitempty"`
}

type mergeFlags struct {
	file1, file2   string
	sheet1, sheet2 string
	keys1, keys2   []string
	how            string
	normalize      bool
	out            string
}

// stdout подменяется в тестах.
var stdout io.Writer = os.Stdout

func newMergeCmd() *cobra.Command {
	var flags mergeFlags
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Объединить две таблицы и сохранить результат в xlsx",
		RunE: func(*cobra.Command, []string) error {
			return runMerge(&flags)
		},
	}
	cmd.Flags().StringVar(&flags.file1, "file1", "", "первый файл (CSV или xlsx)")
	cmd.Flags().StringVar(&flags.file2, "file2", "", "второй файл (CSV или xlsx)")
	cmd.Flags().StringVar(&flags.sheet1, "sheet1", "", "лист первого файла, по умолчанию первый")
	cmd.Flags().StringVar(&flags.sheet2, "sheet2", "", "лист второго файла, по умолчанию первый")
	cmd.Flags().StringSliceVar(&flags.keys1, "keys1", nil, "ключевые колонки первого файла")
	cmd.Flags().StringSliceVar(&flags.keys2, "keys2", nil, "ключевые колонки второго файла")
	cmd.Flags().StringVar(&flags.how, "how", "outer", "тип объединения: inner, left, right, outer")
	cmd.Flags().BoolVar(&flags.normalize, "normalize", true, "нормализовать ключи (регистр, акценты, пробелы)")
	cmd.Flags().StringVar(&flags.out, "out", export.DefaultFileName, "результирующий файл")
	_ = cmd.MarkFlagRequired("file1")
	_ = cmd.MarkFlagRequired("file2")
	return cmd
}

func runMerge(flags *mergeFlags) error {
	start := time.Now()
	fail := func(format string, a ...any) error {
		err := fmt.Errorf(format, a...)
		emitJSON(mergeOutput{
			Success:  false,
			Error:    err.Error(),
			Duration: time.Since(start).String(),
		})
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fail("Ошибка конфигурации: %v", err)
	}

	t1, err := loadTable(flags.file1, flags.sheet1)
	if err != nil {
		return fail("Ошибка загрузки базы 1: %v", err)
	}
	t2, err := loadTable(flags.file2, flags.sheet2)
	if err != nil {
		return fail("Ошибка загрузки базы 2: %v", err)
	}

	keys1, keys2 := flags.keys1, flags.keys2
	switch {
	case len(keys1) == 0 && len(keys2) == 0:
		guessed := key.Guess(t1.Columns(), t2.Columns())
		if len(guessed) == 0 {
			return fail("не удалось подобрать общие ключевые колонки, укажите --keys1 и --keys2")
		}
		keys1, keys2 = guessed, guessed
	case len(keys2) == 0:
		keys2 = keys1
	case len(keys1) == 0:
		keys1 = keys2
	}

	how, err := merge.ParseMode(flags.how)
	if err != nil {
		return fail("Ошибка конфигурации: %v", err)
	}

	res, err := merge.Merge(merge.Request{
		Left:          t1,
		Right:         t2,
		LeftKeys:      keys1,
		RightKeys:     keys2,
		How:           how,
		Normalize:     flags.normalize,
		NormalizeOpts: cfg.Merge.NormalizeOptions(),
	})
	if err != nil {
		return fail("Ошибка объединения: %v", err)
	}

	out := filepath.Clean(flags.out)
	if err := export.XLSXFile(res, out); err != nil {
		return fail("Ошибка сохранения: %v", err)
	}

	emitJSON(mergeOutput{
		Success:    true,
		OutputFile: out,
		Duration:   time.Since(start).String(),
		RowCount:   res.NumRows(),
		ColCount:   res.NumCols(),
		Keys1:      keys1,
		Keys2:      keys2,
	})
	return nil
}

func loadTable(path, sheet string) (*table.Table, error) {
	f, err := ingest.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return f.Table(sheet)
}

func emitJSON(out mergeOutput) {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "ошибка вывода JSON: %v\n", err)
	}
}
