package key

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ryabkov82/dataset-merger/internal/normalize"
	"github.com/ryabkov82/dataset-merger/internal/table"
)

const (
	// соединитель имен и суффикс синтетической ключевой колонки
	joinSep    = "_&_"
	normSuffix = "__norm"
)

// Build добавляет к таблице синтетическую ключевую колонку: значения
// выбранных колонок приводятся к строке, склеиваются через пробел и
// нормализуются. Возвращается новая таблица и имя добавленной колонки,
// исходные колонки не изменяются.
func Build(t *table.Table, cols []string, opts normalize.Options) (*table.Table, string, error) {
	if len(cols) == 0 {
		return nil, "", errors.New("не выбраны ключевые колонки")
	}
	idx := make([]int, len(cols))
	for i, c := range cols {
		j := t.ColumnIndex(c)
		if j < 0 {
			return nil, "", fmt.Errorf("колонка %q не найдена", c)
		}
		idx[i] = j
	}

	name := strings.Join(cols, joinSep) + normSuffix
	values := make([]table.Value, t.NumRows())
	parts := make([]string, len(idx))
	for r := 0; r < t.NumRows(); r++ {
		row := t.Row(r)
		for i, j := range idx {
			parts[i] = table.CellString(row[j])
		}
		values[r] = normalize.String(strings.Join(parts, " "), opts)
	}

	nt, err := t.WithColumn(name, values)
	if err != nil {
		return nil, "", err
	}
	return nt, name, nil
}
