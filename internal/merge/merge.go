package merge

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ryabkov82/dataset-merger/internal/key"
	"github.com/ryabkov82/dataset-merger/internal/normalize"
	"github.com/ryabkov82/dataset-merger/internal/table"
)

// Mode определяет, какие несопоставленные строки попадают в результат.
type Mode string

const (
	Inner Mode = "inner"
	Left  Mode = "left"
	Right Mode = "right"
	Outer Mode = "outer"
)

// ParseMode разбирает тип объединения из строки.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Inner, Left, Right, Outer:
		return m, nil
	default:
		return "", fmt.Errorf("неизвестный тип объединения: %q", s)
	}
}

// Суффиксы для совпадающих имен неключевых колонок.
const (
	leftSuffix  = "_SC"
	rightSuffix = "_SRC2"
)

// Request описывает операцию объединения двух таблиц.
type Request struct {
	Left, Right *table.Table
	// Ключевые колонки каждой стороны, количество должно совпадать.
	LeftKeys  []string
	RightKeys []string
	How       Mode
	// При Normalize обе стороны получают синтетические нормализованные
	// ключевые колонки, объединение идет по ним.
	Normalize     bool
	NormalizeOpts normalize.Options
}

// Merge выполняет объединение по ключам. Колонки левой таблицы идут
// первыми, затем колонки правой; совпадающие имена неключевых колонок
// получают суффиксы. Строки без пары с другой стороны заполняются nil
// согласно выбранному режиму.
func Merge(req Request) (*table.Table, error) {
	if req.Left == nil || req.Right == nil {
		return nil, errors.New("обе таблицы должны быть загружены")
	}
	if len(req.LeftKeys) == 0 || len(req.RightKeys) == 0 {
		return nil, errors.New("не выбраны ключевые колонки")
	}
	if len(req.LeftKeys) != len(req.RightKeys) {
		return nil, fmt.Errorf("количество ключевых колонок не совпадает: %d и %d",
			len(req.LeftKeys), len(req.RightKeys))
	}
	switch req.How {
	case Inner, Left, Right, Outer:
	default:
		return nil, fmt.Errorf("неизвестный тип объединения: %q", req.How)
	}

	left, right := req.Left, req.Right
	leftKeys, rightKeys := req.LeftKeys, req.RightKeys

	if req.Normalize {
		var (
			lname, rname string
			err          error
		)
		left, lname, err = key.Build(left, leftKeys, req.NormalizeOpts)
		if err != nil {
			return nil, fmt.Errorf("база 1: %w", err)
		}
		right, rname, err = key.Build(right, rightKeys, req.NormalizeOpts)
		if err != nil {
			return nil, fmt.Errorf("база 2: %w", err)
		}
		leftKeys, rightKeys = []string{lname}, []string{rname}
	}

	res, err := join(left, right, leftKeys, rightKeys, req.How)
	if err != nil {
		return nil, err
	}

	// Возврат привычного имени колонки после суффиксов, как в старых
	// выгрузках: Player_SC -> Player.
	if res.HasColumn("Player"+leftSuffix) && !res.HasColumn("Player") {
		res.Rename("Player"+leftSuffix, "Player")
	}
	return res, nil
}

// outCol описывает колонку результата: откуда берется значение и под
// каким именем. Для объединенной ключевой колонки coIdx указывает на
// одноименную колонку правой таблицы.
type outCol struct {
	name     string
	fromLeft bool
	idx      int
	coIdx    int
}

func planColumns(left, right *table.Table, leftKeys, rightKeys []string) []outCol {
	rightPos := make(map[string]int, right.NumCols())
	for i, name := range right.Columns() {
		rightPos[name] = i
	}
	overlap := make(map[string]bool)
	for _, name := range left.Columns() {
		if _, ok := rightPos[name]; ok {
			overlap[name] = true
		}
	}
	// Ключевые пары с одинаковыми именами на одинаковых позициях
	// складываются в одну колонку результата.
	coalesced := make(map[string]bool, len(leftKeys))
	for i := range leftKeys {
		if leftKeys[i] == rightKeys[i] {
			coalesced[leftKeys[i]] = true
		}
	}

	plan := make([]outCol, 0, left.NumCols()+right.NumCols())
	for i, name := range left.Columns() {
		oc := outCol{name: name, fromLeft: true, idx: i, coIdx: -1}
		switch {
		case coalesced[name]:
			oc.coIdx = rightPos[name]
		case overlap[name]:
			oc.name = name + leftSuffix
		}
		plan = append(plan, oc)
	}
	for i, name := range right.Columns() {
		if coalesced[name] {
			continue
		}
		oc := outCol{name: name, fromLeft: false, idx: i, coIdx: -1}
		if overlap[name] {
			oc.name = name + rightSuffix
		}
		plan = append(plan, oc)
	}
	return plan
}

func emitRow(plan []outCol, leftRow, rightRow []table.Value) []table.Value {
	row := make([]table.Value, len(plan))
	for i, c := range plan {
		switch {
		case c.fromLeft && leftRow != nil:
			row[i] = leftRow[c.idx]
		case c.fromLeft && c.coIdx >= 0 && rightRow != nil:
			// объединенная ключевая колонка берет значение справа
			row[i] = rightRow[c.coIdx]
		case !c.fromLeft && rightRow != nil:
			row[i] = rightRow[c.idx]
		}
	}
	return row
}

func keyIndexes(t *table.Table, names []string) ([]int, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		j := t.ColumnIndex(n)
		if j < 0 {
			return nil, fmt.Errorf("ключевая колонка %q не найдена", n)
		}
		idx[i] = j
	}
	return idx, nil
}

// rowKey собирает составной ключ строки. Каждая часть кодируется как
// тег типа, длина и само значение, поэтому разные наборы значений
// никогда не склеиваются в один ключ. Второй результат false, если в
// ключе есть отсутствующее значение - такие строки ни с чем не
// сопоставляются.
func rowKey(row []table.Value, idx []int) (string, bool) {
	var b strings.Builder
	for _, i := range idx {
		var tag byte
		var val string
		switch v := row[i].(type) {
		case nil:
			return "", false
		case string:
			tag, val = 's', v
		case float64:
			tag, val = 'f', strconv.FormatFloat(v, 'g', -1, 64)
		case bool:
			tag, val = 'b', strconv.FormatBool(v)
		default:
			tag, val = 'v', table.CellString(v)
		}
		b.WriteByte(tag)
		b.WriteString(strconv.Itoa(len(val)))
		b.WriteByte(':')
		b.WriteString(val)
	}
	return b.String(), true
}

func buildIndex(t *table.Table, keyIdx []int) map[string][]int {
	index := make(map[string][]int, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		if k, ok := rowKey(t.Row(i), keyIdx); ok {
			index[k] = append(index[k], i)
		}
	}
	return index
}

func join(left, right *table.Table, leftKeys, rightKeys []string, how Mode) (*table.Table, error) {
	lIdx, err := keyIndexes(left, leftKeys)
	if err != nil {
		return nil, fmt.Errorf("база 1: %w", err)
	}
	rIdx, err := keyIndexes(right, rightKeys)
	if err != nil {
		return nil, fmt.Errorf("база 2: %w", err)
	}

	plan := planColumns(left, right, leftKeys, rightKeys)
	names := make([]string, len(plan))
	for i, c := range plan {
		names[i] = c.name
	}
	res := table.New(names, nil)

	if how == Right {
		// зеркальный проход по правой таблице, порядок строк правой
		// стороны сохраняется
		index := buildIndex(left, lIdx)
		for ri := 0; ri < right.NumRows(); ri++ {
			var matches []int
			if k, ok := rowKey(right.Row(ri), rIdx); ok {
				matches = index[k]
			}
			if len(matches) == 0 {
				res.AppendRow(emitRow(plan, nil, right.Row(ri)))
				continue
			}
			for _, li := range matches {
				res.AppendRow(emitRow(plan, left.Row(li), right.Row(ri)))
			}
		}
		return res, nil
	}

	index := buildIndex(right, rIdx)
	matched := make([]bool, right.NumRows())
	for li := 0; li < left.NumRows(); li++ {
		var matches []int
		if k, ok := rowKey(left.Row(li), lIdx); ok {
			matches = index[k]
		}
		if len(matches) == 0 {
			if how == Inner {
				continue
			}
			res.AppendRow(emitRow(plan, left.Row(li), nil))
			continue
		}
		for _, ri := range matches {
			matched[ri] = true
			res.AppendRow(emitRow(plan, left.Row(li), right.Row(ri)))
		}
	}
	if how == Outer {
		for ri := 0; ri < right.NumRows(); ri++ {
			if !matched[ri] {
				res.AppendRow(emitRow(plan, nil, right.Row(ri)))
			}
		}
	}
	return res, nil
}
