package table

import (
	"fmt"
	"strconv"
)

// Value - значение ячейки. nil обозначает отсутствующее значение
// (аналог пустой ячейки в исходном файле). После загрузки встречаются
// типы string, float64 и bool.
type Value any

// Table - таблица в памяти: упорядоченный список имен колонок и строки,
// выровненные по позициям. Имена колонок исходных таблиц уникальны,
// за это отвечает загрузка.
type Table struct {
	cols []string
	rows [][]Value
}

// New создает таблицу. Строки короче заголовка дополняются nil,
// лишние значения отбрасываются.
func New(cols []string, rows [][]Value) *Table {
	t := &Table{cols: append([]string(nil), cols...)}
	t.rows = make([][]Value, 0, len(rows))
	for _, row := range rows {
		t.appendRow(row)
	}
	return t
}

func (t *Table) appendRow(row []Value) {
	aligned := make([]Value, len(t.cols))
	copy(aligned, row)
	t.rows = append(t.rows, aligned)
}

// AppendRow добавляет строку, выравнивая ее до ширины заголовка.
func (t *Table) AppendRow(row []Value) {
	t.appendRow(row)
}

// Columns возвращает копию списка имен колонок.
func (t *Table) Columns() []string {
	return append([]string(nil), t.cols...)
}

// NumRows возвращает количество строк.
func (t *Table) NumRows() int { return len(t.rows) }

// NumCols возвращает количество колонок.
func (t *Table) NumCols() int { return len(t.cols) }

// Row возвращает строку по индексу. Слайс принадлежит таблице,
// изменять его нельзя.
func (t *Table) Row(i int) []Value { return t.rows[i] }

// ColumnIndex возвращает позицию колонки или -1, если такой нет.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.cols {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn сообщает, есть ли колонка с таким именем.
func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Cell возвращает значение ячейки по номеру строки и имени колонки.
func (t *Table) Cell(row int, name string) (Value, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("колонка %q не найдена", name)
	}
	return t.rows[row][idx], nil
}

// WithColumn возвращает новую таблицу с добавленной в конец колонкой.
// Исходная таблица не изменяется. Количество значений должно совпадать
// с количеством строк, имя не должно повторять существующее.
func (t *Table) WithColumn(name string, values []Value) (*Table, error) {
	if t.HasColumn(name) {
		return nil, fmt.Errorf("колонка %q уже существует", name)
	}
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("колонка %q: %d значений на %d строк", name, len(values), len(t.rows))
	}
	nt := &Table{
		cols: append(t.Columns(), name),
		rows: make([][]Value, len(t.rows)),
	}
	for i, row := range t.rows {
		nr := make([]Value, len(row)+1)
		copy(nr, row)
		nr[len(row)] = values[i]
		nt.rows[i] = nr
	}
	return nt, nil
}

// Rename переименовывает колонку на месте. Возвращает false,
// если колонки с таким именем нет.
func (t *Table) Rename(oldName, newName string) bool {
	idx := t.ColumnIndex(oldName)
	if idx < 0 {
		return false
	}
	t.cols[idx] = newName
	return true
}

// Head возвращает таблицу из первых n строк (строки общие с исходной).
func (t *Table) Head(n int) *Table {
	if n > len(t.rows) {
		n = len(t.rows)
	}
	return &Table{cols: t.Columns(), rows: t.rows[:n]}
}

// CellString возвращает строковое представление значения ячейки.
// Отсутствующее значение дает пустую строку.
func CellString(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
