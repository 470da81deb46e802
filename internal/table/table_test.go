package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("Should align rows to the header width", func(t *testing.T) {
		tb := New([]string{"A", "B", "C"}, [][]Value{
			{"x"},
			{"x", "y", "z", "лишнее"},
			nil,
		})
		require.Equal(t, 3, tb.NumRows())
		assert.Equal(t, []Value{"x", nil, nil}, tb.Row(0))
		assert.Equal(t, []Value{"x", "y", "z"}, tb.Row(1))
		assert.Equal(t, []Value{nil, nil, nil}, tb.Row(2))
	})

	t.Run("Should not share the column slice with the caller", func(t *testing.T) {
		cols := []string{"A", "B"}
		tb := New(cols, nil)
		cols[0] = "Z"
		assert.Equal(t, []string{"A", "B"}, tb.Columns())

		got := tb.Columns()
		got[1] = "Z"
		assert.Equal(t, []string{"A", "B"}, tb.Columns())
	})
}

func TestTable_Lookup(t *testing.T) {
	tb := New([]string{"Player", "Goals"}, [][]Value{
		{"Messi", 10.0},
		{"Pele", nil},
	})

	t.Run("Should find columns by name", func(t *testing.T) {
		assert.Equal(t, 0, tb.ColumnIndex("Player"))
		assert.Equal(t, 1, tb.ColumnIndex("Goals"))
		assert.Equal(t, -1, tb.ColumnIndex("Assists"))
		assert.True(t, tb.HasColumn("Goals"))
		assert.False(t, tb.HasColumn("goals"))
	})

	t.Run("Should read cells by row and column name", func(t *testing.T) {
		v, err := tb.Cell(0, "Goals")
		require.NoError(t, err)
		assert.Equal(t, 10.0, v)

		v, err = tb.Cell(1, "Goals")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("Should report unknown column on cell access", func(t *testing.T) {
		_, err := tb.Cell(0, "Assists")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "не найдена")
	})
}

func TestTable_WithColumn(t *testing.T) {
	base := New([]string{"A"}, [][]Value{{"x"}, {"y"}})

	t.Run("Should append the column without touching the original", func(t *testing.T) {
		nt, err := base.WithColumn("B", []Value{1.0, 2.0})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, nt.Columns())
		assert.Equal(t, []Value{"x", 1.0}, nt.Row(0))
		assert.Equal(t, []Value{"y", 2.0}, nt.Row(1))

		assert.Equal(t, []string{"A"}, base.Columns())
		assert.Equal(t, []Value{"x"}, base.Row(0))
	})

	t.Run("Should reject duplicate column name", func(t *testing.T) {
		_, err := base.WithColumn("A", []Value{nil, nil})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "уже существует")
	})

	t.Run("Should reject value count mismatch", func(t *testing.T) {
		_, err := base.WithColumn("B", []Value{1.0})
		require.Error(t, err)
	})
}

func TestTable_Rename(t *testing.T) {
	t.Run("Should rename existing column in place", func(t *testing.T) {
		tb := New([]string{"Player_SC", "Goals"}, nil)
		assert.True(t, tb.Rename("Player_SC", "Player"))
		assert.Equal(t, []string{"Player", "Goals"}, tb.Columns())
	})

	t.Run("Should report missing column", func(t *testing.T) {
		tb := New([]string{"A"}, nil)
		assert.False(t, tb.Rename("B", "C"))
		assert.Equal(t, []string{"A"}, tb.Columns())
	})
}

func TestTable_Head(t *testing.T) {
	tb := New([]string{"A"}, [][]Value{{1.0}, {2.0}, {3.0}})

	t.Run("Should take the first n rows", func(t *testing.T) {
		h := tb.Head(2)
		require.Equal(t, 2, h.NumRows())
		assert.Equal(t, []Value{1.0}, h.Row(0))
		assert.Equal(t, []Value{2.0}, h.Row(1))
	})

	t.Run("Should cap n at the row count", func(t *testing.T) {
		assert.Equal(t, 3, tb.Head(100).NumRows())
	})
}

func TestCellString(t *testing.T) {
	t.Run("Should render cell values the way exports expect", func(t *testing.T) {
		assert.Equal(t, "", CellString(nil))
		assert.Equal(t, "Pele", CellString("Pele"))
		assert.Equal(t, "1.5", CellString(1.5))
		assert.Equal(t, "2", CellString(2.0))
		assert.Equal(t, "true", CellString(true))
		assert.Equal(t, "7", CellString(7))
	})
}
