package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ryabkov82/dataset-merger/internal/table"
)

// Options управляет шагами нормализации ключей.
type Options struct {
	Lower         bool // приведение к нижнему регистру
	Strip         bool // обрезка пробелов по краям
	RemoveAccents bool // удаление диакритики
}

// Default возвращает настройки по умолчанию: все шаги включены.
func Default() Options {
	return Options{Lower: true, Strip: true, RemoveAccents: true}
}

// String нормализует строку согласно настройкам. Повторы пробельных
// символов всегда сводятся к одному пробелу, а краевые пробелы
// удаляются, независимо от настроек.
func String(s string, opts Options) string {
	if opts.RemoveAccents {
		// NFD-разложение и удаление комбинируемых знаков (категория Mn):
		// "É" -> "E", "ё" -> "е".
		t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
		if out, _, err := transform.String(t, s); err == nil {
			s = out
		}
	}
	if opts.Lower {
		s = strings.ToLower(s)
	}
	if opts.Strip {
		s = strings.TrimSpace(s)
	}
	// Схлопывание пробельных последовательностей заодно убирает их по
	// краям, даже когда Strip выключен.
	return strings.Join(strings.Fields(s), " ")
}

// Value нормализует значение ячейки. Отсутствующее значение возвращается
// как есть, остальные сначала приводятся к строке.
func Value(v table.Value, opts Options) table.Value {
	if v == nil {
		return nil
	}
	return String(table.CellString(v), opts)
}
