package key

// Приоритетный список имен, похожих на короткое имя игрока,
// затем общие варианты. Порядок фиксирован.
var (
	shortNameAliases = []string{
		"Short Name", "ShortName", "Player Short Name",
		"Nome Curto", "Abbrev", "Abbreviated", "NameShort",
	}
	genericAliases = []string{"Player", "Jogador", "Name", "Nome"}
)

// Guess подбирает ключевую колонку по умолчанию для двух списков
// колонок: первый из известных псевдонимов, присутствующий в обоих
// списках, иначе первая общая колонка, иначе пустой результат.
func Guess(cols1, cols2 []string) []string {
	set1 := toSet(cols1)
	set2 := toSet(cols2)
	for _, group := range [][]string{shortNameAliases, genericAliases} {
		for _, c := range group {
			if set1[c] && set2[c] {
				return []string{c}
			}
		}
	}
	for _, c := range cols1 {
		if set2[c] {
			return []string{c}
		}
	}
	return nil
}

func toSet(cols []string) map[string]bool {
	m := make(map[string]bool, len(cols))
	for _, c := range cols {
		m[c] = true
	}
	return m
}
