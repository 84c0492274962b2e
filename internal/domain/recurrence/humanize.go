package recurrence

import "fmt"

// HumanizeInterval renders a recurrence as a pt-BR phrase, e.g. "2 semanas" or "1 ano".
// Monthly intervals that are whole years are expressed in years.
func HumanizeInterval(t Type, interval int) string {
	switch t {
	case TypeWeekly:
		return plural(interval, "semana", "semanas")
	case TypeMonthly:
		if interval > 0 && interval%12 == 0 {
			return plural(interval/12, "ano", "anos")
		}
		return plural(interval, "mês", "meses")
	case TypeYearly:
		return plural(interval, "ano", "anos")
	case TypeNone:
		return "sem recorrência"
	default:
		return plural(interval, "dia", "dias")
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
