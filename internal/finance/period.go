package finance

import "time"

const (
	minYear = 1970
	maxYear = 9999
)

// MonthStart возвращает первое число месяца в UTC.
func MonthStart(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDayOfMonth возвращает последний день месяца в UTC.
func LastDayOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}

// PreviousMonth возвращает первое число предыдущего месяца.
func PreviousMonth(monthStart time.Time) time.Time {
	return monthStart.AddDate(0, -1, 0)
}

// ResolveMonth выбирает целевой месяц: явные year/month или текущий месяц из now.
func ResolveMonth(year, month *int, now time.Time) (time.Time, error) {
	now = now.UTC()
	y, m := now.Year(), int(now.Month())

	if year != nil {
		if *year < minYear || *year > maxYear {
			return time.Time{}, invalid("year", "must be between 1970 and 9999")
		}
		y = *year
	}

	if month != nil {
		if *month < 1 || *month > 12 {
			return time.Time{}, invalid("month", "must be between 1 and 12")
		}
		m = *month
	}

	return MonthStart(y, time.Month(m)), nil
}

// dateOnly отбрасывает время суток.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
