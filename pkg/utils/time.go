package utils

import (
	"time"
)

// time.go - утилиты для работы со временем
//
// Назначение:
// Границы торгового дня и форматирование длительностей для журнала
// сделок и предохранителя. Торговый день считается в локальном часовом
// поясе процесса, как и дневные файлы журнала.
//
// Функции:
// - DayStart/DayEnd: границы дня для переданного времени
// - NextMidnight: начало следующего дня (конец дневной паузы)
// - SameDay: принадлежность двух моментов одному дню
// - FormatDuration: человекочитаемая длительность

// DayStart возвращает начало дня (00:00:00) для указанного времени
// в его часовом поясе.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayEnd возвращает конец дня (23:59:59.999999999) для указанного времени.
func DayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// NextMidnight возвращает начало следующего дня.
//
// Используется предохранителем: пауза по дневному лимиту убытка
// действует до следующей полуночи.
func NextMidnight(t time.Time) time.Time {
	return DayStart(t).AddDate(0, 0, 1)
}

// SameDay проверяет, принадлежат ли два момента одному календарному дню.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// LastNDaysDates возвращает даты последних n дней (включая сегодня),
// от новых к старым. Используется при поиске открытой сделки в журнале.
func LastNDaysDates(now time.Time, n int) []time.Time {
	if n <= 0 {
		n = 1
	}
	dates := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		dates = append(dates, DayStart(now.AddDate(0, 0, -i)))
	}
	return dates
}

// FormatDuration форматирует продолжительность в человекочитаемый формат
//
// Примеры:
//   - "45s"
//   - "5m30s"
//   - "2h15m0s"
//   - "77h0m0s" (3 дня 5 часов)
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		if hours > 0 {
			return (time.Duration(days*24+hours) * time.Hour).String()
		}
		return (time.Duration(days*24) * time.Hour).String()
	}

	if hours > 0 {
		if minutes > 0 {
			return (time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute).String()
		}
		return (time.Duration(hours) * time.Hour).String()
	}

	if minutes > 0 {
		if seconds > 0 {
			return (time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second).String()
		}
		return (time.Duration(minutes) * time.Minute).String()
	}

	return (time.Duration(seconds) * time.Second).String()
}
