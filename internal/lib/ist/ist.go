// Package ist содержит календарные функции по индийскому стандартному времени.
// Граница суток IST используется для сброса дневных счетчиков.
package ist

import "time"

const offset = 5*3600 + 30*60

// Location фиксированная зона UTC+5:30 без перехода на летнее время.
var Location = time.FixedZone("IST", offset)

// Date возвращает год, месяц и день момента t в IST.
func Date(t time.Time) (int, time.Month, int) {
	return t.In(Location).Date()
}

// SameDay сообщает, приходятся ли a и b на один календарный день IST.
func SameDay(a, b time.Time) bool {
	ay, am, ad := Date(a)
	by, bm, bd := Date(b)
	return ay == by && am == bm && ad == bd
}

// StartOfDay возвращает полночь IST того дня, на который приходится t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := Date(t)
	return time.Date(y, m, d, 0, 0, 0, 0, Location)
}

// NextReset возвращает момент следующего сброса счетчиков после t.
func NextReset(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// Days возвращает число полных суток между from и to, отрицательный интервал дает 0.
func Days(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(to.Sub(from) / (24 * time.Hour))
}
