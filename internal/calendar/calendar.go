// Package calendar holds the date predicates used to emulate month and
// quarter cadences on top of a daily scheduler tick.
package calendar

import "time"

// MonthStart reports whether t falls on the first day of a month.
func MonthStart(t time.Time) bool {
	return t.Day() == 1
}

// QuarterStart reports whether t falls on the first day of a quarter
// (the 1st of January, April, July, or October). Only these four dates
// count; every other month start is an ordinary month start.
func QuarterStart(t time.Time) bool {
	if t.Day() != 1 {
		return false
	}
	switch t.Month() {
	case time.January, time.April, time.July, time.October:
		return true
	}
	return false
}

// Quarter returns the quarter (1-4) containing t.
func Quarter(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// QuarterMonths returns the three months that make up the given quarter.
func QuarterMonths(quarter int) []time.Month {
	switch quarter {
	case 1:
		return []time.Month{time.January, time.February, time.March}
	case 2:
		return []time.Month{time.April, time.May, time.June}
	case 3:
		return []time.Month{time.July, time.August, time.September}
	case 4:
		return []time.Month{time.October, time.November, time.December}
	}
	return nil
}
