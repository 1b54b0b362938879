package calendar

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.Local)
}

func TestMonthStart(t *testing.T) {
	if !MonthStart(date(2025, time.May, 1)) {
		t.Error("2025-05-01 is a month start")
	}
	if MonthStart(date(2025, time.May, 2)) {
		t.Error("2025-05-02 is not a month start")
	}
}

func TestQuarterStart(t *testing.T) {
	starts := []time.Time{
		date(2025, time.January, 1),
		date(2025, time.April, 1),
		date(2025, time.July, 1),
		date(2025, time.October, 1),
	}
	for _, d := range starts {
		if !QuarterStart(d) {
			t.Errorf("%s should be a quarter start", d.Format("2006-01-02"))
		}
	}

	// Month starts that are not quarter starts.
	if QuarterStart(date(2025, time.May, 1)) {
		t.Error("2025-05-01 is not a quarter start")
	}
	// Quarter months, but not day 1.
	if QuarterStart(date(2025, time.April, 2)) {
		t.Error("2025-04-02 is not a quarter start")
	}
}

func TestQuarter(t *testing.T) {
	cases := []struct {
		month time.Month
		want  int
	}{
		{time.January, 1}, {time.March, 1},
		{time.April, 2}, {time.June, 2},
		{time.July, 3}, {time.September, 3},
		{time.October, 4}, {time.December, 4},
	}
	for _, c := range cases {
		if got := Quarter(date(2025, c.month, 15)); got != c.want {
			t.Errorf("Quarter(%s) = %d, want %d", c.month, got, c.want)
		}
	}
}

func TestQuarterMonths(t *testing.T) {
	got := QuarterMonths(2)
	if len(got) != 3 || got[0] != time.April || got[2] != time.June {
		t.Errorf("QuarterMonths(2) = %v", got)
	}
	if QuarterMonths(5) != nil {
		t.Error("invalid quarter should yield nil")
	}
}
