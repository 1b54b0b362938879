package catalog

import (
	"strings"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func reportSnapshot() *Snapshot {
	return NewSnapshot("1.0", []Record{
		{OID: 30, DocType: "Protocol", Name: "Late in March", StartDate: date(2025, time.March, 20)},
		{OID: 10, DocType: "Protocol", Name: "Early in March", StartDate: date(2025, time.March, 3)},
		{OID: 20, DocType: "Referral", Name: "Also early March", StartDate: date(2025, time.March, 3)},
		{OID: 40, DocType: "Referral", Name: "Ends in March", StartDate: date(2024, time.May, 1), EndDate: datePtr(2025, time.March, 31)},
		{OID: 50, DocType: "Protocol", Name: "April starter", StartDate: date(2025, time.April, 10)},
		{OID: 60, DocType: "Protocol", Name: "June ender", StartDate: date(2023, time.January, 1), EndDate: datePtr(2025, time.June, 15)},
	})
}

func TestMonthlyReportWindow(t *testing.T) {
	out := MonthlyReport(reportSnapshot(), date(2025, time.March, 1))

	if !strings.Contains(out, "March 2025") {
		t.Errorf("missing month header:\n%s", out)
	}
	for _, want := range []string{"Early in March", "Late in March", "Also early March", "Ends in March"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q:\n%s", want, out)
		}
	}
	for _, absent := range []string{"April starter", "June ender"} {
		if strings.Contains(out, absent) {
			t.Errorf("record outside window leaked: %q", absent)
		}
	}
}

func TestMonthlyReportOrdering(t *testing.T) {
	out := MonthlyReport(reportSnapshot(), date(2025, time.March, 1))

	// Dates ascending, OID ascending within a date.
	early := strings.Index(out, "10 — Early in March")
	sameDay := strings.Index(out, "20 — Also early March")
	late := strings.Index(out, "30 — Late in March")
	if early == -1 || sameDay == -1 || late == -1 {
		t.Fatalf("expected entries missing:\n%s", out)
	}
	if !(early < sameDay && sameDay < late) {
		t.Errorf("wrong ordering:\n%s", out)
	}
}

func TestMonthlyReportSections(t *testing.T) {
	out := MonthlyReport(reportSnapshot(), date(2025, time.March, 1))

	starts := strings.Index(out, "Registration starts:")
	ends := strings.Index(out, "Registration ends:")
	if starts == -1 || ends == -1 || starts > ends {
		t.Fatalf("missing or misordered sections:\n%s", out)
	}
	if i := strings.Index(out, "Ends in March"); i < ends {
		t.Error("termination listed outside the ends section")
	}
}

func TestQuarterlyReportCoversWholeQuarter(t *testing.T) {
	out := QuarterlyReport(reportSnapshot(), date(2025, time.April, 1))

	if !strings.Contains(out, "Q2 2025") {
		t.Errorf("missing quarter header:\n%s", out)
	}
	if !strings.Contains(out, "April starter") {
		t.Error("missing April registration")
	}
	if !strings.Contains(out, "June ender") {
		t.Error("missing June termination")
	}
	if strings.Contains(out, "Early in March") {
		t.Error("first-quarter record leaked into Q2 report")
	}
}

func TestReportEmptySections(t *testing.T) {
	snap := NewSnapshot("1.0", nil)
	out := MonthlyReport(snap, date(2025, time.March, 1))
	if strings.Count(out, "none") != 2 {
		t.Errorf("empty report should mark both sections empty:\n%s", out)
	}
}
