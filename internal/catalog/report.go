package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"nsiwatch/internal/calendar"
)

// MonthlyReport lists registration starts and ends falling inside the
// month containing now.
func MonthlyReport(s *Snapshot, now time.Time) string {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, 0)
	title := fmt.Sprintf("📇 Registration report — %s %d", from.Month(), from.Year())
	return report(s, from, to, title)
}

// QuarterlyReport lists registration starts and ends falling inside the
// quarter containing now.
func QuarterlyReport(s *Snapshot, now time.Time) string {
	q := calendar.Quarter(now)
	months := calendar.QuarterMonths(q)
	from := time.Date(now.Year(), months[0], 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 3, 0)
	title := fmt.Sprintf("📇 Registration report — Q%d %d (%s–%s)",
		q, from.Year(), months[0], months[2])
	return report(s, from, to, title)
}

func report(s *Snapshot, from, to time.Time, title string) string {
	var b strings.Builder
	b.WriteString(title)

	b.WriteString("\n\nRegistration starts:\n")
	writeGroups(&b, groupByDate(s, from, to, startDate))

	b.WriteString("\nRegistration ends:\n")
	writeGroups(&b, groupByDate(s, from, to, endDate))

	return b.String()
}

func startDate(r Record) *time.Time { return &r.StartDate }
func endDate(r Record) *time.Time   { return r.EndDate }

type dateGroup struct {
	date    time.Time
	records []Record
}

func groupByDate(s *Snapshot, from, to time.Time, key func(Record) *time.Time) []dateGroup {
	byDate := make(map[time.Time][]Record)
	for _, r := range s.Records() {
		d := key(r)
		if d == nil || d.Before(from) || !d.Before(to) {
			continue
		}
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
		byDate[day] = append(byDate[day], r)
	}

	groups := make([]dateGroup, 0, len(byDate))
	for day, recs := range byDate {
		sort.Slice(recs, func(i, j int) bool { return recs[i].OID < recs[j].OID })
		groups = append(groups, dateGroup{date: day, records: recs})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].date.Before(groups[j].date) })
	return groups
}

func writeGroups(b *strings.Builder, groups []dateGroup) {
	if len(groups) == 0 {
		b.WriteString("none\n")
		return
	}
	for _, g := range groups {
		fmt.Fprintf(b, "%s\n", g.date.Format(recordDateFormat))
		for _, r := range g.records {
			fmt.Fprintf(b, " • %d — %s\n", r.OID, r.Name)
		}
	}
}
