package appointments

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const longDateLayout = "Monday, January 2, 2006"

func formatDate(date, layout string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format(layout)
}

// formatAvailabilityTable renders open slots as a markdown table, one
// row per date.
func formatAvailabilityTable(availability []AvailabilitySlot) string {
	if len(availability) == 0 {
		return "No available slots found."
	}
	var b strings.Builder
	b.WriteString("| Date | Available Times |\n| ---- | --------------- |")
	for _, slot := range availability {
		fmt.Fprintf(&b, "\n| %s | %s |", formatDate(slot.Date, longDateLayout), strings.Join(slot.Times, " | "))
	}
	return b.String()
}

// formatAppointmentsTable renders bookings sorted by date then time.
// The doctor name is resolved through lookup so callers can pass
// appointments from mixed doctors.
func formatAppointmentsTable(appointments []Appointment, doctorName func(id string) string) string {
	if len(appointments) == 0 {
		return "No appointments found."
	}
	sorted := append([]Appointment(nil), appointments...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].Time < sorted[j].Time
	})

	var b strings.Builder
	b.WriteString("| ID | Date | Time | Doctor | Patient | Reason |\n| -- | ---- | ---- | ------ | ------- | ------ |")
	for _, apt := range sorted {
		name := doctorName(apt.DoctorID)
		if name == "" {
			name = "Unknown Doctor"
		}
		fmt.Fprintf(&b, "\n| %s | %s | %s | %s | %s | %s |",
			apt.ID, formatDate(apt.Date, longDateLayout), apt.Time, name, apt.PatientName, apt.Reason)
	}
	return b.String()
}

// formatMonthCalendar renders a month-grid view of availability with a
// per-date slot list underneath, one section per month.
func formatMonthCalendar(availability []AvailabilitySlot, doctorName string) string {
	if len(availability) == 0 {
		return "No available slots found."
	}

	type monthGroup struct {
		year  int
		month time.Month
		slots map[string][]string
	}
	groups := make(map[string]*monthGroup)
	var keys []string
	for _, slot := range availability {
		t, err := time.Parse("2006-01-02", slot.Date)
		if err != nil {
			continue
		}
		key := fmt.Sprintf("%04d-%02d", t.Year(), t.Month())
		g, ok := groups[key]
		if !ok {
			g = &monthGroup{year: t.Year(), month: t.Month(), slots: make(map[string][]string)}
			groups[key] = g
			keys = append(keys, key)
		}
		g.slots[slot.Date] = slot.Times
	}
	sort.Strings(keys)

	var out []string
	for _, key := range keys {
		g := groups[key]
		out = append(out, fmt.Sprintf("### %s %d - %s", g.month, g.year, doctorName))
		out = append(out, "| Sun | Mon | Tue | Wed | Thu | Fri | Sat |")
		out = append(out, "|-----|-----|-----|-----|-----|-----|-----|")

		first := time.Date(g.year, g.month, 1, 0, 0, 0, 0, time.UTC)
		totalDays := first.AddDate(0, 1, -1).Day()
		weekday := int(first.Weekday())

		row := strings.Repeat("|   ", weekday)
		day := 1
		for col := weekday; day <= totalDays; col++ {
			if col == 7 {
				out = append(out, row+"|")
				row = ""
				col = 0
			}
			date := fmt.Sprintf("%04d-%02d-%02d", g.year, g.month, day)
			if _, ok := g.slots[date]; ok {
				row += fmt.Sprintf("| **%d**✓ ", day)
			} else {
				row += fmt.Sprintf("| %d ", day)
			}
			day++
		}
		if row != "" {
			out = append(out, row+"|")
		}

		out = append(out, "\n**Available Time Slots:**")
		dates := make([]string, 0, len(g.slots))
		for d := range g.slots {
			dates = append(dates, d)
		}
		sort.Strings(dates)
		for _, d := range dates {
			out = append(out, fmt.Sprintf("- **%s**: %s", formatDate(d, "Monday, January 2"), strings.Join(g.slots[d], " | ")))
		}
		out = append(out, "\n")
	}
	return strings.Join(out, "\n")
}

// formatCalendar combines the table and month-grid views.
func formatCalendar(availability []AvailabilitySlot, doctorName string) string {
	if len(availability) == 0 {
		return "No available slots found."
	}
	return fmt.Sprintf("## Availability Table\n%s\n\n## Calendar View\n%s",
		formatAvailabilityTable(availability), formatMonthCalendar(availability, doctorName))
}
