package appointments

import (
	"fmt"
	"time"
)

const (
	// MaxPerSlot is how many bookings a branch accepts for the same date and time.
	MaxPerSlot = 2

	openDays       = 7
	lookaheadDays  = 10
	slotInterval   = 30 * time.Minute
	firstSlot      = "09:00"
	lastSlot       = "17:30"
	lastSaturday   = "13:00"
	dateLayout     = "2006-01-02"
	dayMonthLayout = "02/01"
)

var dayNames = [...]string{"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"}

// AvailableDate is a bookable day.
type AvailableDate struct {
	Date      string // YYYY-MM-DD
	DayName   string // "Lunes 15/01"
	DayOfWeek time.Weekday
}

// TimeSlots is every bookable start time in a full working day.
var TimeSlots = buildSlots(firstSlot, lastSlot)

func buildSlots(from, to string) []string {
	start, _ := time.Parse("15:04", from)
	end, _ := time.Parse("15:04", to)
	var out []string
	for t := start; !t.After(end); t = t.Add(slotInterval) {
		out = append(out, t.Format("15:04"))
	}
	return out
}

// OpenDates returns the next seven open days starting today, skipping Sundays,
// looking at most ten calendar days ahead.
func OpenDates(now time.Time) []AvailableDate {
	dates := make([]AvailableDate, 0, openDays)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i := 0; i < lookaheadDays && len(dates) < openDays; i++ {
		d := day.AddDate(0, 0, i)
		if d.Weekday() == time.Sunday {
			continue
		}
		dates = append(dates, AvailableDate{
			Date:      d.Format(dateLayout),
			DayName:   fmt.Sprintf("%s %s", dayNames[d.Weekday()], d.Format(dayMonthLayout)),
			DayOfWeek: d.Weekday(),
		})
	}
	return dates
}

// FilterSlots returns nothing on Sundays. Otherwise it drops full slots, slots already past when date is today, slots after
// closing (13:00 on Saturdays) and slots too late for durationMinutes of work to end
// by the close of the last half hour.
func FilterSlots(date string, booked map[string]int, durationMinutes int, now time.Time) []string {
	day, err := time.ParseInLocation(dateLayout, date, now.Location())
	if err != nil {
		return append([]string{}, TimeSlots...)
	}
	if day.Weekday() == time.Sunday {
		return nil
	}
	closing := lastSlot
	if day.Weekday() == time.Saturday {
		closing = lastSaturday
	}
	closeAt, _ := time.Parse("15:04", closing)
	closeAt = closeAt.Add(slotInterval)
	work := time.Duration(durationMinutes) * time.Minute

	today := now.Format(dateLayout) == date
	current := now.Format("15:04")

	out := make([]string, 0, len(TimeSlots))
	for _, slot := range TimeSlots {
		if booked[slot] >= MaxPerSlot {
			continue
		}
		if today && slot <= current {
			continue
		}
		if slot > closing {
			continue
		}
		start, _ := time.Parse("15:04", slot)
		if start.Add(work).After(closeAt) {
			continue
		}
		out = append(out, slot)
	}
	return out
}

// DayLabel formats a YYYY-MM-DD date as "Lunes 15/01". Unparseable input is returned as is.
func DayLabel(date string) string {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%s %s", dayNames[d.Weekday()], d.Format(dayMonthLayout))
}

// LongDate formats a YYYY-MM-DD date as "Lunes 15/01/2026" for summaries.
func LongDate(date string) string {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%s %s", dayNames[d.Weekday()], d.Format("02/01/2006"))
}
