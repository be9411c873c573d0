package slots

import "time"

// DefaultOffDay is the weekly day with no consultations.
const DefaultOffDay = time.Sunday

// CalendarDay is one entry of the booking date picker.
type CalendarDay struct {
	Date    time.Time
	ISODate string // YYYY-MM-DD
	Weekday string // "MON".."SAT"
	Day     int    // day of month
	IsToday bool
}

// NextBookableDays returns the next n calendar days starting from today
// whose weekday is not the off day. Off days are skipped without counting
// toward n; if today itself is the off day, the window starts on the next
// eligible day.
func NextBookableDays(today time.Time, n int, offDay time.Weekday) []CalendarDay {
	days := make([]CalendarDay, 0, n)
	for i := 0; len(days) < n; i++ {
		d := today.AddDate(0, 0, i)
		if d.Weekday() == offDay {
			continue
		}
		days = append(days, CalendarDay{
			Date:    d,
			ISODate: d.Format("2006-01-02"),
			Weekday: weekdayAbbrev(d.Weekday()),
			Day:     d.Day(),
			IsToday: i == 0,
		})
	}
	return days
}

// Tomorrow returns tomorrow's ISO date, the default selection after a
// successful booking.
func Tomorrow(today time.Time) string {
	return today.AddDate(0, 0, 1).Format("2006-01-02")
}

func weekdayAbbrev(d time.Weekday) string {
	switch d {
	case time.Sunday:
		return "SUN"
	case time.Monday:
		return "MON"
	case time.Tuesday:
		return "TUE"
	case time.Wednesday:
		return "WED"
	case time.Thursday:
		return "THU"
	case time.Friday:
		return "FRI"
	default:
		return "SAT"
	}
}
