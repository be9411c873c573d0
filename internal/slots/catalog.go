// Package slots holds the fixed time-slot catalog and the calendar math
// behind the booking date picker.
package slots

import (
	"fmt"
	"time"
)

// slotLayout parses catalog labels like "9:30 AM".
const slotLayout = "3:04 PM"

// Catalog is the fixed ordered list of bookable slot labels for a single
// day. Order in the catalog defines chronological order.
var Catalog = []string{
	"9:30 AM",
	"10:00 AM",
	"10:30 AM",
	"11:00 AM",
	"11:30 AM",
	"12:00 PM",
	"12:30 PM",
	"2:00 PM",
	"2:30 PM",
}

// InCatalog reports whether the label is a known slot.
func InCatalog(slot string) bool {
	for _, s := range Catalog {
		if s == slot {
			return true
		}
	}
	return false
}

// ParseLabel parses a catalog label into hour and minute.
func ParseLabel(slot string) (hour, minute int, err error) {
	t, err := time.Parse(slotLayout, slot)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid slot label %q: %w", slot, err)
	}
	return t.Hour(), t.Minute(), nil
}

// StartOnDate returns the slot's start instant on the given day.
func StartOnDate(date time.Time, slot string) (time.Time, error) {
	hour, minute, err := ParseLabel(slot)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location()), nil
}

// FilterSelectable returns the catalog slots a patient may still pick for
// the given date. Slots in the unavailable set are dropped; when the date
// is today, slots whose start is not strictly after now are dropped too.
// A whole-day-unavailable report yields an empty list regardless of the
// slot set.
func FilterSelectable(unavailable []string, wholeDayOff bool, date time.Time, now time.Time) []string {
	if wholeDayOff {
		return []string{}
	}

	taken := make(map[string]struct{}, len(unavailable))
	for _, s := range unavailable {
		taken[s] = struct{}{}
	}

	isToday := sameDay(date, now)
	selectable := make([]string, 0, len(Catalog))
	for _, slot := range Catalog {
		if _, ok := taken[slot]; ok {
			continue
		}
		if isToday {
			start, err := StartOnDate(date, slot)
			if err != nil || !start.After(now) {
				continue
			}
		}
		selectable = append(selectable, slot)
	}
	return selectable
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
