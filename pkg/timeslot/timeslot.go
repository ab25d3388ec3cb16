package timeslot

import (
	"strings"
	"time"
)

// Day is an uppercase day-of-week name as stored on schedule slots.
type Day string

const (
	Monday    Day = "MONDAY"
	Tuesday   Day = "TUESDAY"
	Wednesday Day = "WEDNESDAY"
	Thursday  Day = "THURSDAY"
	Friday    Day = "FRIDAY"
	Saturday  Day = "SATURDAY"
	Sunday    Day = "SUNDAY"
)

var dayOrder = map[Day]int{
	Monday:    1,
	Tuesday:   2,
	Wednesday: 3,
	Thursday:  4,
	Friday:    5,
	Saturday:  6,
	Sunday:    7,
}

// ParseDay normalises a day name. The second return is false for unknown
// values.
func ParseDay(raw string) (Day, bool) {
	day := Day(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := dayOrder[day]
	return day, ok
}

// Order returns the 1-based Monday-first position of the day. Unknown
// days sort last.
func Order(day Day) int {
	if order, ok := dayOrder[day]; ok {
		return order
	}
	return len(dayOrder) + 1
}

// DayFor maps a calendar date to its day-of-week name. The date is read
// in UTC, matching how slot dates are stored.
func DayFor(date time.Time) Day {
	switch date.UTC().Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// IsValid reports whether value is a well-formed zero-padded HH:MM time
// between 00:00 and 23:59.
func IsValid(value string) bool {
	if len(value) != 5 || value[2] != ':' {
		return false
	}
	for _, i := range [...]int{0, 1, 3, 4} {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	hour := int(value[0]-'0')*10 + int(value[1]-'0')
	minute := int(value[3]-'0')*10 + int(value[4]-'0')
	return hour < 24 && minute < 60
}

// Minutes converts a valid HH:MM string to minutes since midnight.
// Callers validate with IsValid first; malformed input returns 0.
func Minutes(value string) int {
	if !IsValid(value) {
		return 0
	}
	hour := int(value[0]-'0')*10 + int(value[1]-'0')
	minute := int(value[3]-'0')*10 + int(value[4]-'0')
	return hour*60 + minute
}

// Overlaps reports whether two half-open [start, end) intervals intersect.
// Back-to-back slots sharing a boundary do not overlap.
func Overlaps(startA, endA, startB, endB string) bool {
	aStart, aEnd := Minutes(startA), Minutes(endA)
	bStart, bEnd := Minutes(startB), Minutes(endB)
	return max(aStart, bStart) < min(aEnd, bEnd)
}
