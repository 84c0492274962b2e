// internal/domain/recurrence/recurrence.go
package recurrence

import (
	"strings"
	"time"
)

// Type is the recurrence kind of a transaction series.
type Type string

const (
	TypeWeekly  Type = "weekly"
	TypeMonthly Type = "monthly"
	TypeYearly  Type = "yearly"
	TypeCustom  Type = "custom" // interval counted in days
	TypeNone    Type = "none"   // one-off
)

// ParseType maps a stored recurrence string to a Type.
// Anything unrecognized is treated as custom.
func ParseType(s string) Type {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeWeekly:
		return TypeWeekly
	case TypeMonthly:
		return TypeMonthly
	case TypeYearly:
		return TypeYearly
	case TypeNone:
		return TypeNone
	default:
		return TypeCustom
	}
}

// AddPeriod returns date advanced by interval periods of the given type.
// Month and year arithmetic follows time.AddDate normalization, so Jan 31 + 1 month lands in March.
func AddPeriod(date time.Time, t Type, interval int) time.Time {
	switch t {
	case TypeWeekly:
		return date.AddDate(0, 0, 7*interval)
	case TypeMonthly:
		return date.AddDate(0, interval, 0)
	case TypeYearly:
		return date.AddDate(interval, 0, 0)
	default:
		return date.AddDate(0, 0, interval)
	}
}

// OccurrencesBetween counts the periods starting at start that fall in the window ending at end.
// The start itself is always occurrence 1 when end is not before it; later steps count only while
// strictly before end.
func OccurrencesBetween(start, end time.Time, t Type, interval int) int {
	if end.Before(start) {
		return 0
	}
	count := 1
	if interval < 1 {
		return count
	}
	for next := AddPeriod(start, t, interval); next.Before(end); next = AddPeriod(next, t, interval) {
		count++
	}
	return count
}
