// internal/domain/notification/schedule.go
package notification

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ResolveLocation loads an IANA zone, falling back to UTC for empty or unknown names.
func ResolveLocation(timezone string) *time.Location {
	if strings.TrimSpace(timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// parseClock turns "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return h*60 + m, nil
}

// IsWithinQuietHours reports whether now, seen in timezone, falls inside the [start, end) window.
// start == end means always quiet; start > end is a window crossing midnight.
// Empty or malformed bounds mean no quiet hours.
func IsWithinQuietHours(now time.Time, start, end, timezone string) bool {
	startMin, err := parseClock(start)
	if err != nil {
		return false
	}
	endMin, err := parseClock(end)
	if err != nil {
		return false
	}

	local := now.In(ResolveLocation(timezone))
	current := local.Hour()*60 + local.Minute()

	switch {
	case startMin == endMin:
		return true
	case startMin < endMin:
		return current >= startMin && current < endMin
	default:
		return current >= startMin || current < endMin
	}
}

// IsWeekdayAllowed checks the weekday bit of now in timezone. A NULL or zero mask allows every day.
func IsWeekdayAllowed(now time.Time, mask sql.NullInt32, timezone string) bool {
	if !mask.Valid || mask.Int32 == 0 {
		return true
	}
	weekday := now.In(ResolveLocation(timezone)).Weekday()
	return mask.Int32&(1<<uint(weekday)) != 0
}

// CalculateNextEligibleAt returns when a repeat becomes allowed, or nil when the policy does not repeat.
func CalculateNextEligibleAt(lastNotified time.Time, repeatEveryMinutes sql.NullInt32) *time.Time {
	if !repeatEveryMinutes.Valid || repeatEveryMinutes.Int32 <= 0 {
		return nil
	}
	next := lastNotified.Add(time.Duration(repeatEveryMinutes.Int32) * time.Minute)
	return &next
}

// Decision is the outcome of evaluating a (policy, resource) pair on one tick.
type Decision struct {
	Eligible bool
	Reason   string
}

const (
	ReasonFirstNotification = "first_notification"
	ReasonRepeatDue         = "repeat_due"
	ReasonNoRepeat          = "no_repeat"
	ReasonMaxReached        = "max_occurrences_reached"
	ReasonNotYetEligible    = "not_yet_eligible"
)

// ShouldNotify runs the per-pair state machine: never-notified sends, no-repeat and capped
// pairs stay suppressed for good, and repeats wait for next_eligible_at.
func ShouldNotify(st *State, p *Policy, now time.Time) Decision {
	if st == nil {
		return Decision{Eligible: true, Reason: ReasonFirstNotification}
	}
	if !p.RepeatEveryMinutes.Valid || p.RepeatEveryMinutes.Int32 <= 0 {
		return Decision{Reason: ReasonNoRepeat}
	}
	if p.MaxOccurrences.Valid && st.Occurrences >= int(p.MaxOccurrences.Int32) {
		return Decision{Reason: ReasonMaxReached}
	}
	if st.NextEligibleAt.Valid && now.Before(st.NextEligibleAt.Time) {
		return Decision{Reason: ReasonNotYetEligible}
	}
	return Decision{Eligible: true, Reason: ReasonRepeatDue}
}

// Advance records a successful send on st, or builds the first State when st is nil.
func Advance(st *State, p *Policy, resourceType ResourceType, resourceID uuid.UUID, now time.Time) *State {
	if st == nil {
		st = &State{
			PolicyID:     p.ID,
			ResourceType: resourceType,
			ResourceID:   resourceID,
		}
	}
	st.Occurrences++
	st.LastNotifiedAt = sql.NullTime{Time: now, Valid: true}
	if next := CalculateNextEligibleAt(now, p.RepeatEveryMinutes); next != nil {
		st.NextEligibleAt = sql.NullTime{Time: *next, Valid: true}
	} else {
		st.NextEligibleAt = sql.NullTime{}
	}
	return st
}
