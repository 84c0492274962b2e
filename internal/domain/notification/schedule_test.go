package notification

import (
	"database/sql"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 6, 12, hour, minute, 0, 0, time.UTC)
}

func TestIsWithinQuietHours_MidnightCrossingWindow(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "23:00 is quiet", now: at(23, 0), want: true},
		{name: "01:00 is quiet", now: at(1, 0), want: true},
		{name: "22:00 is quiet", now: at(22, 0), want: true},
		{name: "07:00 is not quiet", now: at(7, 0), want: false},
		{name: "08:00 is not quiet", now: at(8, 0), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithinQuietHours(tt.now, "22:00", "07:00", "UTC"); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestIsWithinQuietHours_SameDayAndDegenerateWindows(t *testing.T) {
	if !IsWithinQuietHours(at(13, 30), "12:00", "14:00", "UTC") {
		t.Fatal("expected 13:30 inside 12:00-14:00")
	}
	if IsWithinQuietHours(at(14, 0), "12:00", "14:00", "UTC") {
		t.Fatal("expected end bound to be exclusive")
	}
	if !IsWithinQuietHours(at(9, 0), "10:00", "10:00", "UTC") {
		t.Fatal("expected equal bounds to be always quiet")
	}
	if IsWithinQuietHours(at(23, 0), "", "07:00", "UTC") {
		t.Fatal("expected missing start to disable quiet hours")
	}
	if IsWithinQuietHours(at(23, 0), "25:00", "07:00", "UTC") {
		t.Fatal("expected out of range clock to disable quiet hours")
	}
}

func TestIsWithinQuietHours_UsesPolicyTimezone(t *testing.T) {
	// 01:00 UTC is 22:00 the previous evening in Sao Paulo (UTC-3).
	now := at(1, 0)
	if !IsWithinQuietHours(now, "21:00", "23:00", "America/Sao_Paulo") {
		t.Fatal("expected local 22:00 inside 21:00-23:00")
	}
	if IsWithinQuietHours(now, "21:00", "23:00", "UTC") {
		t.Fatal("expected 01:00 UTC outside 21:00-23:00")
	}
}

func TestResolveLocation_FallsBackToUTC(t *testing.T) {
	if ResolveLocation("Not/AZone") != time.UTC {
		t.Fatal("expected UTC for unknown zone")
	}
	if ResolveLocation("") != time.UTC {
		t.Fatal("expected UTC for empty zone")
	}
}

func TestIsWeekdayAllowed(t *testing.T) {
	wednesday := at(12, 0) // 2024-06-12
	if !IsWeekdayAllowed(wednesday, sql.NullInt32{}, "UTC") {
		t.Fatal("expected NULL mask to allow every day")
	}
	if !IsWeekdayAllowed(wednesday, sql.NullInt32{Int32: 1 << 3, Valid: true}, "UTC") {
		t.Fatal("expected wednesday bit to allow wednesday")
	}
	if IsWeekdayAllowed(wednesday, sql.NullInt32{Int32: 1<<0 | 1<<6, Valid: true}, "UTC") {
		t.Fatal("expected weekend-only mask to reject wednesday")
	}
}

func TestCalculateNextEligibleAt(t *testing.T) {
	last := at(10, 0)
	if got := CalculateNextEligibleAt(last, sql.NullInt32{}); got != nil {
		t.Fatalf("expected nil for no repeat, got %v", got)
	}
	if got := CalculateNextEligibleAt(last, sql.NullInt32{Int32: 0, Valid: true}); got != nil {
		t.Fatalf("expected nil for zero repeat, got %v", got)
	}
	got := CalculateNextEligibleAt(last, sql.NullInt32{Int32: 60, Valid: true})
	if got == nil || !got.Equal(last.Add(60*time.Minute)) {
		t.Fatalf("expected %s, got %v", last.Add(60*time.Minute), got)
	}
}

func TestShouldNotify(t *testing.T) {
	now := at(12, 0)
	repeating := &Policy{
		RepeatEveryMinutes: sql.NullInt32{Int32: 60, Valid: true},
		MaxOccurrences:     sql.NullInt32{Int32: 3, Valid: true},
	}
	oneShot := &Policy{}

	tests := []struct {
		name   string
		state  *State
		policy *Policy
		want   Decision
	}{
		{
			name:   "never notified",
			policy: oneShot,
			want:   Decision{Eligible: true, Reason: ReasonFirstNotification},
		},
		{
			name:   "no repeat after first send",
			state:  &State{Occurrences: 1},
			policy: oneShot,
			want:   Decision{Reason: ReasonNoRepeat},
		},
		{
			name:   "max reached",
			state:  &State{Occurrences: 3},
			policy: repeating,
			want:   Decision{Reason: ReasonMaxReached},
		},
		{
			name:   "before next eligible",
			state:  &State{Occurrences: 1, NextEligibleAt: sql.NullTime{Time: now.Add(time.Minute), Valid: true}},
			policy: repeating,
			want:   Decision{Reason: ReasonNotYetEligible},
		},
		{
			name:   "repeat due",
			state:  &State{Occurrences: 2, NextEligibleAt: sql.NullTime{Time: now, Valid: true}},
			policy: repeating,
			want:   Decision{Eligible: true, Reason: ReasonRepeatDue},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldNotify(tt.state, tt.policy, now); got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestAdvance(t *testing.T) {
	now := at(9, 0)
	p := &Policy{ID: uuid.New(), RepeatEveryMinutes: sql.NullInt32{Int32: 30, Valid: true}}
	resourceID := uuid.New()

	st := Advance(nil, p, ResourceTransaction, resourceID, now)
	if st.Occurrences != 1 || st.PolicyID != p.ID || st.ResourceID != resourceID {
		t.Fatalf("unexpected first state: %+v", st)
	}
	if !st.NextEligibleAt.Valid || !st.NextEligibleAt.Time.Equal(now.Add(30*time.Minute)) {
		t.Fatalf("unexpected next eligible: %+v", st.NextEligibleAt)
	}

	later := now.Add(time.Hour)
	st = Advance(st, p, ResourceTransaction, resourceID, later)
	if st.Occurrences != 2 || !st.LastNotifiedAt.Time.Equal(later) {
		t.Fatalf("unexpected advanced state: %+v", st)
	}
}

func TestPolicyWindow(t *testing.T) {
	now := at(12, 0)

	dueSoon := &Policy{Event: EventDueSoon, DaysBefore: sql.NullInt32{Int32: 1, Valid: true}}
	w := dueSoon.Window(now, 1)
	if w.From == nil || !w.From.Equal(now.AddDate(0, 0, 1)) {
		t.Fatalf("unexpected from: %v", w.From)
	}
	if w.Before == nil || !w.Before.Equal(now.AddDate(0, 0, 1).Add(time.Minute)) {
		t.Fatalf("unexpected before: %v", w.Before)
	}
	if w.UpTo != nil {
		t.Fatal("due_soon window must not set an inclusive upper bound")
	}

	overdue := &Policy{Event: EventOverdue, DaysOverdue: sql.NullInt32{Int32: 2, Valid: true}}
	w = overdue.Window(now, 1)
	if w.UpTo == nil || !w.UpTo.Equal(now.AddDate(0, 0, -2)) {
		t.Fatalf("unexpected up to: %v", w.UpTo)
	}
	if w.From != nil || w.Before != nil {
		t.Fatal("overdue window is open-ended below")
	}
}

func TestPolicyHasChannel(t *testing.T) {
	p := &Policy{Channels: []Channel{ChannelWhatsApp}}
	if p.HasChannel(ChannelEmail) {
		t.Fatal("expected email to be missing")
	}
	p.Channels = append(p.Channels, ChannelEmail)
	if !p.HasChannel(ChannelEmail) {
		t.Fatal("expected email to be present")
	}
}
