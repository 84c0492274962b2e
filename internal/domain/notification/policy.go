// internal/domain/notification/policy.go
package notification

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Policy describes when to alert an organization about due or overdue items.
// Corresponds to the 'notification_policies' table. The runner never writes it.
type Policy struct {
	ID                 uuid.UUID
	OrgID              uuid.UUID
	Scope              Scope
	Event              Event
	DaysBefore         sql.NullInt32
	DaysOverdue        sql.NullInt32
	RepeatEveryMinutes sql.NullInt32 // NULL = never repeat
	MaxOccurrences     sql.NullInt32 // NULL = unlimited
	Channels           []Channel
	Active             bool
	Timezone           string
	QuietHoursStart    sql.NullString // "HH:MM"
	QuietHoursEnd      sql.NullString // "HH:MM"
	WeekdaysMask       sql.NullInt32  // bit i = weekday i, Sunday = 0
	TransactionType    sql.NullString // optional income/expense filter
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasChannel reports whether c is among the policy channels.
func (p *Policy) HasChannel(c Channel) bool {
	for _, ch := range p.Channels {
		if ch == c {
			return true
		}
	}
	return false
}

// DueWindow bounds the due dates a policy is interested in at a given instant.
// From is inclusive and Before exclusive; UpTo is an inclusive upper bound with no lower bound.
type DueWindow struct {
	From   *time.Time
	Before *time.Time
	UpTo   *time.Time
}

// Window returns the due-date window for the policy event at now.
// due_soon looks at [now+daysBefore, now+daysBefore+windowMinutes); overdue at due <= now-daysOverdue.
func (p *Policy) Window(now time.Time, windowMinutes int) DueWindow {
	switch p.Event {
	case EventOverdue:
		upTo := now.AddDate(0, 0, -int(p.DaysOverdue.Int32))
		return DueWindow{UpTo: &upTo}
	default:
		from := now.AddDate(0, 0, int(p.DaysBefore.Int32))
		before := from.Add(time.Duration(windowMinutes) * time.Minute)
		return DueWindow{From: &from, Before: &before}
	}
}
