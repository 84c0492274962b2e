package transaction

import (
	"database/sql"
	"time"

	"household_finance/internal/domain/recurrence"

	"github.com/google/uuid"
)

// OccurrenceStatus is the payment state of a single due instance.
type OccurrenceStatus string

const (
	StatusPending  OccurrenceStatus = "pending"
	StatusPaid     OccurrenceStatus = "paid"
	StatusCanceled OccurrenceStatus = "canceled"
)

// Occurrence is one concrete due instance of a Series.
// Corresponds to the 'transaction_occurrences' table.
type Occurrence struct {
	ID               uuid.UUID
	SeriesID         uuid.UUID
	DueDate          time.Time
	Amount           int64 // cents
	InstallmentIndex int   // 1-based
	Status           OccurrenceStatus
	PaidAt           sql.NullTime
	ValuePaid        sql.NullInt64
	Description      sql.NullString
	CreatedAt        time.Time
}

// DueItem is an unpaid occurrence joined with what an alert needs to know about its series and owner.
type DueItem struct {
	Occurrence         Occurrence
	OrganizationID     uuid.UUID
	SeriesTitle        string
	SeriesType         Type
	RecurrenceType     recurrence.Type
	RecurrenceInterval int
	InstallmentsTotal  sql.NullInt32
	OwnerName          string
	OwnerEmail         sql.NullString
}

// DueFilter narrows the unpaid occurrences of one organization.
// DueFrom is inclusive, DueBefore exclusive, DueUpTo inclusive; unset bounds are ignored.
type DueFilter struct {
	OrganizationID uuid.UUID
	DueFrom        *time.Time
	DueBefore      *time.Time
	DueUpTo        *time.Time
	Type           *Type
}
