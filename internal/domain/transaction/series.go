// internal/domain/transaction/series.go
package transaction

import (
	"database/sql"
	"time"

	"household_finance/internal/domain/recurrence"

	"github.com/google/uuid"
)

// Type tells income from expense.
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

// Series is a recurring or one-off financial obligation owned by an organization.
// Corresponds to the 'transaction_series' table.
type Series struct {
	ID                 uuid.UUID
	Title              string
	OwnerID            uuid.UUID
	PayToID            uuid.NullUUID
	OrganizationID     uuid.UUID
	Amount             int64 // cents
	Type               Type
	RecurrenceType     recurrence.Type
	RecurrenceInterval int
	RecurrenceUntil    sql.NullTime
	InstallmentsTotal  sql.NullInt32
	StartDate          time.Time
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
