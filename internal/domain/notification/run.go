// internal/domain/notification/run.go
package notification

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Run is an append-only audit row for a single send attempt.
// Corresponds to the 'notification_runs' table.
type Run struct {
	ID           int64
	PolicyID     uuid.UUID
	ResourceType ResourceType
	ResourceID   uuid.UUID
	Channel      Channel
	Status       RunStatus
	Error        sql.NullString
	CreatedAt    time.Time
}
