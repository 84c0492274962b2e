// internal/domain/notification/state.go
package notification

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// State tracks delivery progress for one (policy, resource) pair.
// Corresponds to the 'notification_states' table; inserted on the first send, updated afterwards.
type State struct {
	ID             int64
	PolicyID       uuid.UUID
	ResourceType   ResourceType
	ResourceID     uuid.UUID
	LastNotifiedAt sql.NullTime
	Occurrences    int
	NextEligibleAt sql.NullTime
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
