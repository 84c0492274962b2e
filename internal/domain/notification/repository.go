// internal/domain/notification/repository.go
package notification

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines operations for policies, the delivery state ledger and the run log.
type Repository interface {
	ListActivePolicies(ctx context.Context) ([]*Policy, error)

	GetState(ctx context.Context, policyID uuid.UUID, resourceType ResourceType, resourceID uuid.UUID) (*State, error)
	CreateState(ctx context.Context, st *State) error
	UpdateState(ctx context.Context, st *State) error

	CreateRun(ctx context.Context, run *Run) error
	ListRecentRuns(ctx context.Context, limit int) ([]*Run, error)
}
