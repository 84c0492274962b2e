// internal/infra/database/postgres_notification_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"household_finance/internal/domain/notification"

	"github.com/google/uuid"
	"github.com/lib/pq" // For pq.Array
)

// Custom errors specific to notification repository
var ErrStateNotFound = errors.New("notification state not found")
var ErrDuplicateState = errors.New("duplicate notification state (policy_id, resource_type, resource_id)")

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

// --- Policies ---

func (r *PostgresNotificationRepository) ListActivePolicies(ctx context.Context) ([]*notification.Policy, error) {
	query := `SELECT id, org_id, scope, event, days_before, days_overdue, repeat_every_minutes,
                     max_occurrences, channels, active, COALESCE(timezone, 'UTC'),
                     quiet_hours_start, quiet_hours_end, weekdays_mask, transaction_type,
                     created_at, updated_at
               FROM notification_policies
               WHERE active = TRUE
               ORDER BY org_id, created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying active notification policies: %w", err)
	}
	defer rows.Close()

	policies := make([]*notification.Policy, 0)
	for rows.Next() {
		p := notification.Policy{}
		var channels []string
		if err := rows.Scan(
			&p.ID, &p.OrgID, &p.Scope, &p.Event, &p.DaysBefore, &p.DaysOverdue, &p.RepeatEveryMinutes,
			&p.MaxOccurrences, pq.Array(&channels), &p.Active, &p.Timezone,
			&p.QuietHoursStart, &p.QuietHoursEnd, &p.WeekdaysMask, &p.TransactionType,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning notification policy row: %w", err)
		}
		p.Channels = make([]notification.Channel, 0, len(channels))
		for _, c := range channels {
			p.Channels = append(p.Channels, notification.Channel(c))
		}
		policies = append(policies, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification policy rows: %w", err)
	}
	return policies, nil
}

// --- States ---

func (r *PostgresNotificationRepository) GetState(ctx context.Context, policyID uuid.UUID, resourceType notification.ResourceType, resourceID uuid.UUID) (*notification.State, error) {
	query := `SELECT id, policy_id, resource_type, resource_id, last_notified_at, occurrences, next_eligible_at, created_at, updated_at
               FROM notification_states
               WHERE policy_id = $1 AND resource_type = $2 AND resource_id = $3`
	st := notification.State{}
	err := r.db.QueryRowContext(ctx, query, policyID, resourceType, resourceID).Scan(
		&st.ID, &st.PolicyID, &st.ResourceType, &st.ResourceID,
		&st.LastNotifiedAt, &st.Occurrences, &st.NextEligibleAt, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("error getting notification state: %w", err)
	}
	return &st, nil
}

func (r *PostgresNotificationRepository) CreateState(ctx context.Context, st *notification.State) error {
	query := `INSERT INTO notification_states (policy_id, resource_type, resource_id, last_notified_at, occurrences, next_eligible_at)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		st.PolicyID, st.ResourceType, st.ResourceID, st.LastNotifiedAt, st.Occurrences, st.NextEligibleAt,
	).Scan(&st.ID, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateState
		}
		return fmt.Errorf("error creating notification state: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) UpdateState(ctx context.Context, st *notification.State) error {
	query := `UPDATE notification_states
               SET last_notified_at = $1, occurrences = $2, next_eligible_at = $3, updated_at = NOW()
               WHERE id = $4
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, st.LastNotifiedAt, st.Occurrences, st.NextEligibleAt, st.ID).Scan(&st.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStateNotFound
		}
		return fmt.Errorf("error updating notification state: %w", err)
	}
	return nil
}

// --- Runs ---

func (r *PostgresNotificationRepository) CreateRun(ctx context.Context, run *notification.Run) error {
	query := `INSERT INTO notification_runs (policy_id, resource_type, resource_id, channel, status, error)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		run.PolicyID, run.ResourceType, run.ResourceID, run.Channel, run.Status, run.Error,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating notification run: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) ListRecentRuns(ctx context.Context, limit int) ([]*notification.Run, error) {
	query := `SELECT id, policy_id, resource_type, resource_id, channel, status, error, created_at
               FROM notification_runs
               ORDER BY created_at DESC
               LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying notification runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*notification.Run, 0)
	for rows.Next() {
		run := notification.Run{}
		if err := rows.Scan(
			&run.ID, &run.PolicyID, &run.ResourceType, &run.ResourceID,
			&run.Channel, &run.Status, &run.Error, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning notification run row: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification run rows: %w", err)
	}
	return runs, nil
}
