// internal/infra/database/postgres_transaction_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"household_finance/internal/domain/recurrence"
	"household_finance/internal/domain/transaction"

	"github.com/google/uuid"
)

var ErrSeriesNotFound = errors.New("transaction series not found")

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

// --- Series ---

func (r *PostgresTransactionRepository) GetSeries(ctx context.Context, id uuid.UUID) (*transaction.Series, error) {
	query := `SELECT id, title, owner_id, pay_to_id, organization_id, amount, type,
                     recurrence_type, recurrence_interval, recurrence_until, installments_total,
                     start_date, active, created_at, updated_at
               FROM transaction_series WHERE id = $1`
	s := transaction.Series{}
	var recurrenceType string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Title, &s.OwnerID, &s.PayToID, &s.OrganizationID, &s.Amount, &s.Type,
		&recurrenceType, &s.RecurrenceInterval, &s.RecurrenceUntil, &s.InstallmentsTotal,
		&s.StartDate, &s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeriesNotFound
		}
		return nil, fmt.Errorf("error getting transaction series %s: %w", id, err)
	}
	s.RecurrenceType = recurrence.ParseType(recurrenceType)
	return &s, nil
}

func (r *PostgresTransactionRepository) ListActiveSeriesIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM transaction_series WHERE active = TRUE ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("error querying active series: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning series id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating series ids: %w", err)
	}
	return ids, nil
}

// --- Occurrences ---

const occurrenceColumns = `o.id, o.series_id, o.due_date, o.amount, o.installment_index, o.status,
                           o.paid_at, o.value_paid, o.description, o.created_at`

func scanOccurrence(row interface{ Scan(...any) error }, o *transaction.Occurrence, extra ...any) error {
	dest := []any{
		&o.ID, &o.SeriesID, &o.DueDate, &o.Amount, &o.InstallmentIndex, &o.Status,
		&o.PaidAt, &o.ValuePaid, &o.Description, &o.CreatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

func (r *PostgresTransactionRepository) ListOccurrencesFrom(ctx context.Context, seriesID uuid.UUID, from time.Time) ([]*transaction.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + `
               FROM transaction_occurrences o
               WHERE o.series_id = $1 AND o.due_date >= $2
               ORDER BY o.due_date ASC`
	rows, err := r.db.QueryContext(ctx, query, seriesID, from)
	if err != nil {
		return nil, fmt.Errorf("error querying occurrences for series %s: %w", seriesID, err)
	}
	defer rows.Close()

	occurrences := make([]*transaction.Occurrence, 0)
	for rows.Next() {
		o := transaction.Occurrence{}
		if err := scanOccurrence(rows, &o); err != nil {
			return nil, fmt.Errorf("error scanning occurrence row: %w", err)
		}
		occurrences = append(occurrences, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating occurrence rows: %w", err)
	}
	return occurrences, nil
}

// BulkCreateOccurrences inserts all rows in one database transaction.
func (r *PostgresTransactionRepository) BulkCreateOccurrences(ctx context.Context, occurrences []*transaction.Occurrence) error {
	if len(occurrences) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for bulk create: %w", err)
	}
	defer txn.Rollback() // no-op after commit

	stmt, err := txn.PrepareContext(ctx, `INSERT INTO transaction_occurrences
                                             (id, series_id, due_date, amount, installment_index, status, description, created_at)
                                          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
                                          RETURNING created_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for bulk create: %w", err)
	}
	defer stmt.Close()

	for _, o := range occurrences {
		if o.ID == uuid.Nil {
			o.ID = uuid.New()
		}
		if o.Status == "" {
			o.Status = transaction.StatusPending
		}
		err := stmt.QueryRowContext(ctx, o.ID, o.SeriesID, o.DueDate, o.Amount, o.InstallmentIndex, o.Status, o.Description).Scan(&o.CreatedAt)
		if err != nil {
			return fmt.Errorf("error inserting occurrence (series %s, installment %d): %w", o.SeriesID, o.InstallmentIndex, err)
		}
	}

	return txn.Commit()
}

func (r *PostgresTransactionRepository) ListUnpaidDue(ctx context.Context, filter transaction.DueFilter) ([]*transaction.DueItem, error) {
	var (
		conditions = []string{"s.organization_id = $1", "s.active = TRUE", "o.status = $2"}
		args       = []any{filter.OrganizationID, transaction.StatusPending}
	)
	addCondition := func(format string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(format, len(args)))
	}
	if filter.DueFrom != nil {
		addCondition("o.due_date >= $%d", *filter.DueFrom)
	}
	if filter.DueBefore != nil {
		addCondition("o.due_date < $%d", *filter.DueBefore)
	}
	if filter.DueUpTo != nil {
		addCondition("o.due_date <= $%d", *filter.DueUpTo)
	}
	if filter.Type != nil {
		addCondition("s.type = $%d", *filter.Type)
	}

	query := `SELECT ` + occurrenceColumns + `,
                     s.organization_id, s.title, s.type, s.recurrence_type, s.recurrence_interval,
                     s.installments_total, COALESCE(u.name, ''), u.email
               FROM transaction_occurrences o
               JOIN transaction_series s ON s.id = o.series_id
               LEFT JOIN users u ON u.id = s.owner_id
               WHERE ` + strings.Join(conditions, " AND ") + `
               ORDER BY o.due_date ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying unpaid occurrences for org %s: %w", filter.OrganizationID, err)
	}
	defer rows.Close()

	items := make([]*transaction.DueItem, 0)
	for rows.Next() {
		item := transaction.DueItem{}
		var recurrenceType string
		if err := scanOccurrence(rows, &item.Occurrence,
			&item.OrganizationID, &item.SeriesTitle, &item.SeriesType, &recurrenceType, &item.RecurrenceInterval,
			&item.InstallmentsTotal, &item.OwnerName, &item.OwnerEmail,
		); err != nil {
			return nil, fmt.Errorf("error scanning due item row: %w", err)
		}
		item.RecurrenceType = recurrence.ParseType(recurrenceType)
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due item rows: %w", err)
	}
	return items, nil
}
