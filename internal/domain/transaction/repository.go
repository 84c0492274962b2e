package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence operations the materializer and the notification runner need.
type Repository interface {
	GetSeries(ctx context.Context, id uuid.UUID) (*Series, error)
	ListActiveSeriesIDs(ctx context.Context) ([]uuid.UUID, error)

	// ListOccurrencesFrom returns the series occurrences due at or after from, ordered by due date.
	ListOccurrencesFrom(ctx context.Context, seriesID uuid.UUID, from time.Time) ([]*Occurrence, error)
	BulkCreateOccurrences(ctx context.Context, occurrences []*Occurrence) error

	// ListUnpaidDue returns pending occurrences of active series matching the filter.
	ListUnpaidDue(ctx context.Context, filter DueFilter) ([]*DueItem, error)
}
