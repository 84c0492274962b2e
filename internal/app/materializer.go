// internal/app/materializer.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"household_finance/internal/domain/recurrence"
	"household_finance/internal/domain/transaction"
	idb "household_finance/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultHorizonMonths = 6
	MaxHorizonMonths     = 120
)

var ErrInvalidRecurrenceInterval = errors.New("recurrence interval must be at least 1")
var ErrHorizonTooLarge = fmt.Errorf("horizon must not exceed %d months", MaxHorizonMonths)

// OccurrenceMaterializer keeps the concrete occurrences of a series generated up to a rolling horizon.
type OccurrenceMaterializer interface {
	MaterializeOccurrences(ctx context.Context, seriesID uuid.UUID, opts MaterializeOptions) error
	MaterializeAllActive(ctx context.Context) error
}

// MaterializeOptions tunes a single materialization call. Zero values use the service defaults.
type MaterializeOptions struct {
	HorizonMonths int
	Description   string // copied to every new occurrence when set
}

// OccurrenceMaterializerImpl implements the OccurrenceMaterializer interface.
type OccurrenceMaterializerImpl struct {
	txRepo        transaction.Repository
	logger        *logrus.Entry
	horizonMonths int
	now           func() time.Time
}

func NewOccurrenceMaterializerImpl(tr transaction.Repository, logger *logrus.Entry, horizonMonths int) *OccurrenceMaterializerImpl {
	if horizonMonths < 1 || horizonMonths > MaxHorizonMonths {
		horizonMonths = DefaultHorizonMonths
	}
	return &OccurrenceMaterializerImpl{
		txRepo:        tr,
		logger:        logger,
		horizonMonths: horizonMonths,
		now:           time.Now,
	}
}

// MaterializeOccurrences creates the missing occurrences of a series due up to now + horizon.
// It never inserts a due date that already exists, so a failed call can simply be retried.
// The active flag only gates the sweep; an explicit call materializes an inactive series as well.
func (s *OccurrenceMaterializerImpl) MaterializeOccurrences(ctx context.Context, seriesID uuid.UUID, opts MaterializeOptions) error {
	logCtx := s.logger.WithField("series_id", seriesID)
	if opts.HorizonMonths > MaxHorizonMonths {
		return ErrHorizonTooLarge
	}

	series, err := s.txRepo.GetSeries(ctx, seriesID)
	if err != nil {
		if errors.Is(err, idb.ErrSeriesNotFound) {
			logCtx.Info("Series not found, nothing to materialize")
			return nil
		}
		return fmt.Errorf("failed to load series %s: %w", seriesID, err)
	}
	if series.RecurrenceInterval < 1 {
		return fmt.Errorf("series %s: %w", seriesID, ErrInvalidRecurrenceInterval)
	}

	horizonMonths := opts.HorizonMonths
	if horizonMonths < 1 {
		horizonMonths = s.horizonMonths
	}
	horizonDate := s.now().AddDate(0, horizonMonths, 0)

	existing, err := s.txRepo.ListOccurrencesFrom(ctx, series.ID, series.StartDate)
	if err != nil {
		return fmt.Errorf("failed to list occurrences for series %s: %w", seriesID, err)
	}
	existingDueDates := make(map[int64]struct{}, len(existing))
	for _, o := range existing {
		existingDueDates[o.DueDate.UnixMicro()] = struct{}{}
	}

	next := series.StartDate
	index := 1
	if len(existing) > 0 {
		last := existing[len(existing)-1]
		next = recurrence.AddPeriod(last.DueDate, series.RecurrenceType, series.RecurrenceInterval)
		index = len(existing) + 1
	}

	limit, hasLimit := installmentLimit(series)

	var description sql.NullString
	if opts.Description != "" {
		description = sql.NullString{String: opts.Description, Valid: true}
	}

	var staged []*transaction.Occurrence
	for !next.After(horizonDate) {
		if series.RecurrenceUntil.Valid && next.After(series.RecurrenceUntil.Time) {
			break
		}
		if hasLimit && index > limit {
			break
		}
		if _, ok := existingDueDates[next.UnixMicro()]; !ok {
			staged = append(staged, &transaction.Occurrence{
				SeriesID:         series.ID,
				DueDate:          next,
				Amount:           series.Amount,
				InstallmentIndex: index,
				Status:           transaction.StatusPending,
				Description:      description,
			})
		}
		next = recurrence.AddPeriod(next, series.RecurrenceType, series.RecurrenceInterval)
		index++
	}

	if len(staged) == 0 {
		logCtx.Debug("Occurrences already materialized up to horizon")
		return nil
	}

	if err := s.txRepo.BulkCreateOccurrences(ctx, staged); err != nil {
		return fmt.Errorf("failed to insert occurrences for series %s: %w", seriesID, err)
	}
	logCtx.WithFields(logrus.Fields{
		"created":      len(staged),
		"horizon_date": horizonDate.Format(time.DateOnly),
	}).Info("Materialized occurrences")
	return nil
}

// installmentLimit returns the hard cap on installments. One-off series get exactly one.
func installmentLimit(series *transaction.Series) (int, bool) {
	limit, hasLimit := 0, false
	if series.InstallmentsTotal.Valid {
		limit, hasLimit = int(series.InstallmentsTotal.Int32), true
	}
	if series.RecurrenceType == recurrence.TypeNone && (!hasLimit || limit > 1) {
		limit, hasLimit = 1, true
	}
	return limit, hasLimit
}

// MaterializeAllActive runs MaterializeOccurrences for every active series.
// A failing series does not stop the sweep; all failures are returned together.
func (s *OccurrenceMaterializerImpl) MaterializeAllActive(ctx context.Context) error {
	ids, err := s.txRepo.ListActiveSeriesIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active series: %w", err)
	}
	s.logger.WithField("series_count", len(ids)).Info("Starting materialization sweep")

	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.MaterializeOccurrences(ctx, id, MaterializeOptions{}); err != nil {
			s.logger.WithError(err).WithField("series_id", id).Error("Materialization failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
