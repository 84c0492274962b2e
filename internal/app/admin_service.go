package app

import (
	"context"
	"errors"
	"fmt"

	"household_finance/internal/domain/notification"

	"github.com/google/uuid"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = errors.New("performing user is not authorized as an admin")
var ErrInvalidRunLimit = errors.New("run limit must be between 1 and 50")

const (
	DefaultRecentRuns = 10
	maxRecentRuns     = 50
)

// AdminService backs the operator commands: manual ticks, manual materialization and inspection.
type AdminService struct {
	runner          NotificationRunner
	materializer    OccurrenceMaterializer
	notifRepo       notification.Repository
	adminTelegramID int64
}

func NewAdminService(runner NotificationRunner, materializer OccurrenceMaterializer, nr notification.Repository, adminID int64) *AdminService {
	return &AdminService{
		runner:          runner,
		materializer:    materializer,
		notifRepo:       nr,
		adminTelegramID: adminID,
	}
}

// IsAdmin reports whether the Telegram user is the configured operator.
func (s *AdminService) IsAdmin(telegramID int64) bool {
	return s.adminTelegramID != 0 && telegramID == s.adminTelegramID
}

// RunTickNow runs one notification tick on behalf of the operator.
func (s *AdminService) RunTickNow(ctx context.Context, performingAdminID int64) (TickSummary, error) {
	if !s.IsAdmin(performingAdminID) {
		return TickSummary{}, ErrAdminNotAuthorized
	}
	summary, err := s.runner.RunTick(ctx)
	if err != nil {
		return summary, fmt.Errorf("manual tick failed: %w", err)
	}
	return summary, nil
}

// MaterializeSeries fills the horizon of one series on behalf of the operator.
func (s *AdminService) MaterializeSeries(ctx context.Context, performingAdminID int64, seriesID uuid.UUID) error {
	if !s.IsAdmin(performingAdminID) {
		return ErrAdminNotAuthorized
	}
	if err := s.materializer.MaterializeOccurrences(ctx, seriesID, MaterializeOptions{}); err != nil {
		return fmt.Errorf("failed to materialize series %s: %w", seriesID, err)
	}
	return nil
}

func (s *AdminService) ListActivePolicies(ctx context.Context, performingAdminID int64) ([]*notification.Policy, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	policies, err := s.notifRepo.ListActivePolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active policies: %w", err)
	}
	return policies, nil
}

// ListRecentRuns returns the latest delivery attempts, newest first. A zero limit means DefaultRecentRuns.
func (s *AdminService) ListRecentRuns(ctx context.Context, performingAdminID int64, limit int) ([]*notification.Run, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	if limit == 0 {
		limit = DefaultRecentRuns
	}
	if limit < 0 || limit > maxRecentRuns {
		return nil, ErrInvalidRunLimit
	}
	runs, err := s.notifRepo.ListRecentRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification runs: %w", err)
	}
	return runs, nil
}
