// internal/app/notification_runner.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"household_finance/internal/domain/mail"
	"household_finance/internal/domain/notification"
	"household_finance/internal/domain/transaction"
	idb "household_finance/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// WindowMinutes is the width of the due_soon window checked on each tick.
const WindowMinutes = 1

var ErrNoRecipient = errors.New("transaction owner has no email address")

// ErrTickInProgress is returned when another tick is still running in this process.
var ErrTickInProgress = errors.New("notification tick already in progress")

// NotificationRunner evaluates every active policy against live transaction data.
type NotificationRunner interface {
	RunSchedulerTickAll(ctx context.Context) error
	RunTick(ctx context.Context) (TickSummary, error)
}

// TickSummary counts what one tick did.
type TickSummary struct {
	PoliciesEvaluated int `json:"policies_evaluated"`
	PoliciesSkipped   int `json:"policies_skipped"`
	Candidates        int `json:"candidates"`
	Suppressed        int `json:"suppressed"`
	Sent              int `json:"sent"`
	Failed            int `json:"failed"`
}

// NotificationRunnerImpl implements the NotificationRunner interface.
type NotificationRunnerImpl struct {
	txRepo        transaction.Repository
	notifRepo     notification.Repository
	mailer        mail.Sender
	logger        *logrus.Entry
	windowMinutes int
	now           func() time.Time

	tickMu sync.Mutex // one tick at a time, whoever triggers it
}

func NewNotificationRunnerImpl(
	tr transaction.Repository,
	nr notification.Repository,
	mailer mail.Sender,
	logger *logrus.Entry,
	windowMinutes int,
) *NotificationRunnerImpl {
	if windowMinutes < 1 {
		windowMinutes = WindowMinutes
	}
	return &NotificationRunnerImpl{
		txRepo:        tr,
		notifRepo:     nr,
		mailer:        mailer,
		logger:        logger,
		windowMinutes: windowMinutes,
		now:           time.Now,
	}
}

// RunSchedulerTickAll is the entry point invoked by the scheduler. It settles or returns an error.
func (r *NotificationRunnerImpl) RunSchedulerTickAll(ctx context.Context) error {
	_, err := r.RunTick(ctx)
	return err
}

// RunTick processes every active policy of every organization once.
// Delivery failures are recorded as error runs; persistence failures abort the tick.
// A call made while another tick is running returns ErrTickInProgress without doing anything.
func (r *NotificationRunnerImpl) RunTick(ctx context.Context) (TickSummary, error) {
	var summary TickSummary
	if !r.tickMu.TryLock() {
		return summary, ErrTickInProgress
	}
	defer r.tickMu.Unlock()
	now := r.now()

	policies, err := r.notifRepo.ListActivePolicies(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list active policies: %w", err)
	}

	for _, p := range policies {
		logCtx := r.logger.WithFields(logrus.Fields{
			"policy_id": p.ID,
			"org_id":    p.OrgID,
			"event":     p.Event,
		})

		if reason := skipReason(p, now); reason != "" {
			summary.PoliciesSkipped++
			logCtx.WithField("reason", reason).Debug("Policy skipped this tick")
			continue
		}
		summary.PoliciesEvaluated++

		if err := r.runPolicy(ctx, p, now, logCtx, &summary); err != nil {
			return summary, fmt.Errorf("policy %s: %w", p.ID, err)
		}
	}

	r.logger.WithFields(logrus.Fields{
		"policies_evaluated": summary.PoliciesEvaluated,
		"policies_skipped":   summary.PoliciesSkipped,
		"candidates":         summary.Candidates,
		"suppressed":         summary.Suppressed,
		"sent":               summary.Sent,
		"failed":             summary.Failed,
	}).Info("Notification tick finished")
	return summary, nil
}

// skipReason returns why a policy is not evaluated at now, or "" when it should be.
func skipReason(p *notification.Policy, now time.Time) string {
	if p.QuietHoursStart.Valid && p.QuietHoursEnd.Valid &&
		notification.IsWithinQuietHours(now, p.QuietHoursStart.String, p.QuietHoursEnd.String, p.Timezone) {
		return "quiet_hours"
	}
	if !notification.IsWeekdayAllowed(now, p.WeekdaysMask, p.Timezone) {
		return "weekday_masked"
	}
	if p.Scope != notification.ScopeTransaction {
		return "unsupported_scope"
	}
	if !p.HasChannel(notification.ChannelEmail) {
		return "no_email_channel"
	}
	return ""
}

func (r *NotificationRunnerImpl) runPolicy(ctx context.Context, p *notification.Policy, now time.Time, logCtx *logrus.Entry, summary *TickSummary) error {
	window := p.Window(now, r.windowMinutes)
	filter := transaction.DueFilter{
		OrganizationID: p.OrgID,
		DueFrom:        window.From,
		DueBefore:      window.Before,
		DueUpTo:        window.UpTo,
	}
	if p.TransactionType.Valid && p.TransactionType.String != "" {
		t := transaction.Type(p.TransactionType.String)
		filter.Type = &t
	}

	items, err := r.txRepo.ListUnpaidDue(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list due transactions: %w", err)
	}

	for _, item := range items {
		summary.Candidates++
		resourceID := item.Occurrence.ID
		itemLog := logCtx.WithField("occurrence_id", resourceID)

		state, err := r.notifRepo.GetState(ctx, p.ID, notification.ResourceTransaction, resourceID)
		if err != nil {
			if !errors.Is(err, idb.ErrStateNotFound) {
				return fmt.Errorf("failed to load notification state for %s: %w", resourceID, err)
			}
			state = nil
		}

		decision := notification.ShouldNotify(state, p, now)
		if !decision.Eligible {
			summary.Suppressed++
			itemLog.WithField("reason", decision.Reason).Debug("Notification suppressed")
			continue
		}

		sendErr := r.deliverEmail(ctx, p, item, now)

		run := &notification.Run{
			PolicyID:     p.ID,
			ResourceType: notification.ResourceTransaction,
			ResourceID:   resourceID,
			Channel:      notification.ChannelEmail,
			Status:       notification.RunStatusSent,
		}
		if sendErr != nil {
			run.Status = notification.RunStatusError
			run.Error = sql.NullString{String: sendErr.Error(), Valid: true}
			summary.Failed++
			itemLog.WithError(sendErr).Warn("Failed to deliver notification email")
		} else {
			summary.Sent++
			itemLog.WithField("reason", decision.Reason).Info("Notification email sent")
		}

		if err := r.notifRepo.CreateRun(ctx, run); err != nil {
			return fmt.Errorf("failed to record notification run for %s: %w", resourceID, err)
		}
		if sendErr != nil {
			// state untouched so the next eligible tick retries
			continue
		}

		if state == nil {
			state = notification.Advance(nil, p, notification.ResourceTransaction, resourceID, now)
			err = r.notifRepo.CreateState(ctx, state)
		} else {
			state = notification.Advance(state, p, notification.ResourceTransaction, resourceID, now)
			err = r.notifRepo.UpdateState(ctx, state)
		}
		if err != nil {
			return fmt.Errorf("failed to save notification state for %s: %w", resourceID, err)
		}
	}
	return nil
}

func (r *NotificationRunnerImpl) deliverEmail(ctx context.Context, p *notification.Policy, item *transaction.DueItem, now time.Time) error {
	if !item.OwnerEmail.Valid || strings.TrimSpace(item.OwnerEmail.String) == "" {
		return ErrNoRecipient
	}
	msg := buildAlertMessage(p, item, now)
	msg.To = item.OwnerEmail.String
	return r.mailer.SendMail(ctx, msg)
}
