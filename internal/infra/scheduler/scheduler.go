package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"household_finance/internal/app"
	domainTelegram "household_finance/internal/domain/telegram"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	jobNotificationTick = "notification_tick"
	jobMaterializeSweep = "materialize_sweep"
)

// Specs holds the cron expressions and the per-run deadline of each job.
type Specs struct {
	NotificationTick string
	Materialize      string
	TickTimeout      time.Duration
	SweepTimeout     time.Duration
}

type NotificationScheduler struct {
	cronEngine   *cron.Cron
	runner       app.NotificationRunner
	materializer app.OccurrenceMaterializer
	alerter      domainTelegram.Client // nil when no operator bot is configured
	adminChatID  int64
	logger       *logrus.Entry
	specs        Specs
}

func NewNotificationScheduler(
	runner app.NotificationRunner,
	materializer app.OccurrenceMaterializer,
	alerter domainTelegram.Client,
	adminChatID int64,
	logger *logrus.Entry,
	specs Specs,
) *NotificationScheduler {
	if specs.TickTimeout <= 0 {
		specs.TickTimeout = 5 * time.Minute
	}
	if specs.SweepTimeout <= 0 {
		specs.SweepTimeout = 30 * time.Minute
	}
	cronLogger := cron.PrintfLogger(logger)
	return &NotificationScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		runner:       runner,
		materializer: materializer,
		alerter:      alerter,
		adminChatID:  adminChatID,
		logger:       logger,
		specs:        specs,
	}
}

// Start registers both jobs and starts the cron engine. An invalid spec is returned as an error.
func (s *NotificationScheduler) Start() error {
	s.logger.Info("Starting notification scheduler...")

	if _, err := s.cronEngine.AddFunc(s.specs.NotificationTick, s.runNotificationTick); err != nil {
		return fmt.Errorf("could not add notification tick job (%q): %w", s.specs.NotificationTick, err)
	}
	if _, err := s.cronEngine.AddFunc(s.specs.Materialize, s.runMaterializeSweep); err != nil {
		return fmt.Errorf("could not add materialization job (%q): %w", s.specs.Materialize, err)
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"tick_spec":        s.specs.NotificationTick,
		"materialize_spec": s.specs.Materialize,
	}).Info("Notification scheduler started with jobs.")
	return nil
}

func (s *NotificationScheduler) runNotificationTick() {
	s.runJob(jobNotificationTick, s.specs.TickTimeout, s.runner.RunSchedulerTickAll)
}

func (s *NotificationScheduler) runMaterializeSweep() {
	s.runJob(jobMaterializeSweep, s.specs.SweepTimeout, s.materializer.MaterializeAllActive)
}

// runJob executes fn under its own deadline. Failures are logged and forwarded to the operator.
func (s *NotificationScheduler) runJob(name string, timeout time.Duration, fn func(ctx context.Context) error) {
	logCtx := s.logger.WithField("job", name)
	logCtx.Debug("Cron job triggered")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	started := time.Now()
	err := fn(ctx)
	logCtx = logCtx.WithField("duration", time.Since(started).String())
	if errors.Is(err, app.ErrTickInProgress) {
		logCtx.Info("Previous tick still running, skipping this run")
		return
	}
	if err != nil {
		logCtx.WithError(err).Error("Cron job failed")
		s.alert(name, err)
		return
	}
	logCtx.Info("Cron job finished")
}

func (s *NotificationScheduler) alert(job string, jobErr error) {
	if s.alerter == nil || s.adminChatID == 0 {
		return
	}
	text := fmt.Sprintf("⚠️ Job %s falhou: %v", job, jobErr)
	if err := s.alerter.SendMessage(s.adminChatID, text, nil); err != nil {
		s.logger.WithError(err).WithField("job", job).Warn("Failed to alert operator about job failure")
	}
}

func (s *NotificationScheduler) Stop() {
	s.logger.Info("Stopping notification scheduler...")
	ctx := s.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	s.logger.Info("Notification scheduler gracefully stopped.")
}
