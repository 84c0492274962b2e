package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // policy timezones must resolve on minimal images

	"household_finance/internal/api"
	"household_finance/internal/app"
	domainMail "household_finance/internal/domain/mail"
	domainTelegram "household_finance/internal/domain/telegram"
	"household_finance/internal/infra/config"
	idb "household_finance/internal/infra/database"
	"household_finance/internal/infra/logger"
	infraMail "household_finance/internal/infra/mail"
	"household_finance/internal/infra/scheduler"
	"household_finance/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Household finance notification worker starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")

	mainLogger.WithFields(logrus.Fields{
		"environment":    cfg.Environment,
		"mail_transport": cfg.MailTransport,
		"telegram":       cfg.TelegramToken != "",
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully.")

	txRepo := idb.NewPostgresTransactionRepository(db)
	notificationRepo := idb.NewPostgresNotificationRepository(db)

	mailer, closeMailer, err := newMailer(cfg)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not initialize mail transport")
	}
	defer closeMailer()

	runner := app.NewNotificationRunnerImpl(txRepo, notificationRepo, mailer, logger.Component("notification_runner"), cfg.NotificationWindowMinutes)
	materializer := app.NewOccurrenceMaterializerImpl(txRepo, logger.Component("materializer"), cfg.MaterializeHorizonMonths)
	adminService := app.NewAdminService(runner, materializer, notificationRepo, cfg.AdminTelegramID)

	var bot *telebot.Bot
	var alerter domainTelegram.Client
	if cfg.TelegramToken != "" {
		bot, err = newBot(cfg.TelegramToken, logger.Component("telebot"))
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		botLogger := logger.Component("telegram")
		telegram.RegisterBotCommands(bot, adminService, botLogger)
		telegram.RegisterAdminHandlers(ctx, bot, adminService, botLogger)
		alerter = telegram.NewTelebotAdapter(bot)
		mainLogger.Info("Operator bot handlers registered.")
	}

	notifScheduler := scheduler.NewNotificationScheduler(
		runner,
		materializer,
		alerter,
		cfg.AdminTelegramID,
		logger.Component("scheduler"),
		scheduler.Specs{
			NotificationTick: cfg.CronSpecNotificationTick,
			Materialize:      cfg.CronSpecMaterialize,
			TickTimeout:      time.Duration(cfg.TickTimeoutSeconds) * time.Second,
		},
	)
	if err := notifScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start scheduler")
	}

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.NewRouter(api.NewHandler(runner, materializer, logger.Component("api")), cfg.InternalAPIKey),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		mainLogger.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.WithError(err).Error("HTTP server stopped unexpectedly")
			stop()
		}
	}()

	if bot != nil {
		go bot.Start()
	}

	mainLogger.Info("Application setup complete. Scheduler and HTTP server are running.")
	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Warn("HTTP server shutdown did not complete cleanly")
	}
	if bot != nil {
		bot.Stop()
	}
	notifScheduler.Stop()
	mainLogger.Info("Application shut down gracefully.")
}

func newMailer(cfg *config.AppConfig) (domainMail.Sender, func(), error) {
	switch cfg.MailTransport {
	case config.MailTransportSMTP:
		ss, err := infraMail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
		if err != nil {
			return nil, nil, err
		}
		return ss, func() {}, nil
	case config.MailTransportAMQP:
		qs, err := infraMail.NewQueueSender(cfg.RabbitMQURL, cfg.MailExchange, cfg.MailRoutingKey, logger.Component("mail_queue"))
		if err != nil {
			return nil, nil, err
		}
		return qs, qs.Close, nil
	default:
		return infraMail.NewLogSender(logger.Component("mail_log")), func() {}, nil
	}
}

func newBot(token string, log *logrus.Entry) (*telebot.Bot, error) {
	pref := telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := log.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{
					"message":   c.Text(),
					"sender_id": c.Sender().ID,
					"chat_id":   c.Chat().ID,
				})
			}
			entry.Error("Telebot error")
		},
	}
	return telebot.NewBot(pref)
}
