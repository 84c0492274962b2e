package mail

import (
	"context"

	domainMail "household_finance/internal/domain/mail"

	"github.com/sirupsen/logrus"
)

// LogSender writes emails to the log instead of delivering them. Used in development.
type LogSender struct {
	logger *logrus.Entry
}

func NewLogSender(logger *logrus.Entry) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendMail(ctx context.Context, msg domainMail.Message) error {
	s.logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("Email (log transport)")
	s.logger.Debug(msg.Text)
	return nil
}
