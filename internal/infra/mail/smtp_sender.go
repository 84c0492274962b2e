package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domainMail "household_finance/internal/domain/mail"

	gomail "github.com/wneessen/go-mail"
)

const smtpTimeout = 30 * time.Second

var ErrInvalidRecipient = errors.New("invalid email recipient")

// SMTPSender delivers plain-text UTF-8 emails through an SMTP relay with optional PLAIN auth.
type SMTPSender struct {
	from string
	send func(ctx context.Context, msgs ...*gomail.Msg) error
}

func NewSMTPSender(host string, port int, username, password, from string) (*SMTPSender, error) {
	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTimeout(smtpTimeout),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(username),
			gomail.WithPassword(password),
		)
	}
	client, err := gomail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create smtp client for %s:%d: %w", host, port, err)
	}
	if err := gomail.NewMsg().From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", from, err)
	}
	return &SMTPSender{from: from, send: client.DialAndSendWithContext}, nil
}

// SendMail dials the relay and sends msg synchronously; ctx bounds the whole exchange.
func (s *SMTPSender) SendMail(ctx context.Context, msg domainMail.Message) error {
	m, err := newMessage(s.from, msg)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.send(ctx, m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func newMessage(from string, msg domainMail.Message) (*gomail.Msg, error) {
	to := strings.TrimSpace(msg.To)
	if to == "" || strings.ContainsAny(to, "\r\n") {
		return nil, ErrInvalidRecipient
	}

	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("failed to set sender: %w", err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	m.SetDate()
	m.SetMessageID()
	return m, nil
}
