package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	domainMail "household_finance/internal/domain/mail"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// publisher is the subset of *amqp.Channel the queue sender needs.
type publisher interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// QueueSender hands emails to a mailer service over RabbitMQ as JSON messages on a topic exchange.
type QueueSender struct {
	conn       *amqp.Connection
	channel    publisher
	exchange   string
	routingKey string
	logger     *logrus.Entry

	declareOnce sync.Once
	declareErr  error
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewQueueSender dials RabbitMQ and opens a channel.
func NewQueueSender(amqpURL, exchange, routingKey string, logger *logrus.Entry) (*QueueSender, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp.Dial(cleanURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	s := newQueueSender(channel, exchange, routingKey, logger)
	s.conn = conn
	return s, nil
}

func newQueueSender(ch publisher, exchange, routingKey string, logger *logrus.Entry) *QueueSender {
	return &QueueSender{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
	}
}

func (s *QueueSender) SendMail(ctx context.Context, msg domainMail.Message) error {
	s.declareOnce.Do(func() {
		s.declareErr = s.channel.ExchangeDeclare(
			s.exchange, // name
			"topic",    // type
			true,       // durable
			false,      // auto-deleted
			false,      // internal
			false,      // no-wait
			nil,        // arguments
		)
	})
	if s.declareErr != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", s.exchange, s.declareErr)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	messageID := uuid.NewString()
	err = s.channel.PublishWithContext(ctx,
		s.exchange,
		s.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish email to %s: %w", s.exchange, err)
	}

	s.logger.WithFields(logrus.Fields{
		"exchange":    s.exchange,
		"routing_key": s.routingKey,
		"message_id":  messageID,
	}).Debug("Published email to queue")
	return nil
}

// Close closes the channel and connection.
func (s *QueueSender) Close() {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}
