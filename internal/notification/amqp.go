package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

// publisher is the part of *amqp.Channel the notifier uses
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// invitationPayload is the message contract consumed by the external mailer
type invitationPayload struct {
	EmployeeID       string    `json:"employeeId"`
	OrganizationID   string    `json:"organizationId"`
	OrganizationName string    `json:"organizationName,omitempty"`
	To               string    `json:"to"`
	FirstName        string    `json:"firstName"`
	Subject          string    `json:"subject"`
	HTML             string    `json:"html"`
	Link             string    `json:"link"`
	ExpiresAt        time.Time `json:"expiresAt"`
}

// AMQPNotifier publishes invitation messages to a durable RabbitMQ queue
type AMQPNotifier struct {
	conn   *amqp.Connection
	ch     publisher
	queue  string
	logger *slog.Logger
}

// NewAMQPNotifier dials the broker and declares the invitation queue
func NewAMQPNotifier(url, queue string, logger *slog.Logger) (*AMQPNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to amqp broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	logger.Info("amqp notifier ready", slog.String("queue", queue))
	return &AMQPNotifier{conn: conn, ch: ch, queue: queue, logger: logger}, nil
}

func newAMQPNotifierWithChannel(ch publisher, queue string, logger *slog.Logger) *AMQPNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPNotifier{ch: ch, queue: queue, logger: logger}
}

func (n *AMQPNotifier) Name() string { return "amqp" }

func (n *AMQPNotifier) SendInvitation(ctx context.Context, msg domain.InvitationMessage) error {
	subject, html, err := renderInvitation(msg)
	if err != nil {
		return err
	}
	body, err := json.Marshal(invitationPayload{
		EmployeeID:       msg.EmployeeID,
		OrganizationID:   msg.OrganizationID,
		OrganizationName: msg.OrganizationName,
		To:               msg.To,
		FirstName:        msg.FirstName,
		Subject:          subject,
		HTML:             html,
		Link:             msg.Link,
		ExpiresAt:        msg.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal invitation: %w", err)
	}

	err = n.ch.PublishWithContext(ctx,
		"",      // default exchange
		n.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.EmployeeID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish invitation: %w", err)
	}
	return nil
}

// Close releases the channel and connection
func (n *AMQPNotifier) Close() error {
	if err := n.ch.Close(); err != nil {
		return err
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
