package mailqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/collexus/erp/backend/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel used by the publisher.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Publisher struct {
	channel Channel
	queue   string
	timeout time.Duration
}

func NewPublisher(channel Channel, queue string, timeout time.Duration) *Publisher {
	return &Publisher{
		channel: channel,
		queue:   queue,
		timeout: timeout,
	}
}

// DeclareQueue declares the durable mail queue. Both the API and the mail worker call it so
// either can start first.
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
}

func (p *Publisher) PublishMail(ctx context.Context, message domain.MailMessage) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal mail message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.channel.PublishWithContext(
		ctx,
		"",
		p.queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("publish %s mail: %w", message.Type, err)
	}
	return nil
}
