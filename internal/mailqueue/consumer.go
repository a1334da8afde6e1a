package mailqueue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/collexus/erp/backend/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"
)

// Sender is satisfied by *mail.Client.
type Sender interface {
	DialAndSend(messages ...*mail.Msg) error
}

type Consumer struct {
	renderer *Renderer
	sender   Sender
	logger   *slog.Logger
}

func NewConsumer(renderer *Renderer, sender Sender, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		renderer: renderer,
		sender:   sender,
		logger:   logger,
	}
}

// Run handles deliveries until ctx is done or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warn("delivery channel closed")
				return
			}
			c.Handle(d)
		}
	}
}

// Handle sends one queued mail. Undecodable or unrenderable messages are dropped; a failed
// send is requeued.
func (c *Consumer) Handle(d amqp.Delivery) {
	message := domain.MailMessage{}
	if err := json.Unmarshal(d.Body, &message); err != nil {
		c.logger.Error("failed to decode mail message", "error", err)
		_ = d.Nack(false, false)
		return
	}

	msg, err := c.renderer.Render(message)
	if err != nil {
		c.logger.Error("failed to build mail", "type", message.Type, "to", message.To, "error", err)
		_ = d.Nack(false, false)
		return
	}

	if err := c.sender.DialAndSend(msg); err != nil {
		c.logger.Error("failed to send mail", "type", message.Type, "to", message.To, "error", err)
		_ = d.Nack(false, true)
		return
	}

	c.logger.Info("mail sent", "type", message.Type, "to", message.To)
	_ = d.Ack(false)
}
