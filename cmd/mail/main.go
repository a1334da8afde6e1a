package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/collexus/erp/backend/internal/config"
	"github.com/collexus/erp/backend/internal/mailqueue"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"
)

func main() {
	/**********************************************
	 * logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * configuration
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return
	}

	/**********************************************
	 * smtp client
	 **********************************************/
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
		mail.WithTimeout(time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second),
	)
	if err != nil {
		logger.Error("failed to create smtp client", "error", err)
		return
	}
	defer client.Close()

	// fail fast on bad credentials instead of on the first message
	dialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
	defer cancel()
	if err := client.DialWithContext(dialCtx); err != nil {
		logger.Error("failed to reach smtp server", "host", cfg.Email.SMTP.Host, "error", err)
		return
	}

	renderer, err := mailqueue.NewRenderer(cfg.Email.SMTP.Username)
	if err != nil {
		logger.Error("failed to load mail templates", "error", err)
		return
	}

	/**********************************************
	 * rabbitmq
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("failed to open rabbitmq channel", "error", err)
		return
	}
	defer ch.Close()

	q, err := mailqueue.DeclareQueue(ch, cfg.RabbitMQ.Queue)
	if err != nil {
		logger.Error("failed to declare mail queue", "queue", cfg.RabbitMQ.Queue, "error", err)
		return
	}

	// one unacked message at a time; a slow SMTP server should not pile up deliveries here
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Error("failed to set prefetch", "error", err)
		return
	}

	deliveries, err := ch.Consume(
		q.Name,
		"",    // consumer tag assigned by the broker
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		logger.Error("failed to consume mail queue", "error", err)
		return
	}

	/**********************************************
	 * worker
	 **********************************************/
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	consumer := mailqueue.NewConsumer(renderer, client, logger)

	ctx, stop := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		consumer.Run(ctx, deliveries)
	}()

	logger.Info("waiting for mail (CTRL+C to quit)", "queue", q.Name)
	<-sigChan

	logger.Info("stopping mail worker")
	stop()
	wg.Wait()
	logger.Info("mail worker stopped")
}
