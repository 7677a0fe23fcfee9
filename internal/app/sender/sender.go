// Package sender собирает процесс, который читает очереди уведомлений и отправляет письма.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/examprep/internal/config"
	"github.com/magabrotheeeer/examprep/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/examprep/internal/services/sender"
)

// App процесс отправителя уведомлений.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.Service
	logger        *slog.Logger
}

// New подключается к RabbitMQ и объявляет очереди уведомлений.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderservice.New(transport, logger),
		logger:        logger,
	}, nil
}

// Run запускает потребителей и ждет отмены ctx.
func (a *App) Run(ctx context.Context) error {
	consumers := []struct {
		queue   string
		handler func([]byte) error
	}{
		{rabbitmq.QueueGiftCode, a.senderService.SendGiftCodeRedeemed},
		{rabbitmq.QueueMockTest, a.senderService.SendMockTestSubmitted},
		{rabbitmq.QueueExpiring, a.senderService.SendSubscriptionExpiring},
		{rabbitmq.QueueRefund, a.senderService.SendRefundRequested},
	}
	for _, c := range consumers {
		if err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, c.queue, c.handler); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", c.queue), sl.Err(err))
			a.shutdown()
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")
	a.shutdown()
	return nil
}

func (a *App) shutdown() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
