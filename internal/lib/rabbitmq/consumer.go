package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/streadway/amqp"
)

// Deliveries часть *amqp.Channel, нужная для чтения очереди.
type Deliveries interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// ConsumerMessage читает очередь queueName и передает тела сообщений в handler,
// обрабатывая до 10 сообщений параллельно. Успешно обработанное сообщение
// подтверждается, при ошибке возвращается в очередь.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch Deliveries, queueName string, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	sem := make(chan struct{}, 10)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					if err := handler(d.Body); err != nil {
						log.Error("failed to handle message", sl.Err(err))
						if nackErr := d.Nack(false, !d.Redelivered); nackErr != nil {
							log.Error("failed to nack message", sl.Err(nackErr))
						}
						return
					}
					if ackErr := d.Ack(false); ackErr != nil {
						log.Error("failed to ack message", sl.Err(ackErr))
					}
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
