package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/user-auth/internal/lib/sl"
)

const maxInFlight = 10

// ErrPermanent помечает сообщения, повторная обработка которых не поможет.
// Такие сообщения отклоняются без возврата в очередь.
var ErrPermanent = errors.New("permanent message failure")

// Permanent оборачивает err так, что errors.Is(err, ErrPermanent) истинно.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Consumer — часть amqp.Channel, нужная для чтения очереди.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// ConsumeMessages читает очередь queueName и обрабатывает сообщения handler-ом,
// не более maxInFlight одновременно. Успешно обработанные сообщения подтверждаются,
// ошибки с ErrPermanent отбрасываются, остальные возвращаются в очередь. Блокирует до отмены ctx или закрытия канала
// и дожидается завершения уже начатых обработчиков.
func ConsumeMessages(ctx context.Context, ch Consumer, queueName string, log *slog.Logger, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumeMessages"
	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	sem := make(chan struct{}, maxInFlight)
	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer func() {
					<-sem
					wg.Done()
				}()
				if err := handler(d.Body); err != nil {
					requeue := !errors.Is(err, ErrPermanent)
					log.Error("failed to handle message",
						slog.String("queue", queueName),
						slog.Bool("requeue", requeue),
						sl.Err(err))
					if nackErr := d.Nack(false, requeue); nackErr != nil {
						log.Error("failed to nack message", sl.Err(nackErr))
					}
					return
				}
				if ackErr := d.Ack(false); ackErr != nil {
					log.Error("failed to ack message", sl.Err(ackErr))
				}
			}(d)
		case <-ctx.Done():
			return nil
		}
	}
}
