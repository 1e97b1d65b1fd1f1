package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// EventExchange — обменник для жизненных событий.
const EventExchange = "conductor.events"

// Очереди, привязанные к обменнику событий.
const (
	QueueRunEvents  = "events.runs"
	QueueTaskEvents = "events.tasks"
)

// AMQPNotifier публикует события в RabbitMQ.
//
// Routing key — тип события (run_started, task_failed, ...),
// так что подписчики выбирают интересующие события биндингом.
type AMQPNotifier struct {
	conn   *Connection
	logger *slog.Logger
}

// NewAMQPNotifier подключается к RabbitMQ и объявляет топологию событий.
func NewAMQPNotifier(url string, logger *slog.Logger) (*AMQPNotifier, error) {
	conn, err := NewConnection(url, logger)
	if err != nil {
		return nil, err
	}

	n := &AMQPNotifier{
		conn:   conn,
		logger: logger,
	}

	if err := n.setupTopology(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}

	return n, nil
}

// setupTopology объявляет обменник и очереди событий.
func (n *AMQPNotifier) setupTopology(ctx context.Context) error {
	return n.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			EventExchange, // name
			"topic",       // type
			true,          // durable
			false,         // auto-deleted
			false,         // internal
			false,         // no-wait
			nil,           // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", EventExchange, err)
		}

		bindings := []struct {
			queue   string
			pattern string
		}{
			{QueueRunEvents, "run_*"},
			{QueueTaskEvents, "task_*"},
		}

		for _, b := range bindings {
			_, err := ch.QueueDeclare(
				b.queue, // name
				true,    // durable
				false,   // delete when unused
				false,   // exclusive
				false,   // no-wait
				nil,     // arguments
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}

			err = ch.QueueBind(
				b.queue,       // queue name
				b.pattern,     // routing key
				EventExchange, // exchange
				false,         // no-wait
				nil,           // arguments
			)
			if err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, EventExchange, err)
			}
		}

		return nil
	})
}

// Notify реализует Notifier. Ошибка публикации логируется,
// но не возвращается: доставка событий не влияет на исход run.
func (n *AMQPNotifier) Notify(ctx context.Context, event Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := n.publish(ctx, event); err != nil {
		n.logger.Warn("publish event failed",
			"event_type", event.Type,
			"run_id", event.RunID,
			"error", err,
		)
	}
}

// publish сериализует событие и отправляет его в обменник.
func (n *AMQPNotifier) publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return n.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			EventExchange,      // exchange
			string(event.Type), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // событие переживёт рестарт RabbitMQ
				MessageId:    event.ID.String(),
				Timestamp:    event.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", EventExchange, event.Type, err)
		}

		n.logger.Debug("published event",
			"exchange", EventExchange,
			"routing_key", event.Type,
			"event_id", event.ID,
		)

		return nil
	})
}

// Close закрывает соединение с брокером.
func (n *AMQPNotifier) Close() error {
	return n.conn.Close()
}
