package broker

import (
	"context"
	"fmt"
	"time"

	"restoran-pos/internal/logger"
	"restoran-pos/internal/notify"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// channel is the part of *amqp.Channel the sink uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitSink publishes to a topic exchange with the event name as routing
// key, so consumers bind e.g. "order_*" or "payment_processed".
type RabbitSink struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	log      *logger.Logger
}

func NewRabbitSink(url, exchange string, log *logger.Logger) (*RabbitSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	log.Infof("BROKER", "connected to rabbitmq, exchange %s", exchange)
	return &RabbitSink{conn: conn, ch: ch, exchange: exchange, log: log}, nil
}

func (r *RabbitSink) Send(ev notify.Event) error {
	data, err := encode(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = r.ch.PublishWithContext(ctx,
		r.exchange, // exchange
		ev.Name,    // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    ev.Timestamp,
			Type:         ev.Name,
			Body:         data,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", ev.Name, err)
	}
	return nil
}

func (r *RabbitSink) Close() error {
	if err := r.ch.Close(); err != nil {
		r.log.Warnf("BROKER", "closing channel: %v", err)
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
