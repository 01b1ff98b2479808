package event

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cinetix/booking-engine/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const confirmedQueue = "booking.confirmed"

// AMQPObserver publishes confirmed bookings to a durable RabbitMQ queue for
// the notification service. Other lifecycle transitions are ignored; the
// Redis stream carries the full feed.
//
// The observer dials lazily on first use and keeps the connection and channel
// open across events. A failed publish drops them so the next attempt redials.
type AMQPObserver struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPObserver(url string) *AMQPObserver {
	return &AMQPObserver{url: url}
}

func (o *AMQPObserver) Name() string { return "rabbitmq" }

func (o *AMQPObserver) Notify(ctx context.Context, event domain.BookingEvent) error {
	if event.Status != domain.BookingConfirmed {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	err = o.publish(ctx, body)
	if err == nil {
		return nil
	}

	// The broker may have dropped the connection since the last event.
	// Reconnect and try the publish once more before giving up.
	o.reset()
	if err := o.publish(ctx, body); err != nil {
		o.reset()
		return err
	}

	return nil
}

// Close releases the broker connection. Safe to call without a prior publish.
func (o *AMQPObserver) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.reset()
}

// publish sends the payload over the cached channel, dialing first if needed.
// Callers must hold o.mu.
func (o *AMQPObserver) publish(ctx context.Context, body []byte) error {
	ch, err := o.channel()
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx,
		"",             // default exchange
		confirmedQueue, // routing key = queue name
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

// channel returns the cached channel, establishing the connection and
// declaring the queue on first use or after a reset. Callers must hold o.mu.
func (o *AMQPObserver) channel() (*amqp.Channel, error) {
	if o.ch != nil && !o.conn.IsClosed() {
		return o.ch, nil
	}
	o.reset()

	conn, err := amqp.Dial(o.url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(confirmedQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	o.conn = conn
	o.ch = ch

	return ch, nil
}

func (o *AMQPObserver) reset() {
	if o.ch != nil {
		_ = o.ch.Close()
		o.ch = nil
	}
	if o.conn != nil {
		_ = o.conn.Close()
		o.conn = nil
	}
}
