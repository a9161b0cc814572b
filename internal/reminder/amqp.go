package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPQueue delivers reminders through RabbitMQ. Delay is realized with the
// dead-letter pattern: messages sit in the delay queue under a per-message
// TTL and dead-letter into the main queue at fire time.
type AMQPQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewAMQPQueue(url, queue string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	mainQ := queue
	delayQ := queue + ".delay"
	dlqQ := queue + ".dlq"

	// DLQ
	if _, err := ch.QueueDeclare(
		dlqQ,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	// Delay queue: per-message TTL -> dead-letter into main queue
	if _, err := ch.QueueDeclare(
		delayQ,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": mainQ,
		},
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	// Main queue: dead-letter to DLQ on reject/nack(requeue=false)
	if _, err := ch.QueueDeclare(
		mainQ,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": dlqQ,
		},
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &AMQPQueue{conn: conn, ch: ch, queue: queue}, nil
}

func (q *AMQPQueue) Close() error {
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

func (q *AMQPQueue) Enqueue(ctx context.Context, r Reminder) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}

	delay := time.Until(r.FireAt)
	if delay < 0 {
		delay = 0
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	routingKey := q.queue
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
	}
	if delay > 0 {
		routingKey = q.queue + ".delay"
		pub.Expiration = strconv.FormatInt(delay.Milliseconds(), 10)
	}

	return q.ch.PublishWithContext(cctx,
		"", // default exchange
		routingKey,
		false,
		false,
		pub,
	)
}

// Consume drains the main queue, invoking handler per reminder. A handler
// error nacks without requeue, pushing the message to the DLQ.
func (q *AMQPQueue) Consume(ctx context.Context, handler func(ctx context.Context, r Reminder) error) error {
	msgs, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			var r Reminder
			if err := json.Unmarshal(d.Body, &r); err != nil {
				_ = d.Nack(false, false)
				continue
			}
			if err := handler(ctx, r); err != nil {
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

var _ Queue = (*AMQPQueue)(nil)
