package events

import (
	"context"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// HandlerFunc processes a decoded event. Returning an error NACKs the message
// without requeue, which routes it to the queue's dead-letter queue instead of
// retrying in-line. Handlers may run against redelivered messages and must be
// idempotent.
type HandlerFunc func(ctx context.Context, env Envelope, payload Payload) error

// Subscribe declares a durable queue bound to the given routing keys on the
// events exchange, plus a companion "<queue>.dlq" fed by nacked messages, and
// starts a consume loop that stops when ctx is cancelled.
func Subscribe(ctx context.Context, conn *amqp.Connection, queueName string, routingKeys []string, handler HandlerFunc, logger *log.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		return fmt.Errorf("declare events exchange: %w", err)
	}
	if err := declareDeadLetterExchange(ch); err != nil {
		return fmt.Errorf("declare dead letter exchange: %w", err)
	}

	dlqName := queueName + ".dlq"
	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", dlqName, err)
	}
	if err := ch.QueueBind(dlqName, queueName, DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", dlqName, err)
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		amqp.Table{
			"x-dead-letter-exchange":    DeadLetterExchange,
			"x-dead-letter-routing-key": queueName,
		},
	)
	if err != nil {
		return fmt.Errorf("declare %s: %w", queueName, err)
	}

	for _, key := range routingKeys {
		if err := ch.QueueBind(queueName, key, EventsExchange, false, nil); err != nil {
			return fmt.Errorf("bind %s to %s: %w", queueName, key, err)
		}
	}

	// One unacked message at a time keeps per-queue ordering practical and
	// bounds the blast radius of a crashing handler.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := ch.Consume(
		queueName,
		queueName, // consumer tag
		false,     // autoAck
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queueName, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Printf("stopping consumer for %s", queueName)
				_ = ch.Close()
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Printf("messages channel closed for %s", queueName)
					return
				}
				if err := dispatch(ctx, msg.Body, handler); err != nil {
					logger.Printf("handle %s message: %v (dead-lettering)", queueName, err)
					_ = msg.Nack(false, false)
					continue
				}
				_ = msg.Ack(false)
			}
		}
	}()

	return nil
}

func dispatch(ctx context.Context, body []byte, handler HandlerFunc) error {
	env, err := ParseEnvelope(body)
	if err != nil {
		return err
	}
	payload, err := Decode(env)
	if err != nil {
		return err
	}
	return handler(ctx, env, payload)
}
