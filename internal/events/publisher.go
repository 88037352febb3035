package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher writes envelopes onto the shared topic exchange. Delivery is
// at-least-once and non-transactional: callers must not assume a returned nil
// means the consumer has seen the event, only that the broker accepted it.
type Publisher struct {
	ch     *amqp.Channel
	source string
}

func NewPublisher(conn *amqp.Connection, source string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return &Publisher{ch: ch, source: source}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// Publish wraps the payload in an envelope and sends it with its topic
// routing key. The envelope's eventId becomes the AMQP messageId.
func (p *Publisher) Publish(ctx context.Context, correlationID string, payload Payload) error {
	routingKey := RoutingKeyFor(payload)
	if routingKey == "" {
		return fmt.Errorf("no routing key for event type %q", payload.EventType())
	}

	env, err := NewEnvelope(p.source, correlationID, payload)
	if err != nil {
		return err
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", env.EventType, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    env.EventID,
			Timestamp:    env.OccurredAt,
			Headers: amqp.Table{
				"eventType":     env.EventType,
				"source":        env.Source,
				"correlationId": env.CorrelationID,
			},
			Body: body,
		},
	)
}
