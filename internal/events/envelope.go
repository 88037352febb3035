package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is the shared wrapper around every message on the events exchange.
// EventID doubles as the AMQP messageId and as the idempotency key consumers
// record to survive redelivery.
type Envelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(source, correlationID string, payload Payload) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", payload.EventType(), err)
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     payload.EventType(),
		OccurredAt:    time.Now().UTC(),
		Source:        source,
		CorrelationID: correlationID,
		Payload:       body,
	}, nil
}

func (e Envelope) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("missing eventId")
	}
	if e.EventType == "" {
		return fmt.Errorf("missing eventType")
	}
	if len(e.Payload) == 0 {
		return fmt.Errorf("missing payload")
	}
	return nil
}

func ParseEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}
