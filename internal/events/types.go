package events

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	EventTypeOrderCreated   = "OrderCreated"
	EventTypeOrderCancelled = "OrderCancelled"
	EventTypeOrderShipped   = "OrderShipped"
	EventTypeStockLow       = "StockLow"
	EventTypeStockOut       = "StockOut"
)

// Payload is the closed set of event bodies carried by the Envelope.
// Decode is the single place a wire message becomes a typed value, so adding
// a new event type means extending this interface's implementors and the
// switch below.
type Payload interface {
	EventType() string
}

type OrderLine struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice,omitempty"`
}

// OrderCreated is published by the order service after an order commits.
// Inventory consumes it and reserves stock per line.
type OrderCreated struct {
	OrderID     string      `json:"orderId"`
	OrderNumber string      `json:"orderNumber"`
	CustomerID  string      `json:"customerId"`
	Total       float64     `json:"total"`
	Items       []OrderLine `json:"items"`
}

func (OrderCreated) EventType() string { return EventTypeOrderCreated }

// OrderCancelled mirrors OrderCreated; inventory releases the reservations
// taken for the same lines.
type OrderCancelled struct {
	OrderID     string      `json:"orderId"`
	OrderNumber string      `json:"orderNumber"`
	CustomerID  string      `json:"customerId"`
	Reason      string      `json:"reason,omitempty"`
	Items       []OrderLine `json:"items"`
}

func (OrderCancelled) EventType() string { return EventTypeOrderCancelled }

// OrderShipped is published when an order moves to SHIPPED. Inventory
// consumes it and converts the order's reservations into on-hand decrements.
type OrderShipped struct {
	OrderID     string      `json:"orderId"`
	OrderNumber string      `json:"orderNumber"`
	CustomerID  string      `json:"customerId"`
	Items       []OrderLine `json:"items"`
}

func (OrderShipped) EventType() string { return EventTypeOrderShipped }

// StockLow is emitted once when available quantity crosses below the minimum.
type StockLow struct {
	ProductID       string    `json:"productId"`
	CurrentQuantity int       `json:"currentQuantity"`
	MinThreshold    int       `json:"minThreshold"`
	Timestamp       time.Time `json:"timestamp"`
}

func (StockLow) EventType() string { return EventTypeStockLow }

// StockOut is the zero-available variant of StockLow.
type StockOut struct {
	ProductID       string    `json:"productId"`
	CurrentQuantity int       `json:"currentQuantity"`
	MinThreshold    int       `json:"minThreshold"`
	Timestamp       time.Time `json:"timestamp"`
}

func (StockOut) EventType() string { return EventTypeStockOut }

// Decode turns an envelope into its typed payload. Unknown event types are an
// error so consumers fail loudly instead of acking messages they do not
// understand.
func Decode(env Envelope) (Payload, error) {
	switch env.EventType {
	case EventTypeOrderCreated:
		var p OrderCreated
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		return p, nil
	case EventTypeOrderCancelled:
		var p OrderCancelled
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		return p, nil
	case EventTypeOrderShipped:
		var p OrderShipped
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		return p, nil
	case EventTypeStockLow:
		var p StockLow
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		return p, nil
	case EventTypeStockOut:
		var p StockOut
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.EventType)
	}
}
