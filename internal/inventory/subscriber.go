package inventory

import (
	"context"
	"fmt"

	"github.com/VinkRasengan/Warehouse-management-sub001/internal/events"
)

// OrderEventsQueue is the durable queue this service consumes order events on.
const OrderEventsQueue = "inventory-service.order-events"

// OrderEventsRoutingKeys are the topics bound to OrderEventsQueue.
var OrderEventsRoutingKeys = []string{
	events.OrderCreatedRoutingKey,
	events.OrderCancelledRoutingKey,
	events.OrderShippedRoutingKey,
}

// OrderEventsHandler translates order events into ledger operations.
// The switch is exhaustive over the payloads this queue is bound to; anything
// else is a wiring bug and goes to the DLQ.
func OrderEventsHandler(ledger *Ledger) events.HandlerFunc {
	return func(ctx context.Context, env events.Envelope, payload events.Payload) error {
		switch evt := payload.(type) {
		case events.OrderCreated:
			return ledger.ReserveForOrder(ctx, env, evt)
		case events.OrderCancelled:
			return ledger.ReleaseForOrder(ctx, env, evt)
		case events.OrderShipped:
			return ledger.CommitForOrder(ctx, env, evt)
		default:
			return fmt.Errorf("unexpected event %s on %s", env.EventType, OrderEventsQueue)
		}
	}
}
