package alert

import (
	"context"
	"fmt"

	"github.com/VinkRasengan/Warehouse-management-sub001/internal/events"
)

// InventoryEventsQueue is the durable queue this service consumes stock
// threshold events on.
const InventoryEventsQueue = "alert-service.inventory-events"

var InventoryEventsRoutingKeys = []string{
	events.StockLowRoutingKey,
	events.StockOutRoutingKey,
}

// InventoryEventsHandler turns stock threshold events into alert records.
func InventoryEventsHandler(svc *Service) events.HandlerFunc {
	return func(ctx context.Context, env events.Envelope, payload events.Payload) error {
		switch evt := payload.(type) {
		case events.StockLow:
			_, err := svc.CreateStockLowAlert(ctx, evt.ProductID, evt.CurrentQuantity, evt.MinThreshold)
			return err
		case events.StockOut:
			_, err := svc.CreateStockLowAlert(ctx, evt.ProductID, evt.CurrentQuantity, evt.MinThreshold)
			return err
		default:
			return fmt.Errorf("unexpected event %s on %s", env.EventType, InventoryEventsQueue)
		}
	}
}
