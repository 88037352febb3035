package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinkRasengan/Warehouse-management-sub001/internal/events"
)

func TestOrderEventsHandlerDispatch(t *testing.T) {
	repo := newFakeRepo(Item{ProductID: "p1", Quantity: 10})
	handler := OrderEventsHandler(newTestLedger(repo, &recordingPublisher{}, PolicyContinue))
	ctx := context.Background()

	created := events.Envelope{EventID: "evt-1", EventType: events.EventTypeOrderCreated, CorrelationID: "corr-1"}
	err := handler(ctx, created, events.OrderCreated{
		OrderID: "o1",
		Items:   []events.OrderLine{{ProductID: "p1", Quantity: 4}},
	})
	require.NoError(t, err)

	item, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, item.Reserved)

	cancelled := events.Envelope{EventID: "evt-2", EventType: events.EventTypeOrderCancelled, CorrelationID: "corr-1"}
	err = handler(ctx, cancelled, events.OrderCancelled{
		OrderID: "o1",
		Items:   []events.OrderLine{{ProductID: "p1", Quantity: 4}},
	})
	require.NoError(t, err)

	item, err = repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, item.Reserved)
}

func TestOrderEventsHandlerCommitsOnShipped(t *testing.T) {
	repo := newFakeRepo(Item{ProductID: "p1", Quantity: 10, Reserved: 4})
	handler := OrderEventsHandler(newTestLedger(repo, &recordingPublisher{}, PolicyContinue))
	ctx := context.Background()

	shipped := events.Envelope{EventID: "evt-4", EventType: events.EventTypeOrderShipped, CorrelationID: "corr-1"}
	err := handler(ctx, shipped, events.OrderShipped{
		OrderID: "o1",
		Items:   []events.OrderLine{{ProductID: "p1", Quantity: 4}},
	})
	require.NoError(t, err)

	item, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 6, item.Quantity)
	assert.Equal(t, 0, item.Reserved)
}

func TestOrderEventsHandlerRejectsUnexpectedEvent(t *testing.T) {
	handler := OrderEventsHandler(newTestLedger(newFakeRepo(), &recordingPublisher{}, PolicyContinue))

	env := events.Envelope{EventID: "evt-3", EventType: events.EventTypeStockLow}
	err := handler(context.Background(), env, events.StockLow{ProductID: "p1"})
	assert.Error(t, err, "events outside the binding must not be acked")
}
