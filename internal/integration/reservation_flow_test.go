package integration

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinkRasengan/Warehouse-management-sub001/internal/alert"
	"github.com/VinkRasengan/Warehouse-management-sub001/internal/dedup"
	"github.com/VinkRasengan/Warehouse-management-sub001/internal/email"
	"github.com/VinkRasengan/Warehouse-management-sub001/internal/events"
	"github.com/VinkRasengan/Warehouse-management-sub001/internal/inventory"
	"github.com/VinkRasengan/Warehouse-management-sub001/internal/testutil"
)

// stack wires the inventory and alert consumers against real Postgres and
// RabbitMQ containers, the same way the service mains do.
type stack struct {
	ledger *inventory.Ledger
	repo   inventory.TransactionalRepository
	conn   *amqp.Connection
	alerts *alert.Service
}

func startStack(ctx context.Context, t *testing.T, policy inventory.ReservationPolicy) *stack {
	t.Helper()

	pool, stopPg := testutil.StartPostgres(ctx, t)
	t.Cleanup(stopPg)

	conn, _ := testutil.StartRabbitMQ(t)

	logger := log.New(io.Discard, "", 0)

	repo := inventory.NewPostgresRepository(pool)
	dedupRepo := dedup.NewRepository(pool)

	pub, err := events.NewPublisher(conn, "inventory-service")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	ledger := inventory.NewLedger(repo, dedupRepo, pub, logger, policy)
	require.NoError(t, events.Subscribe(ctx, conn, inventory.OrderEventsQueue, inventory.OrderEventsRoutingKeys, inventory.OrderEventsHandler(ledger), logger))

	alertSvc := alert.NewService(alert.NewPostgresRepository(pool), email.NopSender{}, "", logger)
	require.NoError(t, events.Subscribe(ctx, conn, alert.InventoryEventsQueue, alert.InventoryEventsRoutingKeys, alert.InventoryEventsHandler(alertSvc), logger))

	return &stack{
		ledger: ledger,
		repo:   repo,
		conn:   conn,
		alerts: alertSvc,
	}
}

func reservedQuantity(ctx context.Context, repo inventory.TransactionalRepository, productID string) int {
	item, err := repo.Get(ctx, productID)
	if err != nil {
		return -1
	}
	return item.Reserved
}

func TestReservationFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test needs docker")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s := startStack(ctx, t, inventory.PolicyContinue)

	require.NoError(t, s.ledger.Upsert(ctx, inventory.Item{
		ProductID: "p1", Quantity: 10, MinimumStock: 5, MaximumStock: 100, Location: "A-01",
	}))

	orderPub, err := events.NewPublisher(s.conn, "order-service")
	require.NoError(t, err)
	defer orderPub.Close()

	require.NoError(t, orderPub.Publish(ctx, "corr-flow", events.OrderCreated{
		OrderID:     "o1",
		OrderNumber: "ORD-20250901-TEST0001",
		CustomerID:  "cust-1",
		Items:       []events.OrderLine{{ProductID: "p1", Quantity: 6}},
	}))

	require.Eventually(t, func() bool {
		return reservedQuantity(ctx, s.repo, "p1") == 6
	}, 30*time.Second, 200*time.Millisecond, "order event should reserve stock")

	// Available dropped from 10 to 4 with a minimum of 5, so the crossing
	// must produce exactly one low stock alert.
	require.Eventually(t, func() bool {
		alerts, err := s.alerts.List(ctx, true)
		return err == nil && len(alerts) == 1
	}, 30*time.Second, 200*time.Millisecond, "threshold crossing should create an alert")

	alerts, err := s.alerts.List(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, alert.SeverityHigh, alerts[0].Severity)

	require.NoError(t, orderPub.Publish(ctx, "corr-flow", events.OrderCancelled{
		OrderID: "o1",
		Reason:  "customer changed mind",
		Items:   []events.OrderLine{{ProductID: "p1", Quantity: 6}},
	}))

	require.Eventually(t, func() bool {
		return reservedQuantity(ctx, s.repo, "p1") == 0
	}, 30*time.Second, 200*time.Millisecond, "cancellation should release the reservation")
}

func TestDuplicateDeliveryDoesNotDoubleReserve(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test needs docker")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s := startStack(ctx, t, inventory.PolicyContinue)

	require.NoError(t, s.ledger.Upsert(ctx, inventory.Item{ProductID: "p1", Quantity: 10}))

	// Publishing the same envelope twice simulates broker redelivery: the
	// eventId is the idempotency key, so the second copy must be a no-op.
	env, err := events.NewEnvelope("order-service", "corr-dup", events.OrderCreated{
		OrderID: "o1",
		Items:   []events.OrderLine{{ProductID: "p1", Quantity: 3}},
	})
	require.NoError(t, err)
	body, err := json.Marshal(env)
	require.NoError(t, err)

	ch, err := s.conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	for i := 0; i < 2; i++ {
		require.NoError(t, ch.PublishWithContext(ctx, events.EventsExchange, events.OrderCreatedRoutingKey, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    env.EventID,
			Body:         body,
		}))
	}

	require.Eventually(t, func() bool {
		return reservedQuantity(ctx, s.repo, "p1") == 3
	}, 30*time.Second, 200*time.Millisecond)

	// Hold the level for a moment to catch a late double reservation.
	time.Sleep(2 * time.Second)
	assert.Equal(t, 3, reservedQuantity(ctx, s.repo, "p1"))
}

func TestMalformedOrderEventIsDeadLettered(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test needs docker")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s := startStack(ctx, t, inventory.PolicyContinue)

	ch, err := s.conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	dlq, err := ch.Consume(inventory.OrderEventsQueue+".dlq", "", true, false, false, false, nil)
	require.NoError(t, err)

	orderPub, err := events.NewPublisher(s.conn, "order-service")
	require.NoError(t, err)
	defer orderPub.Close()

	// No orderId: the handler rejects it and the message must not requeue.
	require.NoError(t, orderPub.Publish(ctx, "corr-dlq", events.OrderCreated{
		Items: []events.OrderLine{{ProductID: "p1", Quantity: 1}},
	}))

	select {
	case msg := <-dlq:
		env, err := events.ParseEnvelope(msg.Body)
		require.NoError(t, err)
		assert.Equal(t, events.EventTypeOrderCreated, env.EventType)
	case <-time.After(30 * time.Second):
		t.Fatal("expected the rejected event on the dead letter queue")
	}
}
