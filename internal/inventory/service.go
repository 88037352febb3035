package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/VinkRasengan/Warehouse-management-sub001/internal/dedup"
	"github.com/VinkRasengan/Warehouse-management-sub001/internal/events"
)

// ReservationPolicy decides how a multi-line order event is applied when some
// lines cannot be covered.
type ReservationPolicy string

const (
	// PolicyContinue reserves line by line, logging and skipping lines that
	// cannot be covered. Partial reservation across an order is possible.
	PolicyContinue ReservationPolicy = "continue"
	// PolicyAtomic reserves all lines in one transaction or none at all.
	PolicyAtomic ReservationPolicy = "atomic"
)

func ParsePolicy(s string) ReservationPolicy {
	if s == string(PolicyAtomic) {
		return PolicyAtomic
	}
	return PolicyContinue
}

// Publisher is the slice of the event bus the ledger needs.
type Publisher interface {
	Publish(ctx context.Context, correlationID string, payload events.Payload) error
}

var ErrShortStock = errors.New("insufficient stock")

const orderEventsConsumer = "inventory-order-events"

// Ledger owns stock levels. Every mutation goes through the repository's
// row-locked operations; the ledger adds threshold alerts and the
// order-event reservation workflow on top.
type Ledger struct {
	repo   TransactionalRepository
	dedup  *dedup.Repository
	pub    Publisher
	logger *log.Logger
	policy ReservationPolicy
}

func NewLedger(repo TransactionalRepository, dedupRepo *dedup.Repository, pub Publisher, logger *log.Logger, policy ReservationPolicy) *Ledger {
	return &Ledger{
		repo:   repo,
		dedup:  dedupRepo,
		pub:    pub,
		logger: logger,
		policy: policy,
	}
}

// CheckStock reports whether the item exists and can cover qty. Missing items
// are simply false, never an error.
func (l *Ledger) CheckStock(ctx context.Context, productID string, qty int) (bool, error) {
	item, err := l.repo.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return item.Available() >= qty, nil
}

func (l *Ledger) Get(ctx context.Context, productID string) (Item, error) {
	return l.repo.Get(ctx, productID)
}

func (l *Ledger) Upsert(ctx context.Context, item Item) error {
	return l.repo.Upsert(ctx, item)
}

func (l *Ledger) Movements(ctx context.Context, productID string) ([]Movement, error) {
	return l.repo.Movements(ctx, productID)
}

func (l *Ledger) Reserve(ctx context.Context, productID string, qty int, reference, correlationID string) (bool, error) {
	mut, err := l.repo.Reserve(ctx, productID, qty, reference)
	if err != nil {
		return false, err
	}
	l.emitThreshold(ctx, correlationID, mut)
	return mut.Applied, nil
}

// Release returns reserved units to availability. A release can only move
// stock upward, so it never produces a threshold alert.
func (l *Ledger) Release(ctx context.Context, productID string, qty int, reference string) error {
	_, err := l.repo.Release(ctx, productID, qty, reference)
	return err
}

func (l *Ledger) Commit(ctx context.Context, productID string, qty int, reference, correlationID string) (bool, error) {
	mut, err := l.repo.Commit(ctx, productID, qty, reference)
	if err != nil {
		return false, err
	}
	l.emitThreshold(ctx, correlationID, mut)
	return mut.Applied, nil
}

func (l *Ledger) Adjust(ctx context.Context, productID string, delta int, reason, createdBy, correlationID string) (Item, error) {
	mut, err := l.repo.Adjust(ctx, productID, delta, reason, createdBy)
	if err != nil {
		return Item{}, err
	}
	if !mut.Applied {
		return mut.Before, fmt.Errorf("adjust %s by %d: %w", productID, delta, ErrShortStock)
	}
	l.emitThreshold(ctx, correlationID, mut)
	return mut.After, nil
}

// ReserveForOrder applies an OrderCreated event. Each line is guarded by the
// processed-events ledger keyed on (eventId, productId), so a redelivered
// message never reserves the same line twice.
func (l *Ledger) ReserveForOrder(ctx context.Context, env events.Envelope, evt events.OrderCreated) error {
	if evt.OrderID == "" {
		return fmt.Errorf("missing orderId")
	}
	reference := "ORDER-" + evt.OrderID

	if l.policy == PolicyAtomic {
		return l.reserveAtomic(ctx, env, evt, reference)
	}
	return l.reserveContinue(ctx, env, evt, reference)
}

func (l *Ledger) reserveContinue(ctx context.Context, env events.Envelope, evt events.OrderCreated, reference string) error {
	for _, line := range evt.Items {
		if line.ProductID == "" || line.Quantity <= 0 {
			continue
		}

		mut, applied, err := l.reserveLine(ctx, env.EventID, line, reference)
		if err != nil {
			return err
		}
		if !applied {
			continue
		}
		if !mut.Applied {
			// Partial reservation: surfaced loudly, remaining lines still run.
			l.logger.Printf("ERROR reservation short for order=%s product=%s requested=%d available=%d",
				evt.OrderID, line.ProductID, line.Quantity, mut.Before.Available())
			continue
		}
		l.emitThreshold(ctx, env.CorrelationID, mut)
	}
	return nil
}

func (l *Ledger) reserveAtomic(ctx context.Context, env events.Envelope, evt events.OrderCreated, reference string) error {
	tx, err := l.repo.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	localDedup := l.dedup.WithExecutor(tx)
	var muts []Mutation

	for _, line := range evt.Items {
		if line.ProductID == "" || line.Quantity <= 0 {
			continue
		}

		claimed, err := localDedup.MarkProcessed(ctx, orderEventsConsumer, env.EventID, line.ProductID)
		if err != nil {
			return err
		}
		if !claimed {
			l.logger.Printf("skip duplicate line event=%s product=%s", env.EventID, line.ProductID)
			continue
		}

		mut, err := l.repo.ReserveTx(ctx, tx, line.ProductID, line.Quantity, reference)
		if err != nil {
			return fmt.Errorf("reserve %s for order %s: %w", line.ProductID, evt.OrderID, err)
		}
		if !mut.Applied {
			return fmt.Errorf("reserve %s for order %s: %w", line.ProductID, evt.OrderID, ErrShortStock)
		}
		muts = append(muts, mut)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reserve: %w", err)
	}

	for _, mut := range muts {
		l.emitThreshold(ctx, env.CorrelationID, mut)
	}
	l.logger.Printf("stock reserved for order=%s lines=%d", evt.OrderID, len(muts))
	return nil
}

// reserveLine claims the dedup key and reserves one line in a single
// transaction. The second return is false when the line was already claimed
// by an earlier delivery.
func (l *Ledger) reserveLine(ctx context.Context, eventID string, line events.OrderLine, reference string) (Mutation, bool, error) {
	tx, err := l.repo.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Mutation{}, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	claimed, err := l.dedup.WithExecutor(tx).MarkProcessed(ctx, orderEventsConsumer, eventID, line.ProductID)
	if err != nil {
		return Mutation{}, false, err
	}
	if !claimed {
		l.logger.Printf("skip duplicate line event=%s product=%s", eventID, line.ProductID)
		return Mutation{}, false, nil
	}

	mut, err := l.repo.ReserveTx(ctx, tx, line.ProductID, line.Quantity, reference)
	if err != nil {
		return Mutation{}, false, fmt.Errorf("reserve %s: %w", line.ProductID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Mutation{}, false, fmt.Errorf("commit reserve: %w", err)
	}
	return mut, true, nil
}

// CommitForOrder converts the reservations of a shipped order into on-hand
// decrements. Lines share the processed-events guard with the reservation
// path, so a redelivered OrderShipped never commits the same line twice.
func (l *Ledger) CommitForOrder(ctx context.Context, env events.Envelope, evt events.OrderShipped) error {
	if evt.OrderID == "" {
		return fmt.Errorf("missing orderId")
	}
	reference := "ORDER-" + evt.OrderID

	for _, line := range evt.Items {
		if line.ProductID == "" || line.Quantity <= 0 {
			continue
		}

		mut, applied, err := l.commitLine(ctx, env.EventID, line, reference)
		if err != nil {
			return err
		}
		if !applied {
			continue
		}
		if !mut.Applied {
			l.logger.Printf("ERROR commit short for order=%s product=%s requested=%d reserved=%d",
				evt.OrderID, line.ProductID, line.Quantity, mut.Before.Reserved)
			continue
		}
		l.emitThreshold(ctx, env.CorrelationID, mut)
	}
	l.logger.Printf("committed reservations for shipped order=%s", evt.OrderID)
	return nil
}

// commitLine claims the dedup key and commits one line in a single
// transaction, the same shape as reserveLine.
func (l *Ledger) commitLine(ctx context.Context, eventID string, line events.OrderLine, reference string) (Mutation, bool, error) {
	tx, err := l.repo.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Mutation{}, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	claimed, err := l.dedup.WithExecutor(tx).MarkProcessed(ctx, orderEventsConsumer, eventID, line.ProductID)
	if err != nil {
		return Mutation{}, false, err
	}
	if !claimed {
		l.logger.Printf("skip duplicate line event=%s product=%s", eventID, line.ProductID)
		return Mutation{}, false, nil
	}

	mut, err := l.repo.CommitTx(ctx, tx, line.ProductID, line.Quantity, reference)
	if err != nil {
		return Mutation{}, false, fmt.Errorf("commit %s: %w", line.ProductID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Mutation{}, false, fmt.Errorf("commit tx: %w", err)
	}
	return mut, true, nil
}

// ReleaseForOrder undoes the reservations of a cancelled order. The release
// clamps at zero in the repository, so replaying a cancellation is harmless.
func (l *Ledger) ReleaseForOrder(ctx context.Context, env events.Envelope, evt events.OrderCancelled) error {
	if evt.OrderID == "" {
		return fmt.Errorf("missing orderId")
	}
	reference := "ORDER-" + evt.OrderID

	for _, line := range evt.Items {
		if line.ProductID == "" || line.Quantity <= 0 {
			continue
		}
		if _, err := l.repo.Release(ctx, line.ProductID, line.Quantity, reference); err != nil {
			return fmt.Errorf("release %s for order %s: %w", line.ProductID, evt.OrderID, err)
		}
	}
	l.logger.Printf("released reservations for cancelled order=%s", evt.OrderID)
	return nil
}

// emitThreshold publishes StockOut or StockLow when a mutation crosses the
// minimum-stock line downward. While stock stays below the line no further
// alerts fire; the crossing re-arms once availability recovers.
func (l *Ledger) emitThreshold(ctx context.Context, correlationID string, mut Mutation) {
	if !mut.CrossedBelowThreshold() {
		return
	}

	var payload events.Payload
	if mut.After.IsOutOfStock() {
		payload = events.StockOut{
			ProductID:       mut.After.ProductID,
			CurrentQuantity: mut.After.Available(),
			MinThreshold:    mut.After.MinimumStock,
			Timestamp:       time.Now().UTC(),
		}
	} else {
		payload = events.StockLow{
			ProductID:       mut.After.ProductID,
			CurrentQuantity: mut.After.Available(),
			MinThreshold:    mut.After.MinimumStock,
			Timestamp:       time.Now().UTC(),
		}
	}

	if err := l.pub.Publish(ctx, correlationID, payload); err != nil {
		// Fire-and-forget: the ledger mutation already committed.
		l.logger.Printf("publish %s for %s: %v", payload.EventType(), mut.After.ProductID, err)
	}
}
