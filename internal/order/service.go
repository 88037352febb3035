package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/VinkRasengan/Warehouse-management-sub001/internal/events"
)

var (
	ErrNoItems          = errors.New("order must contain at least one item")
	ErrInvalidItem      = errors.New("line item must have a product, positive quantity and non-negative price")
	ErrCustomerNotFound = errors.New("customer not found or inactive")
)

// InsufficientStockError identifies the first line the synchronous pre-check
// could not cover.
type InsufficientStockError struct {
	ProductID string
	Quantity  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested %d)", e.ProductID, e.Quantity)
}

type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// CustomerDirectory validates that an order's customer exists and is active.
type CustomerDirectory interface {
	Exists(ctx context.Context, customerID string) (bool, error)
}

// StockChecker is the synchronous, best-effort availability probe run before
// an order is accepted. It does not reserve anything.
type StockChecker interface {
	CheckStock(ctx context.Context, productID string, qty int) (bool, error)
}

// Publisher is the slice of the event bus the workflow needs.
type Publisher interface {
	Publish(ctx context.Context, correlationID string, payload events.Payload) error
}

// TaxPolicy computes tax from an order subtotal.
type TaxPolicy func(subtotal float64) float64

func FlatTax(rate float64) TaxPolicy {
	return func(subtotal float64) float64 {
		return subtotal * rate
	}
}

// Workflow owns the order lifecycle: creation with synchronous validation,
// status transitions, and cancellation with compensating stock release via
// the event bus.
type Workflow struct {
	repo      Repository
	customers CustomerDirectory
	stock     StockChecker
	pub       Publisher
	tax       TaxPolicy
	logger    *log.Logger
	now       func() time.Time
}

func NewWorkflow(repo Repository, customers CustomerDirectory, stock StockChecker, pub Publisher, tax TaxPolicy, logger *log.Logger) *Workflow {
	return &Workflow{
		repo:      repo,
		customers: customers,
		stock:     stock,
		pub:       pub,
		tax:       tax,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type CreateInput struct {
	CustomerID      string `json:"customerId"`
	Items           []Item `json:"items"`
	ShippingAddress string `json:"shippingAddress"`
	BillingAddress  string `json:"billingAddress"`
	Notes           string `json:"notes"`
	CorrelationID   string `json:"-"`
}

// Create validates the customer and stock, persists the order atomically, and
// publishes OrderCreated. Publish failure is logged, never rolled back: the
// order exists once the transaction commits, and the asynchronous reservation
// path has its own recovery.
func (w *Workflow) Create(ctx context.Context, in CreateInput) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrNoItems
	}
	if in.CustomerID == "" {
		return nil, ErrCustomerNotFound
	}
	for _, it := range in.Items {
		if it.ProductID == "" || it.Quantity <= 0 || it.UnitPrice < 0 {
			return nil, fmt.Errorf("product %q: %w", it.ProductID, ErrInvalidItem)
		}
	}

	ok, err := w.customers.Exists(ctx, in.CustomerID)
	if err != nil {
		w.logger.Printf("customer lookup %s: %v", in.CustomerID, err)
		return nil, ErrCustomerNotFound
	}
	if !ok {
		return nil, ErrCustomerNotFound
	}

	for _, it := range in.Items {
		available, err := w.stock.CheckStock(ctx, it.ProductID, it.Quantity)
		if err != nil {
			w.logger.Printf("stock check %s: %v", it.ProductID, err)
			return nil, &InsufficientStockError{ProductID: it.ProductID, Quantity: it.Quantity}
		}
		if !available {
			return nil, &InsufficientStockError{ProductID: it.ProductID, Quantity: it.Quantity}
		}
	}

	now := w.now()
	o := &Order{
		OrderNumber:     NewOrderNumber(now),
		CustomerID:      in.CustomerID,
		Status:          StatusPending,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  in.BillingAddress,
		Notes:           in.Notes,
		CreatedAt:       now,
	}
	for _, it := range in.Items {
		it.Total = float64(it.Quantity) * it.UnitPrice
		o.Items = append(o.Items, it)
		o.Subtotal += it.Total
	}
	o.Tax = w.tax(o.Subtotal)
	o.Total = o.Subtotal + o.Tax

	if err := w.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	evt := events.OrderCreated{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Total:       o.Total,
		Items:       eventLines(o.Items),
	}
	if err := w.pub.Publish(ctx, in.CorrelationID, evt); err != nil {
		w.logger.Printf("publish OrderCreated for %s: %v", o.ID, err)
	}

	return o, nil
}

func (w *Workflow) GetByID(ctx context.Context, orderID string) (*Order, error) {
	return w.repo.GetByID(ctx, orderID)
}

func (w *Workflow) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	return w.repo.GetByNumber(ctx, orderNumber)
}

func (w *Workflow) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return w.repo.ListByCustomer(ctx, customerID)
}

// UpdateStatus applies a state-machine transition, stamping shipped/delivered
// dates as side effects of the corresponding moves. Moving to SHIPPED
// publishes OrderShipped so inventory commits the order's reservations.
func (w *Workflow) UpdateStatus(ctx context.Context, orderID string, next Status) (*Order, error) {
	if !next.IsValid() {
		return nil, &InvalidTransitionError{To: next}
	}

	o, err := w.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(next) {
		return nil, &InvalidTransitionError{From: o.Status, To: next}
	}

	from := o.Status
	o.Status = next
	now := w.now()
	switch next {
	case StatusShipped:
		o.ShippedAt = &now
	case StatusDelivered:
		o.DeliveredAt = &now
	}

	if err := w.repo.UpdateStatus(ctx, o, from); err != nil {
		return nil, err
	}

	if next == StatusShipped {
		evt := events.OrderShipped{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			CustomerID:  o.CustomerID,
			Items:       eventLines(o.Items),
		}
		if err := w.pub.Publish(ctx, "", evt); err != nil {
			w.logger.Printf("publish OrderShipped for %s: %v", o.ID, err)
		}
	}

	return o, nil
}

// Cancel moves the order to CANCELLED and publishes OrderCancelled so the
// inventory subscriber releases whatever it reserved for these lines.
func (w *Workflow) Cancel(ctx context.Context, orderID, reason string) (*Order, error) {
	o, err := w.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.IsCancellable() {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusCancelled}
	}

	from := o.Status
	o.Status = StatusCancelled
	if reason != "" {
		if o.Notes != "" {
			o.Notes += "\n"
		}
		o.Notes += "Cancelled: " + reason
	}

	if err := w.repo.UpdateStatus(ctx, o, from); err != nil {
		return nil, err
	}

	evt := events.OrderCancelled{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Reason:      reason,
		Items:       eventLines(o.Items),
	}
	if err := w.pub.Publish(ctx, "", evt); err != nil {
		w.logger.Printf("publish OrderCancelled for %s: %v", o.ID, err)
	}

	return o, nil
}

func eventLines(items []Item) []events.OrderLine {
	lines := make([]events.OrderLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, events.OrderLine{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return lines
}
