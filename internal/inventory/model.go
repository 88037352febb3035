package inventory

import "time"

// Item is the per-product stock record. Quantity is on-hand; Reserved is held
// for orders not yet shipped. Both move only through the ledger operations,
// each of which appends a Movement.
type Item struct {
	ProductID    string    `json:"productId"`
	Quantity     int       `json:"quantity"`
	Reserved     int       `json:"reservedQuantity"`
	MinimumStock int       `json:"minimumStock"`
	MaximumStock int       `json:"maximumStock"`
	Location     string    `json:"location"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (i Item) Available() int {
	return i.Quantity - i.Reserved
}

func (i Item) IsLowStock() bool {
	return i.Available() <= i.MinimumStock
}

func (i Item) IsOutOfStock() bool {
	return i.Available() <= 0
}

type MovementType string

const (
	MovementIn          MovementType = "IN"
	MovementOut         MovementType = "OUT"
	MovementAdjustment  MovementType = "ADJUSTMENT"
	MovementReserved    MovementType = "RESERVED"
	MovementReleased    MovementType = "RELEASED"
	MovementTransferIn  MovementType = "TRANSFER_IN"
	MovementTransferOut MovementType = "TRANSFER_OUT"
)

// Movement is one append-only audit row per item mutation. For RESERVED and
// RELEASED the previous/new pair tracks the reserved counter; for everything
// else it tracks on-hand quantity.
type Movement struct {
	ID               string       `json:"id"`
	ProductID        string       `json:"productId"`
	Type             MovementType `json:"movementType"`
	Quantity         int          `json:"quantity"`
	PreviousQuantity int          `json:"previousQuantity"`
	NewQuantity      int          `json:"newQuantity"`
	Reason           string       `json:"reason,omitempty"`
	Reference        string       `json:"reference,omitempty"`
	CreatedBy        string       `json:"createdBy,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// Mutation reports the outcome of a ledger write: the item before and after,
// and whether the write was applied at all. Insufficient stock is Applied ==
// false, not an error, so callers can branch into compensating flows.
type Mutation struct {
	Applied bool
	Before  Item
	After   Item
}

// CrossedBelowThreshold is true when this mutation took available quantity
// from above the minimum to at or below it. Emitting alerts only on this
// downward crossing keeps them at-most-once until stock recovers.
func (m Mutation) CrossedBelowThreshold() bool {
	return m.Applied && !m.Before.IsLowStock() && m.After.IsLowStock()
}
