package order

import "time"

type Item struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Total     float64 `json:"total"`
}

type Order struct {
	ID              string     `json:"orderId"`
	OrderNumber     string     `json:"orderNumber"`
	CustomerID      string     `json:"customerId"`
	Status          Status     `json:"status"`
	Items           []Item     `json:"items"`
	Subtotal        float64    `json:"subtotal"`
	Tax             float64    `json:"tax"`
	Total           float64    `json:"total"`
	ShippingAddress string     `json:"shippingAddress,omitempty"`
	BillingAddress  string     `json:"billingAddress,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	ShippedAt       *time.Time `json:"shippedDate,omitempty"`
	DeliveredAt     *time.Time `json:"deliveredDate,omitempty"`
}
