package order

import "time"

// Item is a single line item on an order. Pricing fields are zero until an
// admin has reviewed the order and applied prices.
type Item struct {
	ProductName string  `json:"product_name,omitempty"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	UnitPrice   float64 `json:"unit_price,omitempty"`
	Subtotal    float64 `json:"subtotal,omitempty"`
}

// Order is the snapshot of an order as provided by the order-management
// system. This service only reads it; it never validates or mutates the
// caller's copy.
type Order struct {
	OrderID       string    `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CustomerPhone string    `json:"customer_phone"`
	BusinessName  string    `json:"business_name,omitempty"`
	OrderType     string    `json:"order_type,omitempty"`
	Status        string    `json:"status"`
	Items         []Item    `json:"items"`
	TotalAmount   float64   `json:"total_amount"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// Snapshot returns a deep copy of the order. Queued jobs carry a snapshot so
// that later mutations of the source order do not change what gets emailed.
func (o *Order) Snapshot() Order {
	s := *o
	if o.OrderID == "" {
		s.OrderID = o.OrderNumber
	}
	s.Items = make([]Item, len(o.Items))
	copy(s.Items, o.Items)
	return s
}
