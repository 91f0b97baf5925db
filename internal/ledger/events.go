package ledger

import "time"

// OrderEvent is published on bus.SubjectOrderCreated after an order
// commits. APILink is carried along so the fulfillment worker needs no
// catalog lookup of its own.
type OrderEvent struct {
	OrderID     int64     `json:"order_id"`
	UserID      int64     `json:"user_id"`
	ServiceName string    `json:"service_name"`
	APILink     string    `json:"api_link"`
	Link        string    `json:"link"`
	Quantity    int64     `json:"quantity"`
	Cost        int64     `json:"cost"`
	CreatedAt   time.Time `json:"created_at"`
}
