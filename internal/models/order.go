package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Order is the durable record of a completed purchase. Rows are written
// exactly once, in the same store request that finalizes the purchased
// spots, and never mutated afterwards.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID            string    `bun:"id,pk" json:"id"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	BCOrderID     int64     `bun:"bc_order_id,notnull" json:"bc_order_id"`
	PaymentID     string    `bun:"payment_id,nullzero" json:"payment_id,omitempty"`
	Subtotal      float64   `bun:"subtotal" json:"subtotal"`
	DiscountTotal float64   `bun:"discount_total" json:"discount_total"`
	TaxTotal      float64   `bun:"tax_total" json:"tax_total"`
	ShippingTotal float64   `bun:"shipping_total" json:"shipping_total"`
	GrandTotal    float64   `bun:"grand_total" json:"grand_total"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

type CreateOrderRequest struct {
	CartID       string `json:"cart_id"`
	PaymentToken string `json:"payment_token"`
}

type CreateOrderResponse struct {
	OrderID    string  `json:"order_id"`
	GrandTotal float64 `json:"grand_total"`
}
