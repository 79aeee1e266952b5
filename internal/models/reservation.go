package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ReservationEntry marks a spot as held by an in-flight checkout. The
// primary key on product_item_id is the tie-break between racing checkouts:
// only one insert per spot can land.
type ReservationEntry struct {
	bun.BaseModel `bun:"table:reservations"`

	ProductItemID string    `bun:"product_item_id,pk" json:"product_item_id"`
	OrderID       string    `bun:"order_id,notnull" json:"order_id"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}
