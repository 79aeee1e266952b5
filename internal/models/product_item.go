package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ProductItem is one sellable spot inside a break.
//
// quantity is 1 while the spot is on sale and 0 while it is reserved or
// sold. A spot with quantity 0 and no order id is a live reservation; once
// order_id is set the spot is sold for good.
type ProductItem struct {
	bun.BaseModel `bun:"table:break_product_items"`

	ID          string    `bun:"id,pk" json:"id"`
	BreakID     string    `bun:"break_id,notnull" json:"break_id"`
	Title       string    `bun:"title" json:"title"`
	Quantity    int       `bun:"quantity,notnull" json:"quantity"`
	OrderID     string    `bun:"order_id,nullzero" json:"order_id,omitempty"`
	BCProductID int64     `bun:"bc_product_id,notnull" json:"bc_product_id"`
	BCVariantID int64     `bun:"bc_variant_id,notnull" json:"bc_variant_id"`
	Price       float64   `bun:"price" json:"price"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`

	Break *Break `bun:"rel:belongs-to,join:break_id=id" json:"break,omitempty"`
}

// Sold reports whether the spot has been finalized into an order.
func (p *ProductItem) Sold() bool {
	return p.OrderID != ""
}
