package models

// Checkout mirrors the commerce platform's checkout representation: the
// cart with its physical line items plus the computed totals.
type Checkout struct {
	ID                     string  `json:"id"`
	Cart                   Cart    `json:"cart"`
	SubtotalExTax          float64 `json:"subtotal_ex_tax"`
	TaxTotal               float64 `json:"tax_total"`
	ShippingCostTotalExTax float64 `json:"shipping_cost_total_ex_tax"`
	GrandTotal             float64 `json:"grand_total"`
}

type Cart struct {
	ID        string    `json:"id"`
	LineItems LineItems `json:"line_items"`
}

type LineItems struct {
	PhysicalItems []LineItem `json:"physical_items"`
}

// LineItem identifies one cart entry by the commerce platform's product and
// variant ids, which map 1:1 onto a ProductItem.
type LineItem struct {
	ID        string `json:"id"`
	ProductID int64  `json:"product_id"`
	VariantID int64  `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}
