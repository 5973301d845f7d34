package models

import "time"

const (
	OrderStatusPending = "pending"

	// TaxRate is applied to the subtotal and truncated to whole cents
	TaxRate = 0.08
	// FlatShippingCents is charged once per order
	FlatShippingCents = 999
)

// Product is a purchasable item of the catalogue
type Product struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	PriceCents  int64  `json:"price_cents" db:"price_cents"`
	Currency    string `json:"currency" db:"currency"`
	Active      bool   `json:"active" db:"active"`
}

// ShippingInfo is the destination of an order
type ShippingInfo struct {
	Name       string `json:"ship_to_name" db:"ship_to_name"`
	Line1      string `json:"ship_to_line1" db:"ship_to_line1"`
	Line2      string `json:"ship_to_line2" db:"ship_to_line2"`
	City       string `json:"ship_to_city" db:"ship_to_city"`
	State      string `json:"ship_to_state" db:"ship_to_state"`
	PostalCode string `json:"ship_to_postal" db:"ship_to_postal"`
	Country    string `json:"ship_to_country" db:"ship_to_country"`
	Phone      string `json:"ship_to_phone" db:"ship_to_phone"`
}

// Order is a placed order including its computed totals
type Order struct {
	ID            string      `json:"id" db:"id"`
	CustomerID    string      `json:"customer_id" db:"customer_id"`
	CreatedBy     string      `json:"created_by" db:"created_by"`
	Status        string      `json:"status" db:"status"`
	Currency      string      `json:"currency" db:"currency"`
	SubtotalCents int64       `json:"subtotal_cents" db:"subtotal_cents"`
	TaxCents      int64       `json:"tax_cents" db:"tax_cents"`
	ShippingCents int64       `json:"shipping_cents" db:"shipping_cents"`
	TotalCents    int64       `json:"total_cents" db:"total_cents"`
	Notes         string      `json:"notes" db:"notes"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	Items         []OrderItem `json:"items,omitempty" db:"-"`
	ShippingInfo
}

// OrderItem is one line of an order
type OrderItem struct {
	ID             string `json:"id" db:"id"`
	OrderID        string `json:"order_id" db:"order_id"`
	ProductID      string `json:"product_id" db:"product_id"`
	ProductName    string `json:"product_name,omitempty" db:"product_name"`
	Qty            int    `json:"qty" db:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents" db:"unit_price_cents"`
	LineTotalCents int64  `json:"line_total_cents" db:"line_total_cents"`
	Meta           JSON   `json:"meta,omitempty" db:"meta"`
}

// CartItem is a requested product quantity before pricing
type CartItem struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// PlaceOrderRequest is the payload of a checkout
type PlaceOrderRequest struct {
	Items    []CartItem   `json:"items"`
	Shipping ShippingInfo `json:"shipping"`
	Notes    string       `json:"notes"`
}
