package models

import (
	"time"
)

// PaymentMethod is the tag recorded by the ordering system
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// Label returns the human readable name shown in the orders table
func (p PaymentMethod) Label() string {
	switch p {
	case PaymentMethodCash:
		return "Cash"
	case PaymentMethodBankTransfer:
		return "Bank transfer"
	case "":
		return "Unknown"
	default:
		return string(p)
	}
}

// Order is a customer purchase as stored by the ordering system.
// TotalAmount is trusted as stored and is never recomputed from the items.
type Order struct {
	ID                  string        `db:"id" json:"id"`
	OrderToken          string        `db:"order_token" json:"order_token"`
	Name                string        `db:"name" json:"name"`
	Phone               string        `db:"phone" json:"phone"`
	Email               string        `db:"email" json:"email"`
	SpecialInstructions string        `db:"special_instructions" json:"special_instructions,omitempty"`
	PaymentProofURL     *string       `db:"payment_proof_url" json:"payment_proof_url,omitempty"`
	PaymentMethod       PaymentMethod `db:"payment_method" json:"payment_method"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`
	DeliveryFee         int64         `db:"delivery_fee" json:"delivery_fee"`
	TotalAmount         int64         `db:"total_amount" json:"total_amount"`
	Items               []OrderItem   `db:"-" json:"items"`
}

// OrderItem is one product line of an order
type OrderItem struct {
	OrderID     string `db:"order_id" json:"-"`
	ProductName string `db:"product_name" json:"product_name"`
	Price       int64  `db:"price" json:"price"`
	Quantity    int    `db:"quantity" json:"quantity"`
}

// LineTotal is price times quantity
func (i OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// Subtotal sums the line totals. The delivery fee is not included.
func Subtotal(items []OrderItem) int64 {
	var total int64

	for _, item := range items {
		total += item.LineTotal()
	}

	return total
}

// Subtotal of the order's items
func (o *Order) Subtotal() int64 {
	return Subtotal(o.Items)
}

// HasPaymentProof reports whether the customer uploaded a transfer receipt
func (o *Order) HasPaymentProof() bool {
	return o.PaymentProofURL != nil && *o.PaymentProofURL != ""
}
