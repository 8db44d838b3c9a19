// Package view projects joined orders and session state into the rows the
// admin orders table renders.
package view

import (
	"time"

	"github.com/vaidashi/order-admin/internal/models"
	"github.com/vaidashi/order-admin/internal/session"
)

// OrdersTable is the orders page payload
type OrdersTable struct {
	Orders          []OrderRow `json:"orders"`
	ExpandedOrderID string     `json:"expanded_order_id,omitempty"`
	Loading         bool       `json:"loading"`
	Error           string     `json:"error,omitempty"`
}

// OrderRow is one order line of the table. Total is the stored total_amount,
// shown as is even when it differs from Subtotal + DeliveryFee.
type OrderRow struct {
	ID                  string     `json:"id"`
	OrderToken          string     `json:"order_token"`
	Name                string     `json:"name"`
	Phone               string     `json:"phone"`
	Email               string     `json:"email"`
	SpecialInstructions string     `json:"special_instructions,omitempty"`
	PaymentMethod       string     `json:"payment_method"`
	PaymentMethodLabel  string     `json:"payment_method_label"`
	PaymentProofURL     string     `json:"payment_proof_url,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	ItemCount           int        `json:"item_count"`
	Subtotal            int64      `json:"subtotal"`
	DeliveryFee         int64      `json:"delivery_fee"`
	Total               int64      `json:"total"`
	Expanded            bool       `json:"expanded"`
	Items               []ItemLine `json:"items,omitempty"`
}

// ItemLine is one line of an expanded order
type ItemLine struct {
	ProductName string `json:"product_name"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
	LineTotal   int64  `json:"line_total"`
}

// BuildOrdersTable keeps the orders in the given order. Only the expanded
// row carries its item lines.
func BuildOrdersTable(orders []*models.Order, state *session.State) OrdersTable {
	if state == nil {
		state = session.NewState()
	}

	table := OrdersTable{
		Orders:          make([]OrderRow, 0, len(orders)),
		ExpandedOrderID: state.ExpandedOrderID,
		Loading:         state.Loading,
		Error:           state.Error,
	}

	for _, order := range orders {
		table.Orders = append(table.Orders, BuildOrderRow(order, state.IsExpanded(order.ID)))
	}

	return table
}

// BuildOrderRow projects a single order
func BuildOrderRow(order *models.Order, expanded bool) OrderRow {
	row := OrderRow{
		ID:                  order.ID,
		OrderToken:          order.OrderToken,
		Name:                order.Name,
		Phone:               order.Phone,
		Email:               order.Email,
		SpecialInstructions: order.SpecialInstructions,
		PaymentMethod:       string(order.PaymentMethod),
		PaymentMethodLabel:  order.PaymentMethod.Label(),
		CreatedAt:           order.CreatedAt,
		ItemCount:           len(order.Items),
		Subtotal:            order.Subtotal(),
		DeliveryFee:         order.DeliveryFee,
		Total:               order.TotalAmount,
		Expanded:            expanded,
	}

	if order.HasPaymentProof() {
		row.PaymentProofURL = *order.PaymentProofURL
	}

	if expanded {
		row.Items = make([]ItemLine, 0, len(order.Items))

		for _, item := range order.Items {
			row.Items = append(row.Items, ItemLine{
				ProductName: item.ProductName,
				Price:       item.Price,
				Quantity:    item.Quantity,
				LineTotal:   item.LineTotal(),
			})
		}
	}

	return row
}

// OrderIDs lists the ids in order
func OrderIDs(orders []*models.Order) []string {
	ids := make([]string, len(orders))

	for i, order := range orders {
		ids[i] = order.ID
	}

	return ids
}
