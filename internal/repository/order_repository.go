package repository

import (
	"context"

	"github.com/vaidashi/order-admin/internal/database"
	"github.com/vaidashi/order-admin/internal/models"
	"github.com/vaidashi/order-admin/pkg/logger"
)

// OrderRepository reads orders and their items. Orders are written by the
// ordering system, so there are no write methods here.
type OrderRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *database.Database, logger logger.Logger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

// ListOrders returns every order, newest first. Items are not loaded.
func (r *OrderRepository) ListOrders(ctx context.Context) ([]*models.Order, error) {
	query := `
		SELECT id, order_token, name, phone, email,
			COALESCE(special_instructions, '') AS special_instructions,
			payment_proof_url, payment_method, created_at, delivery_fee, total_amount
		FROM orders
		ORDER BY created_at DESC
	`

	orders := []*models.Order{}
	err := r.db.DB.SelectContext(ctx, &orders, query)

	if err != nil {
		r.logger.Error("Failed to list orders", "error", err)
		return nil, wrapError(err)
	}

	return orders, nil
}

// ListItems returns the items of one order in fetch order; never nil on success
func (r *OrderRepository) ListItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	query := `
		SELECT order_id, product_name, price, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	items := []models.OrderItem{}
	err := r.db.DB.SelectContext(ctx, &items, query, orderID)

	if err != nil {
		r.logger.Error("Failed to list order items", "error", err, "orderID", orderID)
		return nil, wrapError(err)
	}

	return items, nil
}
