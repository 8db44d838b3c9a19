package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vaidashi/order-admin/internal/models"
	"github.com/vaidashi/order-admin/pkg/logger"
)

// ErrOrdersUnavailable means the order list itself could not be read. Callers
// must show an error state rather than a partial table.
var ErrOrdersUnavailable = errors.New("orders unavailable")

// OrderReader is the read side of the order store
type OrderReader interface {
	ListOrders(ctx context.Context) ([]*models.Order, error)
	ListItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
}

// OrderService assembles orders with their items for the admin table
type OrderService struct {
	orders OrderReader
	logger logger.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(orders OrderReader, logger logger.Logger) *OrderService {
	return &OrderService{
		orders: orders,
		logger: logger,
	}
}

// FetchOrders lists orders newest first and attaches each order's items.
//
// Items are loaded concurrently, one query per order. A failed item query
// leaves that order with an empty item list and does not affect the others.
// The returned slice keeps the order of the order list query. Nothing is
// cached; each call reads everything again.
func (s *OrderService) FetchOrders(ctx context.Context) ([]*models.Order, error) {
	orders, err := s.orders.ListOrders(ctx)

	if err != nil {
		s.logger.Error("Failed to fetch orders", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrOrdersUnavailable, err)
	}

	items := make([][]models.OrderItem, len(orders))

	// every branch returns nil: a failed item query degrades its own slot and
	// never cancels the siblings
	var g errgroup.Group

	for i, order := range orders {
		g.Go(func() error {
			orderItems, err := s.orders.ListItems(ctx, order.ID)

			if err != nil {
				s.logger.Warn("Items unavailable, showing order without items",
					"error", err,
					"orderID", order.ID)
				orderItems = []models.OrderItem{}
			}

			items[i] = orderItems
			return nil
		})
	}

	_ = g.Wait()

	for i, order := range orders {
		order.Items = items[i]
	}

	s.logger.Debug("Fetched orders", "count", len(orders))
	return orders, nil
}
