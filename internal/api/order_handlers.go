package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vaidashi/order-admin/internal/service"
	"github.com/vaidashi/order-admin/internal/session"
	"github.com/vaidashi/order-admin/internal/view"
	apperrors "github.com/vaidashi/order-admin/pkg/errors"
)

const msgOrdersUnavailable = "Failed to load orders"

// ToggleResponse is the expand state after a toggle
type ToggleResponse struct {
	ExpandedOrderID string `json:"expanded_order_id"`
}

// getOrdersHandler runs one fetch cycle and returns the orders table for the
// caller's session. The session is only locked around its own updates, never
// across the fetch.
func (s *Server) getOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s.updateSession(ctx, func(state *session.State) {
		state.BeginFetch()
	})

	orders, err := s.orders.FetchOrders(ctx)

	if err != nil {
		s.updateSession(ctx, func(state *session.State) {
			state.FinishFetch(msgOrdersUnavailable, nil)
		})

		if !errors.Is(err, service.ErrOrdersUnavailable) {
			s.logger.Error("Unexpected error fetching orders", "error", err)
		}

		s.respondWithAppError(w, apperrors.NewUnavailableError(msgOrdersUnavailable))
		return
	}

	ids := view.OrderIDs(orders)
	state := s.updateSession(ctx, func(state *session.State) {
		state.FinishFetch("", ids)
	})

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    view.BuildOrdersTable(orders, state),
	})
}

// toggleOrderHandler expands the order, or collapses it when it is already expanded
func (s *Server) toggleOrderHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	state := s.updateSession(r.Context(), func(state *session.State) {
		state.Toggle(id)
	})

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    ToggleResponse{ExpandedOrderID: state.ExpandedOrderID},
	})
}
