// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/avaldera/comercia/internal/gateway"
	"github.com/avaldera/comercia/internal/models"
)

// OrderService is the order facade.
type OrderService struct {
	gw *gateway.Gateway
}

// List returns every order visible to the current user: their own for
// customers, all orders for admins. The distinction is enforced by the
// backend. Failures yield an empty slice.
func (s *OrderService) List(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := s.gw.Get(ctx, "pedidos", &orders); err != nil {
		if swallowRead(err, "pedidos") {
			return []models.Order{}, nil
		}
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// GetByID returns one order, or nil when absent or unreadable.
func (s *OrderService) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := s.gw.Get(ctx, "pedidos/"+strconv.FormatInt(id, 10), &order); err != nil {
		if swallowRead(err, "pedidos") {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// Place submits a new order. Write failures propagate.
func (s *OrderService) Place(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := validate.Struct(order); err != nil {
		return nil, fmt.Errorf("validate order: %w", err)
	}
	var placed models.Order
	if err := s.gw.Post(ctx, "pedidos", order, &placed); err != nil {
		return nil, err
	}
	return &placed, nil
}

// UpdateStatus moves an order to a new lifecycle state. Transitions are
// checked against the current state first so an impossible move fails
// without a network round trip.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, next models.OrderStatus) (*models.Order, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("order %d not found", id)
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("order %d: cannot move from %s to %s", id, current.Status, next)
	}

	body := map[string]models.OrderStatus{"estado": next}
	var updated models.Order
	if err := s.gw.Patch(ctx, "pedidos/"+strconv.FormatInt(id, 10)+"/estado", body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Cancel is shorthand for the cancelled transition.
func (s *OrderService) Cancel(ctx context.Context, id int64) (*models.Order, error) {
	return s.UpdateStatus(ctx, id, models.OrderCancelled)
}
