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

// CartService is the facade over the authoritative server-side cart of
// the logged-in user.
type CartService struct {
	gw *gateway.Gateway
}

// Get returns the current cart. Failures yield an empty cart so the
// header badge and cart view always render.
func (s *CartService) Get(ctx context.Context) (*models.Cart, error) {
	var cart models.Cart
	if err := s.gw.Get(ctx, "carrito", &cart); err != nil {
		if swallowRead(err, "carrito") {
			return &models.Cart{Items: []models.CartLine{}}, nil
		}
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []models.CartLine{}
	}
	return &cart, nil
}

// AddItem puts quantity units of a product into the cart. A quantity
// below 1 is rejected before any network traffic.
func (s *CartService) AddItem(ctx context.Context, productID int64, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("add to cart: quantity must be at least 1, got %d", quantity)
	}
	body := map[string]interface{}{
		"productoId": productID,
		"cantidad":   quantity,
	}
	var cart models.Cart
	if err := s.gw.Post(ctx, "carrito/items", body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// UpdateQuantity sets the quantity of a cart line. A quantity below 1
// means the line is removed; the two operations are indistinguishable to
// the caller.
func (s *CartService) UpdateQuantity(ctx context.Context, productID int64, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return s.RemoveItem(ctx, productID)
	}
	body := map[string]interface{}{"cantidad": quantity}
	var cart models.Cart
	if err := s.gw.Put(ctx, cartItemEndpoint(productID), body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// RemoveItem takes a product out of the cart. Removing a product that is
// not in the cart is not an error.
func (s *CartService) RemoveItem(ctx context.Context, productID int64) (*models.Cart, error) {
	var cart models.Cart
	if err := s.gw.Delete(ctx, cartItemEndpoint(productID), &cart); err != nil {
		if gateway.IsNotFound(err) {
			return s.Get(ctx)
		}
		return nil, err
	}
	return &cart, nil
}

// Clear empties the cart. Write failures propagate.
func (s *CartService) Clear(ctx context.Context) error {
	return s.gw.Delete(ctx, "carrito", nil)
}

func cartItemEndpoint(productID int64) string {
	return "carrito/items/" + strconv.FormatInt(productID, 10)
}
