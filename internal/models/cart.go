// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

package models

// CartLine is one product position in the authoritative server-side cart.
// Quantities below 1 never exist here: the cart facade turns such updates
// into removals before they reach the backend.
type CartLine struct {
	ID        int64   `json:"id,omitempty"`
	ProductID int64   `json:"productoId" validate:"required"`
	Quantity  int     `json:"cantidad" validate:"gt=0"`
	Price     float64 `json:"precio" validate:"gte=0"`
}

// Cart is the current user's cart as the backend reports it.
type Cart struct {
	Items []CartLine `json:"items"`
	Total float64    `json:"total"`
}

// Count returns the total number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, line := range c.Items {
		n += line.Quantity
	}
	return n
}
