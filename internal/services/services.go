// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

// Package services exposes typed facades over the storefront resources:
// products, orders, users and the cart. Each facade follows one error
// policy: reads absorb failures and return empty results so list views
// always render, writes propagate failures so the caller can tell the
// user what happened. The offline notice raised by the gateway covers the
// absorbed read failures.
package services

import (
	"github.com/go-playground/validator/v10"

	"github.com/avaldera/comercia/internal/gateway"
	"github.com/avaldera/comercia/internal/logging"
)

// validate checks write payloads before they reach the network.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Services bundles the resource facades over one gateway.
type Services struct {
	Products *ProductService
	Orders   *OrderService
	Users    *UserService
	Cart     *CartService
}

// New creates all resource facades.
func New(gw *gateway.Gateway) *Services {
	return &Services{
		Products: &ProductService{gw: gw},
		Orders:   &OrderService{gw: gw},
		Users:    &UserService{gw: gw},
		Cart:     &CartService{gw: gw},
	}
}

// swallowRead logs an absorbed read failure. Cancellation is not
// absorbed; the caller is going away and should see it.
func swallowRead(err error, resource string) bool {
	if err == nil {
		return false
	}
	if gateway.IsCanceled(err) {
		return false
	}
	logging.Debug().Err(err).Str("resource", resource).
		Msg("Read failed; returning empty result")
	return true
}
