// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

package models

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pendiente"
	OrderPaid      OrderStatus = "pagado"
	OrderShipped   OrderStatus = "enviado"
	OrderDelivered OrderStatus = "entregado"
	OrderCancelled OrderStatus = "cancelado"
)

// orderTransitions lists the allowed forward transitions per status.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderPaid, OrderCancelled},
	OrderPaid:    {OrderShipped, OrderCancelled},
	OrderShipped: {OrderDelivered},
}

// CanTransitionTo reports whether the status may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderLine is one product position within an order.
type OrderLine struct {
	ProductID int64   `json:"productoId" validate:"required"`
	Quantity  int     `json:"cantidad" validate:"gt=0"`
	UnitPrice float64 `json:"precioUnitario" validate:"gte=0"`
}

// Order is a placed order. Totals are computed by the backend; the core
// treats them as pass-through values.
type Order struct {
	ID        int64       `json:"id,omitempty"`
	UserID    int64       `json:"usuarioId"`
	Lines     []OrderLine `json:"lineas" validate:"required,min=1,dive"`
	Status    OrderStatus `json:"estado,omitempty"`
	Total     float64     `json:"total,omitempty"`
	CreatedAt time.Time   `json:"fechaCreacion,omitempty"`
}
