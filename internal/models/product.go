// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

// Package models defines the data transfer objects exchanged with the
// storefront backend. The backend's field naming drifted across project
// generations (Spanish keys, categories as strings or objects); these
// types absorb that variance at the decode boundary so the rest of the
// system sees one canonical shape.
package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Category is a product category. The backend has historically delivered it
// as a bare string ("electronica"), as an object ({"id":3,"nombre":"..."}),
// or not at all with a separate categoriaId field on the product.
type Category struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"nombre,omitempty"`
}

// UnmarshalJSON accepts both the string and the object representation.
func (c *Category) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == `""` {
		*c = Category{}
		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return fmt.Errorf("decode category string: %w", err)
		}
		*c = Category{Name: name}
		return nil
	}

	type categoryAlias Category
	var alias categoryAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return fmt.Errorf("decode category object: %w", err)
	}
	*c = Category(alias)
	return nil
}

// IsZero reports whether no category information is present.
func (c Category) IsZero() bool {
	return c.ID == 0 && c.Name == ""
}

// Product is a catalog item.
type Product struct {
	ID          int64    `json:"id,omitempty"`
	Name        string   `json:"nombre" validate:"required"`
	Description string   `json:"descripcion,omitempty"`
	Price       float64  `json:"precio" validate:"gte=0"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Featured    bool     `json:"destacado,omitempty"`
	ImageURL    string   `json:"imagenUrl,omitempty"`
	Category    Category `json:"categoria,omitempty"`

	// CategoryID is the third historical category representation: a bare
	// foreign key alongside no categoria field.
	CategoryID int64 `json:"categoriaId,omitempty"`
}

// MatchesCategory reports whether the product belongs to the requested
// category value, matching any of the three representations. String and
// name comparisons are case-insensitive; a numeric value also matches the
// category id fields.
func (p *Product) MatchesCategory(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}

	if p.Category.Name != "" && strings.EqualFold(p.Category.Name, value) {
		return true
	}

	if id, err := strconv.ParseInt(value, 10, 64); err == nil {
		if p.Category.ID != 0 && p.Category.ID == id {
			return true
		}
		if p.CategoryID != 0 && p.CategoryID == id {
			return true
		}
	}

	return false
}
